/*
fixcodec — FIX tag=value codec and decoder tools
Copyright (C) 2025 Steve Clarke <stephenlclarke@mac.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.

In accordance with section 13 of the AGPL, if you modify this program,
your modified version must prominently offer all users interacting with it
remotely through a computer network an opportunity to receive the source
code of your version.
*/

package codec

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

type fieldKind uint8

const (
	kindUint fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindChar
	kindEnum
	kindString
	kindBytes
	kindASCII
	kindFixed
	kindData
	kindTime
	kindCustom
	kindGroup
)

var (
	dataType        = reflect.TypeFor[Data]()
	asciiType       = reflect.TypeFor[ASCII]()
	charType        = reflect.TypeFor[Char]()
	timeType        = reflect.TypeFor[time.Time]()
	enumType        = reflect.TypeFor[Enumerated]()
	unmarshalerType = reflect.TypeFor[ValueUnmarshaler]()
	marshalerType   = reflect.TypeFor[ValueMarshaler]()
)

// fieldInfo describes one wire member of a struct after components have
// been flattened.
type fieldInfo struct {
	name     string
	tag      []byte
	index    []int
	kind     fieldKind
	typ      reflect.Type
	ptr      bool
	optional bool
	width    int
	bits     int
	codes    string
	fixedLen int
	group    *structInfo
}

func (f *fieldInfo) required() bool {
	return !f.optional && f.kind != kindGroup
}

// structInfo is the ordered member list of a struct type.
type structInfo struct {
	name   string
	fields []fieldInfo
	byTag  map[string]int
}

func (si *structInfo) lookup(tag []byte) int {
	if i, ok := si.byTag[string(tag)]; ok {
		return i
	}
	return -1
}

// tags returns the member tags in declared order.
func (si *structInfo) tags() [][]byte {
	out := make([][]byte, len(si.fields))
	for i := range si.fields {
		out[i] = si.fields[i].tag
	}
	return out
}

var structCache sync.Map // reflect.Type -> *structInfo

func structInfoOf(t reflect.Type) (*structInfo, error) {
	if si, ok := structCache.Load(t); ok {
		return si.(*structInfo), nil
	}

	si, err := compileStruct(t, make(map[reflect.Type]*structInfo))
	if err != nil {
		return nil, err
	}

	actual, _ := structCache.LoadOrStore(t, si)
	return actual.(*structInfo), nil
}

func compileStruct(t reflect.Type, building map[reflect.Type]*structInfo) (*structInfo, error) {
	if si, ok := building[t]; ok {
		return si, nil
	}
	if si, ok := structCache.Load(t); ok {
		return si.(*structInfo), nil
	}

	si := &structInfo{name: t.Name(), byTag: make(map[string]int)}
	building[t] = si

	if err := collectFields(si, t, nil, "", false, building); err != nil {
		return nil, err
	}
	return si, nil
}

type tagOptions struct {
	tag       string
	omitempty bool
	width     int
	skip      bool
}

func parseTagOptions(raw string, ok bool) (tagOptions, error) {
	if !ok {
		return tagOptions{}, nil
	}
	if raw == "-" {
		return tagOptions{skip: true}, nil
	}

	parts := strings.Split(raw, ",")
	opts := tagOptions{tag: parts[0]}
	for _, p := range parts[1:] {
		switch {
		case p == "omitempty":
			opts.omitempty = true
		case strings.HasPrefix(p, "width="):
			w, err := strconv.Atoi(strings.TrimPrefix(p, "width="))
			if err != nil || w <= 0 || w > 20 {
				return opts, fmt.Errorf("bad width %q: %w", p, ErrUnsupportedType)
			}
			opts.width = w
		case p == "":
		default:
			return opts, fmt.Errorf("unknown option %q: %w", p, ErrUnsupportedType)
		}
	}
	return opts, nil
}

func collectFields(si *structInfo, t reflect.Type, index []int, prefix string, optional bool, building map[reflect.Type]*structInfo) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		raw, hasTag := sf.Tag.Lookup("fix")
		opts, err := parseTagOptions(raw, hasTag)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}
		if opts.skip {
			continue
		}

		path := append(append([]int(nil), index...), i)
		name := prefix + sf.Name

		if opts.tag == "" {
			if !sf.IsExported() && !sf.Anonymous {
				continue
			}
			ct, ptr := sf.Type, false
			if ct.Kind() == reflect.Pointer {
				ct, ptr = ct.Elem(), true
			}
			if ct.Kind() == reflect.Struct && !isScalarStruct(ct) {
				if err := collectFields(si, ct, path, name+".", optional || ptr, building); err != nil {
					return err
				}
			}
			continue
		}

		if !sf.IsExported() {
			return fmt.Errorf("%s.%s: unexported tagged field: %w", t.Name(), sf.Name, ErrUnsupportedType)
		}
		if _, err := ParseTagNumber([]byte(opts.tag)); err != nil {
			return fmt.Errorf("%s.%s: tag %q: %w", t.Name(), sf.Name, opts.tag, err)
		}

		fi := fieldInfo{
			name:     name,
			tag:      []byte(opts.tag),
			index:    path,
			optional: optional || opts.omitempty,
			width:    opts.width,
		}
		if err := classify(&fi, sf.Type, building); err != nil {
			return fmt.Errorf("%s.%s: %w", t.Name(), sf.Name, err)
		}

		if _, dup := si.byTag[opts.tag]; dup {
			return fmt.Errorf("%s.%s: tag %s: %w", t.Name(), sf.Name, opts.tag, ErrDuplicateTag)
		}
		si.byTag[opts.tag] = len(si.fields)
		si.fields = append(si.fields, fi)
	}
	return nil
}

func isScalarStruct(t reflect.Type) bool {
	return t == timeType || t == asciiType || reflect.PointerTo(t).Implements(unmarshalerType)
}

func classify(fi *fieldInfo, t reflect.Type, building map[reflect.Type]*structInfo) error {
	if t.Kind() == reflect.Pointer {
		fi.ptr = true
		fi.optional = true
		t = t.Elem()
	}
	fi.typ = t

	switch {
	case t == dataType:
		fi.kind = kindData
		return nil
	case t == asciiType:
		fi.kind = kindASCII
		return nil
	case t == timeType:
		fi.kind = kindTime
		return nil
	case reflect.PointerTo(t).Implements(unmarshalerType):
		if !t.Implements(marshalerType) && !reflect.PointerTo(t).Implements(marshalerType) {
			return fmt.Errorf("%s implements ValueUnmarshaler but not ValueMarshaler: %w", t, ErrUnsupportedType)
		}
		fi.kind = kindCustom
		return nil
	case t.Kind() == reflect.Uint8 && t.Implements(enumType):
		fi.kind = kindEnum
		fi.codes = reflect.Zero(t).Interface().(Enumerated).ValidCodes()
		return nil
	case t == charType:
		fi.kind = kindChar
		return nil
	}

	if fi.width > 0 && (t.Kind() < reflect.Uint || t.Kind() > reflect.Uint64) {
		return fmt.Errorf("width applies to unsigned integers only: %w", ErrUnsupportedType)
	}

	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		fi.kind = kindUint
		fi.bits = t.Bits()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		fi.kind = kindInt
		fi.bits = t.Bits()
	case reflect.Float32, reflect.Float64:
		fi.kind = kindFloat
		fi.bits = t.Bits()
	case reflect.Bool:
		fi.kind = kindBool
	case reflect.String:
		fi.kind = kindString
	case reflect.Array:
		if t.Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("%s: %w", t, ErrUnsupportedType)
		}
		fi.kind = kindFixed
		fi.fixedLen = t.Len()
	case reflect.Slice:
		switch t.Elem().Kind() {
		case reflect.Uint8:
			fi.kind = kindBytes
		case reflect.Struct:
			if fi.ptr {
				return fmt.Errorf("pointer to group slice: %w", ErrUnsupportedType)
			}
			elem, err := compileStruct(t.Elem(), building)
			if err != nil {
				return err
			}
			fi.kind = kindGroup
			fi.group = elem
		default:
			return fmt.Errorf("%s: %w", t, ErrUnsupportedType)
		}
	default:
		return fmt.Errorf("%s: %w", t, ErrUnsupportedType)
	}
	return nil
}

// settable walks index from v, allocating nil component pointers.
func settable(v reflect.Value, index []int) reflect.Value {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v
}

// readable walks index from v. It reports false when a component pointer
// on the path is nil.
func readable(v reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}
