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
	"bytes"
	"fmt"
	"reflect"
	"strings"
)

// Decoder decodes structs from a FIX byte stream in a single forward pass.
// A Decoder is not safe for concurrent use; the Schema it holds may be
// shared.
//
// Decode leaves unconsumed input in place so a frame can be decoded in
// stages, for example header first and then the body chosen by MsgType.
// Call End once the whole message has been consumed.
type Decoder struct {
	r      *Reader
	schema Schema
	opts   Options
	depth  int
}

// NewDecoder creates a Decoder with DefaultOptions.
func NewDecoder(data []byte, schema Schema) *Decoder {
	return NewDecoderWithOptions(data, schema, DefaultOptions)
}

// NewDecoderWithOptions creates a Decoder with the given options.
func NewDecoderWithOptions(data []byte, schema Schema, opts Options) *Decoder {
	return &Decoder{r: NewReader(data), schema: schema, opts: opts}
}

// Reader exposes the underlying cursor.
func (d *Decoder) Reader() *Reader {
	return d.r
}

// Schema returns the schema in use.
func (d *Decoder) Schema() Schema {
	return d.schema
}

// Unmarshal decodes data into v and requires that nothing is left over.
func Unmarshal(data []byte, v any, schema Schema) error {
	d := NewDecoder(data, schema)
	if err := d.Decode(v); err != nil {
		return err
	}
	return d.End()
}

// End returns ErrTrailingBytes if input remains.
func (d *Decoder) End() error {
	if d.r.IsEnd() {
		return nil
	}
	return newDecodeError(d.r.Pos(), fmt.Sprintf("%d bytes left", len(d.r.Remaining())), ErrTrailingBytes)
}

// Decode fills the struct pointed to by v with the members found at the
// cursor. It stops, without consuming, at the first tag that is not a
// member or that repeats a member already decoded.
func (d *Decoder) Decode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}

	si, err := structInfoOf(rv.Elem().Type())
	if err != nil {
		return err
	}

	_, err = d.decodeStruct(si, rv.Elem(), nil)
	return err
}

// decodeStruct runs the member scan for one struct value. With a scanner
// the struct is a group instance and member order decides where it ends;
// without one, members may come in any order and a repeat ends it.
func (d *Decoder) decodeStruct(si *structInfo, v reflect.Value, scan *GroupScanner) (int, error) {
	var stack [64]bool
	var seen []bool
	if len(si.fields) <= len(stack) {
		seen = stack[:len(si.fields)]
	} else {
		seen = make([]bool, len(si.fields))
	}

	matched := 0
	for {
		tag, ok := d.r.PeekTag()
		if !ok {
			break
		}

		idx := si.lookup(tag)
		if idx < 0 {
			break
		}
		if scan != nil {
			if step := scan.Advance(idx); step != StepContinue {
				d.opts.Logger.Trace().Bytes("tag", tag).Str("step", step.String()).Int("offset", d.r.Pos()).Msg("group instance boundary")
				break
			}
		} else if seen[idx] {
			break
		}

		seen[idx] = true
		f := &si.fields[idx]
		d.r.ParseTag()

		if err := d.decodeField(f, v); err != nil {
			return matched, withField(err, f.tag, f.name)
		}
		matched++
	}

	// an instance with no members is reported by the group as a count
	// mismatch rather than as missing fields
	if scan != nil && matched == 0 {
		return 0, nil
	}

	for i := range si.fields {
		if !seen[i] && si.fields[i].required() {
			f := &si.fields[i]
			return matched, &DecodeError{
				Tag:     string(f.tag),
				Field:   f.name,
				Offset:  d.r.Pos(),
				Message: "required field missing",
				Cause:   ErrRequiredFieldMissing,
			}
		}
	}
	return matched, nil
}

func (d *Decoder) decodeField(f *fieldInfo, root reflect.Value) error {
	fv := settable(root, f.index)
	if f.ptr {
		fv.Set(reflect.New(f.typ))
		fv = fv.Elem()
	}

	switch f.kind {
	case kindGroup:
		return d.decodeGroup(f, fv)
	case kindData:
		return d.decodeData(f, fv)
	}

	at := d.r.Pos()
	b, err := d.r.ParseValue()
	if err != nil {
		return err
	}
	if err := setScalar(f, fv, b); err != nil {
		return newDecodeError(at, fmt.Sprintf("bad value %q", b), err)
	}
	return nil
}

func setScalar(f *fieldInfo, fv reflect.Value, b []byte) error {
	switch f.kind {
	case kindUint:
		u, err := ParseUint(b, f.bits)
		if err != nil {
			return err
		}
		fv.SetUint(u)
	case kindInt:
		i, err := ParseInt(b, f.bits)
		if err != nil {
			return err
		}
		fv.SetInt(i)
	case kindFloat:
		x, err := ParseFloat(b, f.bits)
		if err != nil {
			return err
		}
		fv.SetFloat(x)
	case kindBool:
		x, err := ParseBool(b)
		if err != nil {
			return err
		}
		fv.SetBool(x)
	case kindChar:
		c, err := ParseChar(b)
		if err != nil {
			return err
		}
		fv.SetUint(uint64(c))
	case kindEnum:
		if len(b) != 1 || strings.IndexByte(f.codes, b[0]) < 0 {
			return ErrInvalidEnum
		}
		fv.SetUint(uint64(b[0]))
	case kindString:
		fv.SetString(string(b))
	case kindBytes:
		fv.SetBytes(b)
	case kindASCII:
		a, err := NewASCII(b)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(a))
	case kindFixed:
		if _, err := ParseFixed(b, f.fixedLen); err != nil {
			return err
		}
		reflect.Copy(fv, reflect.ValueOf(b))
	case kindTime:
		t, err := ParseTimestamp(b)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(t))
	case kindCustom:
		return fv.Addr().Interface().(ValueUnmarshaler).UnmarshalFIXValue(b)
	default:
		return ErrUnsupportedType
	}
	return nil
}

func (d *Decoder) decodeData(f *fieldInfo, fv reflect.Value) error {
	var dataTag []byte
	ok := false
	if d.schema != nil {
		dataTag, ok = d.schema.DataTag(f.tag)
	}
	if !ok {
		return newDecodeError(d.r.Pos(), "no data tag for length tag", ErrUnpairedLength)
	}

	at := d.r.Pos()
	b, err := d.r.ParseValue()
	if err != nil {
		return err
	}
	n, err := ParseUint(b, 31)
	if err != nil {
		return newDecodeError(at, fmt.Sprintf("bad length %q", b), err)
	}

	at = d.r.Pos()
	tag, ok := d.r.ParseTag()
	if !ok || !bytes.Equal(tag, dataTag) {
		return newDecodeError(at, fmt.Sprintf("expected tag %s, found %q", dataTag, tag), ErrDataTagMismatch)
	}

	v, err := d.r.ParseValueWithLength(int(n))
	if err != nil {
		return err
	}
	fv.SetBytes(v)
	return nil
}

func (d *Decoder) enterGroup() error {
	if lim := d.opts.Limits.MaxDepth; lim > 0 && d.depth >= lim {
		return newDecodeError(d.r.Pos(), "group nesting too deep", ErrMaxDepthExceeded)
	}
	d.depth++
	return nil
}

func (d *Decoder) groupCount() (int, []byte, error) {
	at := d.r.Pos()
	b, err := d.r.ParseValue()
	if err != nil {
		return 0, nil, err
	}
	n, err := ParseUint(b, 31)
	if err != nil {
		return 0, nil, newDecodeError(at, fmt.Sprintf("bad group count %q", b), err)
	}
	if lim := d.opts.Limits.MaxGroupInstances; lim > 0 && n > uint64(lim) {
		return 0, nil, newDecodeError(at, fmt.Sprintf("group count %d over limit %d", n, lim), ErrMaxGroupInstances)
	}
	return int(n), b, nil
}

// decodeGroup reads the instance count and then exactly that many
// instances, each scanned with a fresh position.
func (d *Decoder) decodeGroup(f *fieldInfo, fv reflect.Value) error {
	count, _, err := d.groupCount()
	if err != nil {
		return err
	}
	if err := d.enterGroup(); err != nil {
		return err
	}
	defer func() { d.depth-- }()

	slice := reflect.MakeSlice(f.typ, 0, min(count, 64))
	elemType := f.typ.Elem()
	scan := GroupScanner{last: -1}

	for i := 0; i < count; i++ {
		scan.Reset()
		elem := reflect.New(elemType).Elem()

		n, err := d.decodeStruct(f.group, elem, &scan)
		if err != nil {
			return err
		}
		if n == 0 {
			return newDecodeError(d.r.Pos(), fmt.Sprintf("group declares %d instances, found %d", count, i), ErrGroupCount)
		}

		slice = reflect.Append(slice, elem)
		d.opts.Logger.Trace().Bytes("tag", f.tag).Int("instance", i).Int("fields", n).Msg("group instance decoded")
	}

	fv.Set(slice)
	return nil
}
