package decoder

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/stephenlclarke/fixcodec/codec"
	"github.com/stephenlclarke/fixcodec/fix"
)

const msgTypeTag = 35

// Field returns the definition of tag.
func (d *Dictionary) Field(tag int) (*FieldDef, bool) {
	f, ok := d.fields[tag]
	return f, ok
}

// FieldByName returns the definition named name.
func (d *Dictionary) FieldByName(name string) (*FieldDef, bool) {
	f, ok := d.byName[name]
	return f, ok
}

// SortedFields lists every field by tag number.
func (d *Dictionary) SortedFields() []*FieldDef {
	out := make([]*FieldDef, 0, len(d.fields))
	for _, f := range d.fields {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b *FieldDef) int { return a.Tag - b.Tag })
	return out
}

func (d *Dictionary) GetFieldName(tag int) string {
	if f, ok := d.fields[tag]; ok {
		return f.Name
	}
	return strconv.Itoa(tag)
}

// GetEnumDescription returns the description of val for tag, or "". For
// MsgType the message names of the dictionary are used.
func (d *Dictionary) GetEnumDescription(tag int, val string) string {
	if tag == msgTypeTag {
		if m, ok := d.Messages[val]; ok {
			return m.Name
		}
	}
	if f, ok := d.fields[tag]; ok {
		return f.enums[val]
	}
	return ""
}

func (d *Dictionary) GetFieldType(tag int) string {
	if f, ok := d.fields[tag]; ok {
		return f.Type
	}
	return ""
}

func (d *Dictionary) IsGroupCountField(tag int) bool {
	_, ok := d.groups[strconv.Itoa(tag)]
	return ok
}

func (f *FieldDef) validEnum(val string) bool {
	if f.enums == nil {
		return true
	}
	_, ok := f.enums[val]
	return ok
}

var (
	dicts   = make(map[string]*Dictionary) // version -> dictionary
	dictMux sync.RWMutex                   // guards the map
)

// ApplVerID(1128) values of the embedded versions, for FIXT.1.1 frames.
var applVerIDs = map[string]string{
	"4": "42",
	"6": "44",
}

// EmbeddedDictionary returns the parsed embedded dictionary for version
// ("42", "44"; anything else gives FIX 4.4). Results are cached.
func EmbeddedDictionary(version string) (*Dictionary, error) {
	// Fast path: read lock
	dictMux.RLock()
	d, ok := dicts[version]
	dictMux.RUnlock()
	if ok {
		return d, nil
	}

	// Parse without holding the lock
	parsed, err := ParseDictionary(fix.ChooseEmbeddedXML(version))
	if err != nil {
		return nil, fmt.Errorf("embedded FIX%s dictionary: %w", version, err)
	}

	dictMux.Lock()
	defer dictMux.Unlock()
	if d, ok := dicts[version]; ok {
		return d, nil
	}
	dicts[version] = parsed
	return parsed, nil
}

// DictionaryForMessage picks the embedded dictionary matching the
// BeginString of msg, falling back to FIX 4.4.
func DictionaryForMessage(msg []byte) *Dictionary {
	d, err := EmbeddedDictionary(detectVersion(msg))
	if err != nil {
		d, _ = EmbeddedDictionary(fix.DefaultFixVersion)
	}
	return d
}

// detectVersion reads BeginString, and ApplVerID on FIXT frames.
func detectVersion(msg []byte) string {
	r := codec.NewReader(msg)
	tag, ok := r.ParseTag()
	if !ok || !bytes.Equal(tag, []byte("8")) {
		return fix.DefaultFixVersion
	}
	begin := r.ScanValue()

	if string(begin) != "FIXT.1.1" {
		v, _ := fix.VersionOf(string(begin))
		return v
	}

	for !r.IsEnd() {
		tag, ok := r.ParseTag()
		if !ok {
			break
		}
		v := r.ScanValue()
		if bytes.Equal(tag, []byte("1128")) {
			if version, ok := applVerIDs[string(v)]; ok {
				return version
			}
			break
		}
	}
	return fix.DefaultFixVersion
}
