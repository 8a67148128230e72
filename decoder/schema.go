package decoder

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stephenlclarke/fixcodec/codec"
	"golang.org/x/net/html/charset"
)

// FixDictionary is the QuickFIX style XML data dictionary. Members keep
// their declared order, which decides where group instances end.
type FixDictionary struct {
	XMLName     xml.Name  `xml:"fix"`
	Type        string    `xml:"type,attr"`
	Major       string    `xml:"major,attr"`
	Minor       string    `xml:"minor,attr"`
	ServicePack string    `xml:"servicepack,attr"`
	Header      Block     `xml:"header"`
	Trailer     Block     `xml:"trailer"`
	Messages    []Message `xml:"messages>message"`
	Components  []Block   `xml:"components>component"`
	Fields      []Field   `xml:"fields>field"`
}

type Field struct {
	Name   string  `xml:"name,attr"`
	Number int     `xml:"number,attr"`
	Type   string  `xml:"type,attr"`
	Values []Value `xml:"value"`
}

type Value struct {
	Enum        string `xml:"enum,attr"`
	Description string `xml:"description,attr"`
}

// Member is a <field>, <group> or <component> reference.
type Member struct {
	XMLName  xml.Name
	Name     string   `xml:"name,attr"`
	Required string   `xml:"required,attr"`
	Members  []Member `xml:",any"`
}

// Block is a header, trailer or component body.
type Block struct {
	Name    string   `xml:"name,attr"`
	Members []Member `xml:",any"`
}

type Message struct {
	Name    string   `xml:"name,attr"`
	MsgType string   `xml:"msgtype,attr"`
	MsgCat  string   `xml:"msgcat,attr"`
	Members []Member `xml:",any"`
}

// ParseXML decodes dictionary XML, honouring a declared charset.
func ParseXML(r io.Reader) (FixDictionary, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var raw FixDictionary
	if err := dec.Decode(&raw); err != nil {
		return FixDictionary{}, err
	}
	return raw, nil
}

// MemberDef is a resolved member. Components are inlined, so a message's
// members are exactly what may appear on the wire at that level.
type MemberDef struct {
	Field    *FieldDef
	Required bool
	Group    *GroupDef
}

type GroupDef struct {
	Count    *FieldDef
	Required bool
	Members  []MemberDef
}

type FieldDef struct {
	Tag    int
	Name   string
	Type   string
	Values []Value
	enums  map[string]string
}

type MessageDef struct {
	Name    string
	MsgType string
	MsgCat  string
	Members []MemberDef
}

// Dictionary is a resolved FixDictionary. It is a codec.Schema (length
// and data pairs) and a codec.Layout (group members), and is read only
// once built.
type Dictionary struct {
	Version     string
	ServicePack string

	Header     []MemberDef
	Trailer    []MemberDef
	Messages   map[string]*MessageDef // by MsgType
	Components map[string][]MemberDef

	fields map[int]*FieldDef
	byName map[string]*FieldDef
	groups codec.GroupLayout
	pairs  *codec.DataPairs
}

// LoadDictionary parses XML and resolves it.
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	raw, err := ParseXML(r)
	if err != nil {
		return nil, err
	}
	return BuildDictionary(raw)
}

// ParseDictionary is LoadDictionary over a string.
func ParseDictionary(xmlData string) (*Dictionary, error) {
	return LoadDictionary(strings.NewReader(xmlData))
}

// BuildDictionary resolves names to fields and inlines components.
func BuildDictionary(raw FixDictionary) (*Dictionary, error) {
	d := &Dictionary{
		Version:     raw.Major + "." + raw.Minor,
		ServicePack: raw.ServicePack,
		Messages:    make(map[string]*MessageDef, len(raw.Messages)),
		Components:  make(map[string][]MemberDef, len(raw.Components)),
		fields:      make(map[int]*FieldDef, len(raw.Fields)),
		byName:      make(map[string]*FieldDef, len(raw.Fields)),
		groups:      make(codec.GroupLayout),
	}
	if raw.Type == "FIXT" {
		d.Version = "T" + d.Version
	}
	if d.ServicePack == "" {
		d.ServicePack = "n/a"
	}

	for _, f := range raw.Fields {
		if _, dup := d.fields[f.Number]; dup {
			continue
		}
		fd := &FieldDef{Tag: f.Number, Name: f.Name, Type: strings.ToUpper(f.Type), Values: f.Values}
		if len(f.Values) > 0 {
			fd.enums = make(map[string]string, len(f.Values))
			for _, v := range f.Values {
				fd.enums[v.Enum] = v.Description
			}
		}
		d.fields[f.Number] = fd
		d.byName[f.Name] = fd
	}

	b := builder{d: d, components: make(map[string]Block, len(raw.Components)), active: make(map[string]bool)}
	for _, c := range raw.Components {
		b.components[c.Name] = c
	}

	var err error
	if d.Header, err = b.members(raw.Header.Members); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if d.Trailer, err = b.members(raw.Trailer.Members); err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	for _, c := range raw.Components {
		members, err := b.members(c.Members)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", c.Name, err)
		}
		d.Components[c.Name] = members
	}
	for _, m := range raw.Messages {
		members, err := b.members(m.Members)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.Name, err)
		}
		d.Messages[m.MsgType] = &MessageDef{Name: m.Name, MsgType: m.MsgType, MsgCat: m.MsgCat, Members: members}
	}

	d.pairs = codec.DataPairsOf(DataFieldPairs(raw.Fields))
	return d, nil
}

type builder struct {
	d          *Dictionary
	components map[string]Block
	active     map[string]bool
}

func (b *builder) members(refs []Member) ([]MemberDef, error) {
	var out []MemberDef

	for _, ref := range refs {
		switch ref.XMLName.Local {
		case "field":
			f, ok := b.d.byName[ref.Name]
			if !ok {
				return nil, fmt.Errorf("unknown field %q", ref.Name)
			}
			out = append(out, MemberDef{Field: f, Required: ref.Required == "Y"})

		case "group":
			count, ok := b.d.byName[ref.Name]
			if !ok {
				return nil, fmt.Errorf("group %q has no count field", ref.Name)
			}
			members, err := b.members(ref.Members)
			if err != nil {
				return nil, fmt.Errorf("group %s: %w", ref.Name, err)
			}
			g := &GroupDef{Count: count, Required: ref.Required == "Y", Members: members}
			b.d.addGroup(g)
			out = append(out, MemberDef{Field: count, Required: g.Required, Group: g})

		case "component":
			c, ok := b.components[ref.Name]
			if !ok {
				return nil, fmt.Errorf("unknown component %q", ref.Name)
			}
			if b.active[ref.Name] {
				return nil, fmt.Errorf("component %q includes itself", ref.Name)
			}
			b.active[ref.Name] = true
			members, err := b.members(c.Members)
			delete(b.active, ref.Name)
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", ref.Name, err)
			}
			if ref.Required != "Y" {
				for i := range members {
					members[i].Required = false
				}
			}
			out = append(out, members...)
		}
	}
	return out, nil
}

// addGroup records the member tags of g. A count tag declared in several
// places keeps its first layout.
func (d *Dictionary) addGroup(g *GroupDef) {
	key := strconv.Itoa(g.Count.Tag)
	if _, ok := d.groups[key]; ok {
		return
	}
	tags := make([][]byte, len(g.Members))
	for i, m := range g.Members {
		tags[i] = []byte(strconv.Itoa(m.Field.Tag))
	}
	d.groups[key] = tags
}

// DataFieldPairs pairs each LENGTH field with the DATA field it announces:
// by name (EncodedTextLen -> EncodedText, SignatureLength -> Signature),
// otherwise the next tag number when that is a DATA field.
func DataFieldPairs(fields []Field) map[uint32]uint32 {
	byName := make(map[string]Field, len(fields))
	byTag := make(map[int]Field, len(fields))
	for _, f := range fields {
		if _, dup := byTag[f.Number]; dup {
			continue
		}
		byName[f.Name] = f
		byTag[f.Number] = f
	}

	pairs := make(map[uint32]uint32)
	for _, f := range byTag {
		if !strings.EqualFold(f.Type, "LENGTH") {
			continue
		}
		var data Field
		var found bool
		for _, suffix := range []string{"Length", "Len"} {
			if base, ok := strings.CutSuffix(f.Name, suffix); ok {
				if df, ok := byName[base]; ok && strings.EqualFold(df.Type, "DATA") {
					data, found = df, true
					break
				}
			}
		}
		if !found {
			if df, ok := byTag[f.Number+1]; ok && strings.EqualFold(df.Type, "DATA") {
				data, found = df, true
			}
		}
		if found {
			pairs[uint32(f.Number)] = uint32(data.Number)
		}
	}
	return pairs
}

// DataTag implements codec.Schema.
func (d *Dictionary) DataTag(lengthTag []byte) ([]byte, bool) {
	return d.pairs.DataTag(lengthTag)
}

// GroupMembers implements codec.Layout.
func (d *Dictionary) GroupMembers(countTag []byte) ([][]byte, bool) {
	return d.groups.GroupMembers(countTag)
}

// IsDataField reports whether tag is the DATA side of a pair.
func (d *Dictionary) IsDataField(tag []byte) bool {
	return d.pairs.IsDataTag(tag)
}

// MessageByName finds a message by name or MsgType.
func (d *Dictionary) MessageByName(name string) (*MessageDef, bool) {
	if m, ok := d.Messages[name]; ok {
		return m, true
	}
	for _, m := range d.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// isHeaderTag reports whether tag belongs to the header or trailer.
func (d *Dictionary) isHeaderTag(tag int) bool {
	for _, block := range [][]MemberDef{d.Header, d.Trailer} {
		for _, m := range block {
			if m.Field.Tag == tag {
				return true
			}
		}
	}
	return false
}

var _ codec.Schema = (*Dictionary)(nil)
var _ codec.Layout = (*Dictionary)(nil)
