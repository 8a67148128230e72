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
)

// Layout supplies the declared member tags of repeating groups, keyed by
// the NumInGroup tag, for decoding without Go types.
type Layout interface {
	GroupMembers(countTag []byte) (members [][]byte, ok bool)
}

// GroupLayout is a map backed Layout.
type GroupLayout map[string][][]byte

// GroupMembers implements Layout.
func (g GroupLayout) GroupMembers(countTag []byte) ([][]byte, bool) {
	m, ok := g[string(countTag)]
	return m, ok
}

// Node is one decoded field. Tag and Value alias the input. The count
// field of a repeating group carries its instances.
type Node struct {
	Tag       []byte
	Value     []byte
	Instances [][]Node
}

// IsGroup reports whether n is a group count field.
func (n Node) IsGroup() bool {
	return n.Instances != nil
}

// DecodeNodes decodes every remaining field. Length/data pairs come from
// the Schema; groups from layout, which may be nil.
func (d *Decoder) DecodeNodes(layout Layout) ([]Node, error) {
	var nodes []Node
	var err error

	for !d.r.IsEnd() {
		nodes, err = d.appendNode(nodes, layout)
		if err != nil {
			return nodes, err
		}
	}
	return nodes, nil
}

func (d *Decoder) appendNode(dst []Node, layout Layout) ([]Node, error) {
	at := d.r.Pos()
	tag, ok := d.r.ParseTag()
	if !ok {
		return dst, newDecodeError(at, "expected tag", ErrUnexpectedEOF)
	}
	if _, err := ParseTagNumber(tag); err != nil {
		return dst, newDecodeError(at, fmt.Sprintf("bad tag %q", tag), err)
	}

	if d.schema != nil {
		if dataTag, ok := d.schema.DataTag(tag); ok {
			return d.appendDataNodes(dst, tag, dataTag)
		}
	}

	if layout != nil {
		if members, ok := layout.GroupMembers(tag); ok {
			return d.appendGroupNode(dst, tag, members, layout)
		}
	}

	value, err := d.r.ParseValue()
	if err != nil {
		return dst, withField(err, tag, "")
	}
	return append(dst, Node{Tag: tag, Value: value}), nil
}

func (d *Decoder) appendDataNodes(dst []Node, lengthTag, dataTag []byte) ([]Node, error) {
	at := d.r.Pos()
	lv, err := d.r.ParseValue()
	if err != nil {
		return dst, withField(err, lengthTag, "")
	}
	n, err := ParseUint(lv, 31)
	if err != nil {
		return dst, &DecodeError{Tag: string(lengthTag), Offset: at, Message: fmt.Sprintf("bad length %q", lv), Cause: err}
	}

	at = d.r.Pos()
	tag, ok := d.r.ParseTag()
	if !ok || !bytes.Equal(tag, dataTag) {
		return dst, &DecodeError{Tag: string(lengthTag), Offset: at, Message: fmt.Sprintf("expected tag %s, found %q", dataTag, tag), Cause: ErrDataTagMismatch}
	}

	data, err := d.r.ParseValueWithLength(int(n))
	if err != nil {
		return dst, withField(err, dataTag, "")
	}

	return append(dst, Node{Tag: lengthTag, Value: lv}, Node{Tag: tag, Value: data}), nil
}

func (d *Decoder) appendGroupNode(dst []Node, countTag []byte, members [][]byte, layout Layout) ([]Node, error) {
	count, value, err := d.groupCount()
	if err != nil {
		return dst, withField(err, countTag, "")
	}
	if err := d.enterGroup(); err != nil {
		return dst, err
	}
	defer func() { d.depth-- }()

	node := Node{Tag: countTag, Value: value, Instances: make([][]Node, 0, min(count, 64))}
	scan := NewGroupScanner(members)

	for i := 0; i < count; i++ {
		scan.Reset()
		var inst []Node

		for {
			tag, ok := d.r.PeekTag()
			if !ok {
				break
			}
			if step, _ := scan.Match(tag); step != StepContinue {
				break
			}
			inst, err = d.appendNode(inst, layout)
			if err != nil {
				return dst, err
			}
		}

		if len(inst) == 0 {
			return dst, &DecodeError{
				Tag:     string(countTag),
				Offset:  d.r.Pos(),
				Message: fmt.Sprintf("group declares %d instances, found %d", count, i),
				Cause:   ErrGroupCount,
			}
		}
		node.Instances = append(node.Instances, inst)
	}

	return append(dst, node), nil
}

// Flatten lists nodes depth first with group instances inlined after
// their count field.
func Flatten(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			out = append(out, Node{Tag: n.Tag, Value: n.Value})
			for _, inst := range n.Instances {
				walk(inst)
			}
		}
	}
	walk(nodes)
	return out
}
