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
package fix

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/stephenlclarke/fixcodec/codec"
	"github.com/stephenlclarke/fixcodec/frame"
)

// Obfuscator replaces values of sensitive FIX tags with stable aliases.
// Frames are decoded with the codec and sealed again, so BodyLength and
// CheckSum match the rewritten body. It is safe for concurrent use.
type Obfuscator struct {
	enabled  bool              // global enable/disable flag
	tags     map[int]string    // tag -> name (provided by SensitiveTagNames)
	schema   codec.Schema      // length/data pairs, so binary values pass intact
	mu       sync.Mutex        // protects aliasMap and counter
	aliasMap map[string]string // "tag=value" -> alias
	counter  map[int]int       // per-tag, for zero-padded suffixes
}

// CreateObfuscator constructs an Obfuscator using the given tag map and
// StandardDataPairs. If enabled is false, Enabled returns lines unchanged.
func CreateObfuscator(tags map[int]string, enabled bool) *Obfuscator {
	cp := make(map[int]string, len(tags))
	maps.Copy(cp, tags)

	return &Obfuscator{
		enabled:  enabled,
		tags:     cp,
		schema:   StandardDataPairs,
		aliasMap: make(map[string]string),
		counter:  make(map[int]int),
	}
}

// Enabled returns the original line if obfuscation is disabled,
// otherwise the obfuscated version. First-use events go to stderr (if non-nil).
func (o *Obfuscator) Enabled(line string, stderr io.Writer) string {
	if o == nil || !o.enabled {
		return line
	}
	return o.ObfuscateLine(line, stderr)
}

// ObfuscateLine rewrites every frame found in line. Text around the frames
// is kept as is.
func (o *Obfuscator) ObfuscateLine(line string, stderr io.Writer) string {
	src := []byte(line)
	spans := frame.Find(src)
	if len(spans) == 0 {
		return line
	}

	out := make([]byte, 0, len(src)+16*len(spans))
	last := 0
	for _, s := range spans {
		out = append(out, src[last:s[0]]...)
		out = append(out, o.Obfuscate(src[s[0]:s[1]], stderr)...)
		last = s[1]
	}
	out = append(out, src[last:]...)
	return string(out)
}

// Obfuscate rewrites one frame. A frame that validates is sealed again;
// one that does not keeps its envelope values. Input that cannot be
// decoded at all is returned unchanged.
func (o *Obfuscator) Obfuscate(raw []byte, stderr io.Writer) []byte {
	f, err := frame.Split(raw)
	if err != nil {
		if out, ok := o.rewrite(raw, stderr); ok {
			return out
		}
		return raw
	}

	body, ok := o.rewrite(f.Body, stderr)
	if !ok {
		return raw
	}
	w := frame.Writer{BeginString: string(f.BeginString)}
	sealed, err := w.Seal(body)
	if err != nil {
		return raw
	}
	return sealed
}

func (o *Obfuscator) rewrite(msg []byte, stderr io.Writer) ([]byte, bool) {
	nodes, err := codec.NewDecoder(msg, o.schema).DecodeNodes(nil)
	if err != nil {
		return nil, false
	}

	b := codec.GetBuffer()
	defer codec.PutBuffer(b)
	e := codec.NewEncoder(b, o.schema)

	for _, n := range nodes {
		value := n.Value
		if tag, err := codec.ParseTagNumber(n.Tag); err == nil {
			if name, sensitive := o.tags[int(tag)]; sensitive {
				value = []byte(o.alias(int(tag), name, n.Value, stderr))
			}
		}
		// values are copied raw: DATA values may hold SOH
		e.WriteTag(n.Tag)
		e.WriteEq()
		b.Write(value)
		e.WriteSOH()
	}
	return bytes.Clone(b.Body()), true
}

func (o *Obfuscator) alias(tag int, name string, value []byte, stderr io.Writer) string {
	key := fmt.Sprintf("%d=%s", tag, value)

	o.mu.Lock()
	defer o.mu.Unlock()

	alias, exists := o.aliasMap[key]
	if !exists {
		o.counter[tag]++
		alias = fmt.Sprintf("%s%04d", name, o.counter[tag])
		o.aliasMap[key] = alias

		if stderr != nil {
			fmt.Fprintf(stderr, "first use: tag %d (%s) value [%s] → [%s]\n", tag, name, value, alias)
		}
	}
	return alias
}
