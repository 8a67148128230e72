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
	"slices"
	"sync"
)

// Schema resolves the DATA tag paired with a LENGTH tag. Implementations
// must be safe for concurrent reads.
type Schema interface {
	DataTag(lengthTag []byte) (dataTag []byte, ok bool)
}

// DataPair links a LENGTH tag to its DATA tag.
type DataPair struct {
	Length []byte
	Data   []byte
}

// DataPairs is a Schema backed by a table sorted on the LENGTH tag bytes.
// It is immutable once built.
type DataPairs struct {
	pairs []DataPair
}

// NewDataPairs copies and sorts pairs. Later duplicates of a length tag
// are dropped.
func NewDataPairs(pairs ...DataPair) *DataPairs {
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b DataPair) int {
		return bytes.Compare(a.Length, b.Length)
	})
	sorted = slices.CompactFunc(sorted, func(a, b DataPair) bool {
		return bytes.Equal(a.Length, b.Length)
	})
	return &DataPairs{pairs: sorted}
}

// DataPairsOf builds a table from numeric tag pairs.
func DataPairsOf(pairs map[uint32]uint32) *DataPairs {
	list := make([]DataPair, 0, len(pairs))
	for l, d := range pairs {
		list = append(list, DataPair{Length: AppendUint(nil, uint64(l)), Data: AppendUint(nil, uint64(d))})
	}
	return NewDataPairs(list...)
}

// DataTag implements Schema with a binary search.
func (p *DataPairs) DataTag(lengthTag []byte) ([]byte, bool) {
	if p == nil {
		return nil, false
	}
	i, found := slices.BinarySearchFunc(p.pairs, lengthTag, func(e DataPair, t []byte) int {
		return bytes.Compare(e.Length, t)
	})
	if !found {
		return nil, false
	}
	return p.pairs[i].Data, true
}

// Len returns the number of pairs.
func (p *DataPairs) Len() int {
	if p == nil {
		return 0
	}
	return len(p.pairs)
}

// Pairs returns the sorted table. Callers must not modify it.
func (p *DataPairs) Pairs() []DataPair {
	if p == nil {
		return nil
	}
	return p.pairs
}

// IsDataTag reports whether tag is the DATA side of some pair.
func (p *DataPairs) IsDataTag(tag []byte) bool {
	if p == nil {
		return false
	}
	for _, e := range p.pairs {
		if bytes.Equal(e.Data, tag) {
			return true
		}
	}
	return false
}

// Registry maps MsgType values to message struct types for dispatch after
// the header has been decoded.
type Registry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
	names map[reflect.Type]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]reflect.Type), names: make(map[reflect.Type]string)}
}

// Register associates msgType with the struct type of prototype.
func (r *Registry) Register(msgType string, prototype any) error {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("register %q: %w", msgType, ErrUnsupportedType)
	}
	if _, err := structInfoOf(t); err != nil {
		return fmt.Errorf("register %q: %w", msgType, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[msgType]; exists {
		return fmt.Errorf("register %q: %w", msgType, ErrDuplicateMessageType)
	}
	r.types[msgType] = t
	if _, exists := r.names[t]; !exists {
		r.names[t] = msgType
	}
	return nil
}

// MustRegister panics if Register fails.
func (r *Registry) MustRegister(msgType string, prototype any) {
	if err := r.Register(msgType, prototype); err != nil {
		panic(err)
	}
}

// New returns a pointer to a fresh zero message for msgType.
func (r *Registry) New(msgType []byte) (any, error) {
	r.mu.RLock()
	t, ok := r.types[string(msgType)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("msgtype %q: %w", msgType, ErrUnknownMessageType)
	}
	return reflect.New(t).Interface(), nil
}

// MsgTypeOf returns the MsgType registered for the struct type of v, which
// may be a value or a pointer.
func (r *Registry) MsgTypeOf(v any) (string, bool) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.names[t]
	return name, ok
}

// MsgTypes returns the registered message types, sorted.
func (r *Registry) MsgTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.types))
	for k := range r.types {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
