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
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Encoder appends tag=value<SOH> fields to a Buffer. Low level writers
// emit exactly the bytes asked for; the caller is responsible for field
// order. Encode drives the same writers from struct tags.
//
// An Encoder is not safe for concurrent use.
type Encoder struct {
	b       *Buffer
	schema  Schema
	opts    Options
	lastTag []byte
	depth   int
}

// NewEncoder creates an Encoder over b with DefaultOptions.
func NewEncoder(b *Buffer, schema Schema) *Encoder {
	return NewEncoderWithOptions(b, schema, DefaultOptions)
}

// NewEncoderWithOptions creates an Encoder with the given options.
func NewEncoderWithOptions(b *Buffer, schema Schema, opts Options) *Encoder {
	if b == nil {
		b = NewBuffer(DefaultHeaderMargin, 256)
	}
	return &Encoder{b: b, schema: schema, opts: opts, lastTag: make([]byte, 0, 10)}
}

// Buffer returns the underlying buffer.
func (e *Encoder) Buffer() *Buffer {
	return e.b
}

// Bytes is shorthand for Buffer().Bytes().
func (e *Encoder) Bytes() []byte {
	return e.b.Bytes()
}

// LastTag returns the most recently written tag.
func (e *Encoder) LastTag() []byte {
	return e.lastTag
}

// WriteTag appends tag and remembers it for StartSequence.
func (e *Encoder) WriteTag(tag []byte) {
	e.b.buf = append(e.b.buf, tag...)
	e.lastTag = append(e.lastTag[:0], tag...)
}

// WriteTagNumber appends tag in decimal.
func (e *Encoder) WriteTagNumber(tag uint32) {
	at := len(e.b.buf)
	e.b.buf = AppendUint(e.b.buf, uint64(tag))
	e.lastTag = append(e.lastTag[:0], e.b.buf[at:]...)
}

// WriteEq appends '='.
func (e *Encoder) WriteEq() {
	e.b.buf = append(e.b.buf, '=')
}

// WriteSOH appends the field delimiter.
func (e *Encoder) WriteSOH() {
	e.b.buf = append(e.b.buf, SOH)
}

// WriteUint appends v in decimal.
func (e *Encoder) WriteUint(v uint64) {
	e.b.buf = AppendUint(e.b.buf, v)
}

// WriteInt appends v in decimal.
func (e *Encoder) WriteInt(v int64) {
	e.b.buf = AppendInt(e.b.buf, v)
}

// WriteBool appends 'Y' or 'N'.
func (e *Encoder) WriteBool(v bool) {
	e.b.buf = AppendBool(e.b.buf, v)
}

// WriteFloat appends the shortest decimal that round-trips at bitSize.
func (e *Encoder) WriteFloat(v float64, bitSize int) error {
	out, err := AppendFloat(e.b.buf, v, bitSize)
	if err != nil {
		return err
	}
	e.b.buf = out
	return nil
}

// WriteFixedUint appends v zero padded to width digits.
func (e *Encoder) WriteFixedUint(v uint64, width int) error {
	out, err := AppendFixedUint(e.b.buf, v, width)
	if err != nil {
		return err
	}
	e.b.buf = out
	return nil
}

// WriteChar appends one printable character.
func (e *Encoder) WriteChar(c byte) error {
	if !isPrintable(c) {
		return ErrInvalidChar
	}
	e.b.buf = append(e.b.buf, c)
	return nil
}

// WriteString appends s, which must be non-empty and free of SOH.
func (e *Encoder) WriteString(s string) error {
	if err := checkText(len(s), strings.IndexByte(s, SOH)); err != nil {
		return err
	}
	e.b.buf = append(e.b.buf, s...)
	return nil
}

// WriteBytes appends p, which must be non-empty and free of SOH. Use a
// sequence for raw data.
func (e *Encoder) WriteBytes(p []byte) error {
	if err := checkText(len(p), bytes.IndexByte(p, SOH)); err != nil {
		return err
	}
	e.b.buf = append(e.b.buf, p...)
	return nil
}

func checkText(n, soh int) error {
	if n == 0 {
		return ErrEmptyValue
	}
	if soh >= 0 {
		return ErrValueContainsSOH
	}
	return nil
}

// WriteField appends a complete tag=value<SOH> field. Nothing is written
// if value is rejected.
func (e *Encoder) WriteField(tag, value []byte) error {
	if err := checkText(len(value), bytes.IndexByte(value, SOH)); err != nil {
		return newEncodeError("", "", tag, err)
	}
	e.WriteTag(tag)
	e.WriteEq()
	e.b.buf = append(e.b.buf, value...)
	e.WriteSOH()
	return nil
}

// Sequence is an open repeating group or length/data pair. The count or
// length has already been written; End checks that exactly that many
// elements or bytes followed.
type Sequence struct {
	e       *Encoder
	n       int
	data    bool
	dataTag []byte
	start   int
	count   int
	ended   bool
}

// StartSequence writes n as the value of the tag just written and opens
// a sequence. When the Schema pairs that tag with a DATA tag, the data
// tag and '=' follow immediately and the sequence takes n raw bytes
// through Write. Otherwise it takes n group instances through Element.
func (e *Encoder) StartSequence(n int) (*Sequence, error) {
	if n < 0 {
		return nil, newEncodeError("", "", e.lastTag, ErrSequenceLength)
	}

	var dataTag []byte
	ok := false
	if e.schema != nil {
		dataTag, ok = e.schema.DataTag(e.lastTag)
	}

	e.WriteUint(uint64(n))
	e.WriteSOH()

	s := &Sequence{e: e, n: n, data: ok, dataTag: dataTag}
	if ok {
		e.WriteTag(dataTag)
		e.WriteEq()
		s.start = len(e.b.buf)
		return s, nil
	}

	if err := e.enterGroup(); err != nil {
		return nil, err
	}
	return s, nil
}

// IsData reports whether s is a length/data pair.
func (s *Sequence) IsData() bool {
	return s.data
}

// Len returns the declared length.
func (s *Sequence) Len() int {
	return s.n
}

// Write appends raw bytes to a length/data pair. SOH is allowed.
func (s *Sequence) Write(p []byte) (int, error) {
	if !s.data || s.ended {
		return 0, ErrSequenceLength
	}
	if len(s.e.b.buf)-s.start+len(p) > s.n {
		return 0, fmt.Errorf("%d bytes over declared length %d: %w", len(s.e.b.buf)-s.start+len(p)-s.n, s.n, ErrSequenceLength)
	}
	s.e.b.buf = append(s.e.b.buf, p...)
	return len(p), nil
}

// Element encodes one group instance from struct v.
func (s *Sequence) Element(v any) error {
	return s.ElementFunc(func(e *Encoder) error {
		return e.Encode(v)
	})
}

// ElementFunc encodes one group instance with fn.
func (s *Sequence) ElementFunc(fn func(*Encoder) error) error {
	if s.data || s.ended {
		return ErrSequenceLength
	}
	if s.count >= s.n {
		return fmt.Errorf("instance %d of %d: %w", s.count+1, s.n, ErrSequenceLength)
	}
	if err := fn(s.e); err != nil {
		return err
	}
	s.count++
	return nil
}

// End closes the sequence.
func (s *Sequence) End() error {
	if s.ended {
		return nil
	}
	s.ended = true

	if s.data {
		if got := len(s.e.b.buf) - s.start; got != s.n {
			return fmt.Errorf("data tag %s has %d bytes, declared %d: %w", s.dataTag, got, s.n, ErrSequenceLength)
		}
		s.e.WriteSOH()
		return nil
	}

	s.e.depth--
	if s.count != s.n {
		return fmt.Errorf("group has %d instances, declared %d: %w", s.count, s.n, ErrSequenceLength)
	}
	return nil
}

func (e *Encoder) enterGroup() error {
	if lim := e.opts.Limits.MaxDepth; lim > 0 && e.depth >= lim {
		return ErrMaxDepthExceeded
	}
	e.depth++
	return nil
}

// Encode appends the tagged fields of struct v in declared order.
// Optional members that are absent are skipped. On error the fields
// written so far by this call are left in the buffer.
func (e *Encoder) Encode(v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return ErrNotPointer
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ErrNotPointer
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%s: %w", rv.Type(), ErrUnsupportedType)
	}

	si, err := structInfoOf(rv.Type())
	if err != nil {
		return err
	}
	return e.encodeStruct(si, rv)
}

// Marshal encodes v into a new slice.
func Marshal(v any, schema Schema) ([]byte, error) {
	b := GetBuffer()
	defer PutBuffer(b)

	if err := NewEncoder(b, schema).Encode(v); err != nil {
		return nil, err
	}
	return bytes.Clone(b.Bytes()), nil
}

func (e *Encoder) encodeStruct(si *structInfo, v reflect.Value) error {
	for i := range si.fields {
		f := &si.fields[i]

		fv, ok := readable(v, f.index)
		if !ok {
			continue
		}
		if f.ptr {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		} else if f.optional && fv.IsZero() {
			continue
		}

		if err := e.encodeField(f, fv); err != nil {
			var ee *EncodeError
			if errors.As(err, &ee) {
				return err
			}
			return newEncodeError(si.name, f.name, f.tag, err)
		}
	}
	return nil
}

func (e *Encoder) encodeField(f *fieldInfo, fv reflect.Value) error {
	switch f.kind {
	case kindGroup:
		return e.encodeGroup(f, fv)
	case kindData:
		return e.encodeData(f, fv)
	}

	mark := len(e.b.buf)
	e.WriteTag(f.tag)
	e.WriteEq()

	out, err := appendScalar(e.b.buf, f, fv)
	if err != nil {
		e.b.buf = e.b.buf[:mark]
		return err
	}
	e.b.buf = out
	e.WriteSOH()
	return nil
}

func appendScalar(dst []byte, f *fieldInfo, fv reflect.Value) ([]byte, error) {
	switch f.kind {
	case kindUint:
		if f.width > 0 {
			return AppendFixedUint(dst, fv.Uint(), f.width)
		}
		return AppendUint(dst, fv.Uint()), nil
	case kindInt:
		return AppendInt(dst, fv.Int()), nil
	case kindFloat:
		return AppendFloat(dst, fv.Float(), f.bits)
	case kindBool:
		return AppendBool(dst, fv.Bool()), nil
	case kindChar:
		c := byte(fv.Uint())
		if !isPrintable(c) {
			return dst, ErrInvalidChar
		}
		return append(dst, c), nil
	case kindEnum:
		c := byte(fv.Uint())
		if c == 0 || strings.IndexByte(f.codes, c) < 0 {
			return dst, ErrInvalidEnum
		}
		return append(dst, c), nil
	case kindString:
		s := fv.String()
		if err := checkText(len(s), strings.IndexByte(s, SOH)); err != nil {
			return dst, err
		}
		return append(dst, s...), nil
	case kindBytes:
		return appendText(dst, fv.Bytes())
	case kindASCII:
		return appendText(dst, fv.Interface().(ASCII).Bytes())
	case kindFixed:
		at := len(dst)
		for i := 0; i < f.fixedLen; i++ {
			dst = append(dst, byte(fv.Index(i).Uint()))
		}
		if bytes.IndexByte(dst[at:], SOH) >= 0 {
			return dst[:at], ErrValueContainsSOH
		}
		return dst, nil
	case kindTime:
		return AppendTimestamp(dst, fv.Interface().(time.Time)), nil
	case kindCustom:
		return appendCustom(dst, fv)
	}
	return dst, ErrUnsupportedType
}

func appendText(dst, p []byte) ([]byte, error) {
	if err := checkText(len(p), bytes.IndexByte(p, SOH)); err != nil {
		return dst, err
	}
	return append(dst, p...), nil
}

func appendCustom(dst []byte, fv reflect.Value) ([]byte, error) {
	var m ValueMarshaler
	switch {
	case fv.Type().Implements(marshalerType):
		m = fv.Interface().(ValueMarshaler)
	case fv.CanAddr():
		m = fv.Addr().Interface().(ValueMarshaler)
	default:
		p := reflect.New(fv.Type())
		p.Elem().Set(fv)
		m = p.Interface().(ValueMarshaler)
	}

	at := len(dst)
	out, err := m.AppendFIXValue(dst)
	if err != nil {
		return dst, err
	}
	if err := checkText(len(out)-at, bytes.IndexByte(out[at:], SOH)); err != nil {
		return dst, err
	}
	return out, nil
}

func (e *Encoder) encodeData(f *fieldInfo, fv reflect.Value) error {
	if e.schema == nil {
		return ErrUnpairedLength
	}
	if _, ok := e.schema.DataTag(f.tag); !ok {
		return ErrUnpairedLength
	}

	p := fv.Bytes()
	mark := len(e.b.buf)
	e.WriteTag(f.tag)
	e.WriteEq()

	s, err := e.StartSequence(len(p))
	if err == nil {
		_, err = s.Write(p)
	}
	if err == nil {
		err = s.End()
	}
	if err != nil {
		e.b.buf = e.b.buf[:mark]
		return err
	}
	return nil
}

func (e *Encoder) encodeGroup(f *fieldInfo, fv reflect.Value) error {
	if fv.IsNil() {
		return nil
	}
	n := fv.Len()
	if n == 0 && f.optional {
		return nil
	}

	e.WriteTag(f.tag)
	e.WriteEq()

	s, err := e.StartSequence(n)
	if err != nil {
		return err
	}
	if s.IsData() {
		return ErrUnsupportedType
	}

	for i := 0; i < n; i++ {
		elem := fv.Index(i)
		err := s.ElementFunc(func(e *Encoder) error {
			return e.encodeStruct(f.group, elem)
		})
		if err != nil {
			s.e.depth--
			return err
		}
	}
	e.opts.Logger.Trace().Bytes("tag", f.tag).Int("instances", n).Msg("group encoded")
	return s.End()
}
