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
)

// SOH is the field delimiter.
const SOH byte = 0x01

// Reader is a forward-only cursor over a FIX byte stream. It never copies:
// every tag and value it returns is a sub-slice of the input.
//
// pos always points at the start of an unconsumed tag or at the end of data.
type Reader struct {
	data []byte
	pos  int

	// cached index of the '=' following the tag at pos, -1 when unknown
	eq int
	// cached index of the SOH ending the value after eq, -1 when unknown
	soh int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, eq: -1, soh: -1}
}

// Reset points the reader at new data.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.pos = 0
	r.eq = -1
	r.soh = -1
}

// IsEnd reports whether all data has been consumed.
func (r *Reader) IsEnd() bool {
	return r.pos >= len(r.data)
}

// Pos returns the current offset.
func (r *Reader) Pos() int {
	return r.pos
}

// Data returns the underlying input.
func (r *Reader) Data() []byte {
	return r.data
}

// Remaining returns the unconsumed input.
func (r *Reader) Remaining() []byte {
	if r.pos >= len(r.data) {
		return nil
	}
	return r.data[r.pos:]
}

func (r *Reader) advance(to int) {
	r.pos = to
	r.eq = -1
	r.soh = -1
}

func (r *Reader) locateEq() int {
	if r.eq >= 0 {
		return r.eq
	}
	if r.pos >= len(r.data) {
		return -1
	}
	i := bytes.IndexByte(r.data[r.pos:], '=')
	if i < 0 {
		return -1
	}
	r.eq = r.pos + i
	return r.eq
}

// PeekTag returns the tag bytes before the next '=' without consuming
// them. Repeated calls return the same slice until ParseTag is called.
func (r *Reader) PeekTag() ([]byte, bool) {
	eq := r.locateEq()
	if eq < 0 {
		return nil, false
	}
	return r.data[r.pos:eq:eq], true
}

// ParseTag returns what PeekTag would and moves past the '='.
func (r *Reader) ParseTag() ([]byte, bool) {
	tag, ok := r.PeekTag()
	if !ok {
		return nil, false
	}
	r.pos = r.eq + 1
	r.eq = -1
	r.soh = -1
	return tag, true
}

func (r *Reader) locateSOH() int {
	if r.soh >= 0 {
		return r.soh
	}
	if r.pos > len(r.data) {
		return -1
	}
	i := bytes.IndexByte(r.data[r.pos:], SOH)
	if i < 0 {
		return -1
	}
	r.soh = r.pos + i
	return r.soh
}

// ParseValue returns the value up to the next SOH and moves past it.
func (r *Reader) ParseValue() ([]byte, error) {
	soh := r.locateSOH()
	if soh < 0 {
		return nil, newDecodeError(r.pos, "value is not terminated by SOH", ErrUnexpectedEOF)
	}
	if soh == r.pos {
		return nil, newDecodeError(r.pos, "zero length value", ErrEmptyValue)
	}

	v := r.data[r.pos:soh:soh]
	r.advance(soh + 1)
	return v, nil
}

// ScanValue is the relaxed form of ParseValue used when probing for frame
// boundaries: a value running to the end of the data without SOH is
// returned as is. Empty values are returned as empty slices.
func (r *Reader) ScanValue() []byte {
	soh := r.locateSOH()
	if soh < 0 {
		v := r.data[r.pos:len(r.data):len(r.data)]
		r.advance(len(r.data))
		return v
	}

	v := r.data[r.pos:soh:soh]
	r.advance(soh + 1)
	return v
}

// ParseValueWithLength returns exactly n bytes from the cursor. The byte
// that follows must be SOH. The value may itself contain SOH.
func (r *Reader) ParseValueWithLength(n int) ([]byte, error) {
	if n < 0 {
		return nil, newDecodeError(r.pos, "negative length", ErrInvalidFrame)
	}

	end := r.pos + n
	if end >= len(r.data) || end < r.pos {
		return nil, newDecodeError(r.pos, "length counted value runs past end of data", ErrUnexpectedEOF)
	}
	if r.data[end] != SOH {
		return nil, newDecodeError(end, "length counted value is not followed by SOH", ErrInvalidFrame)
	}

	v := r.data[r.pos:end:end]
	r.advance(end + 1)
	return v, nil
}

// SkipField consumes the next tag and value, whatever they are.
func (r *Reader) SkipField() error {
	if _, ok := r.ParseTag(); !ok {
		return newDecodeError(r.pos, "expected tag", ErrUnexpectedEOF)
	}
	_, err := r.ParseValue()
	return err
}

// ParseUintValue parses the next value as an unsigned integer of type T.
func ParseUintValue[T Unsigned](r *Reader) (T, error) {
	at := r.pos
	b, err := r.ParseValue()
	if err != nil {
		return 0, err
	}
	v, err := ParseUint(b, bitSize[T]())
	if err != nil {
		return 0, newDecodeError(at, string(b), err)
	}
	return T(v), nil
}

// ParseIntValue parses the next value as a signed integer of type T.
func ParseIntValue[T Signed](r *Reader) (T, error) {
	at := r.pos
	b, err := r.ParseValue()
	if err != nil {
		return 0, err
	}
	v, err := ParseInt(b, bitSize[T]())
	if err != nil {
		return 0, newDecodeError(at, string(b), err)
	}
	return T(v), nil
}

// ParseFloatValue parses the next value as a float of type T.
func ParseFloatValue[T Float](r *Reader) (T, error) {
	at := r.pos
	b, err := r.ParseValue()
	if err != nil {
		return 0, err
	}
	v, err := ParseFloat(b, bitSize[T]())
	if err != nil {
		return 0, newDecodeError(at, string(b), err)
	}
	return T(v), nil
}
