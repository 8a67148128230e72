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
	"github.com/rs/zerolog"
)

// Data is the raw payload of a length/data pair. A struct field of this
// type is tagged with the LENGTH tag; the DATA tag comes from the Schema.
// Decoded Data aliases the input buffer.
type Data []byte

// Clone returns an owned copy.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	return append(Data(nil), d...)
}

// Char is a single printable ASCII character value.
type Char byte

func (c Char) String() string {
	return string(rune(c))
}

// Enumerated is implemented by single-character code types. Decoding
// rejects any byte not in ValidCodes.
type Enumerated interface {
	ValidCodes() string
}

// ValueUnmarshaler is implemented by types that decode themselves from a
// raw field value. The slice aliases the input buffer.
type ValueUnmarshaler interface {
	UnmarshalFIXValue(b []byte) error
}

// ValueMarshaler is implemented by types that encode their own value.
type ValueMarshaler interface {
	AppendFIXValue(dst []byte) ([]byte, error)
}

// ASCII is a byte view that has been checked to hold only ASCII. It is
// built once with NewASCII and never re-validated.
type ASCII struct {
	b []byte
}

// NewASCII validates b and wraps it without copying.
func NewASCII(b []byte) (ASCII, error) {
	if err := ValidateASCII(b); err != nil {
		return ASCII{}, err
	}
	return ASCII{b: b}, nil
}

// MustASCII is NewASCII for literals; it panics on invalid input.
func MustASCII(s string) ASCII {
	a, err := NewASCII([]byte(s))
	if err != nil {
		panic(err)
	}
	return a
}

func (a ASCII) Bytes() []byte  { return a.b }
func (a ASCII) String() string { return string(a.b) }
func (a ASCII) Len() int       { return len(a.b) }
func (a ASCII) IsEmpty() bool  { return len(a.b) == 0 }

// Clone returns an ASCII value that owns its bytes.
func (a ASCII) Clone() ASCII {
	if a.b == nil {
		return a
	}
	return ASCII{b: append([]byte(nil), a.b...)}
}

// Limits bounds decoder resource use. Zero means unlimited.
type Limits struct {
	// MaxDepth is the maximum group nesting depth.
	MaxDepth int

	// MaxGroupInstances caps the declared count of a single group.
	MaxGroupInstances int
}

// DefaultLimits suit any sane FIX traffic.
var DefaultLimits = Limits{
	MaxDepth:          16,
	MaxGroupInstances: 100_000,
}

// Options configures a Decoder or Encoder.
type Options struct {
	Limits Limits

	// Logger receives trace events. The zero value discards them.
	Logger zerolog.Logger
}

// DefaultOptions has default limits and no logging.
var DefaultOptions = Options{
	Limits: DefaultLimits,
	Logger: zerolog.Nop(),
}
