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
	"math"
	"strconv"
	"time"
	"unsafe"
)

// Unsigned is the set of unsigned integer kinds.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Signed is the set of signed integer kinds.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Float is the set of floating point kinds.
type Float interface {
	~float32 | ~float64
}

func bitSize[T Unsigned | Signed | Float]() int {
	var z T
	return int(unsafe.Sizeof(z)) * 8
}

// TimestampLayout is the UTCTimestamp layout with millisecond precision.
const TimestampLayout = "20060102-15:04:05.000"

const timestampLayoutSeconds = "20060102-15:04:05"

// ValidateASCII returns ErrNonASCII if b holds a byte above 0x7f.
func ValidateASCII(b []byte) error {
	for _, c := range b {
		if c >= 0x80 {
			return ErrNonASCII
		}
	}
	return nil
}

// ParseUint parses decimal ASCII digits into an unsigned integer that must
// fit in bitSize bits.
func ParseUint(b []byte, bitSize int) (uint64, error) {
	if len(b) == 0 {
		return 0, ErrEmptyValue
	}

	var v uint64
	for _, c := range b {
		if c >= 0x80 {
			return 0, ErrNonASCII
		}
		if c < '0' || c > '9' {
			return 0, ErrInvalidInteger
		}
		d := uint64(c - '0')
		if v > (math.MaxUint64-d)/10 {
			return 0, ErrIntegerRange
		}
		v = v*10 + d
	}

	if bitSize < 64 && v > 1<<uint(bitSize)-1 {
		return 0, ErrIntegerRange
	}
	return v, nil
}

// ParseInt parses an optionally '-' prefixed decimal integer.
func ParseInt(b []byte, bitSize int) (int64, error) {
	if len(b) == 0 {
		return 0, ErrEmptyValue
	}

	neg := b[0] == '-'
	digits := b
	if neg {
		digits = b[1:]
		if len(digits) == 0 {
			return 0, ErrInvalidInteger
		}
	}

	u, err := ParseUint(digits, 64)
	if err != nil {
		return 0, err
	}

	limit := uint64(1) << uint(bitSize-1)
	if neg {
		if u > limit {
			return 0, ErrIntegerRange
		}
		return -int64(u - 1) - 1, nil
	}
	if u >= limit {
		return 0, ErrIntegerRange
	}
	return int64(u), nil
}

// ParseFloat parses a decimal float with an optional exponent. Textual
// forms such as NaN or Inf are rejected.
func ParseFloat(b []byte, bitSize int) (float64, error) {
	if len(b) == 0 {
		return 0, ErrEmptyValue
	}
	if !isDecimalFloat(b) {
		if err := ValidateASCII(b); err != nil {
			return 0, err
		}
		return 0, ErrInvalidFloat
	}

	v, err := strconv.ParseFloat(string(b), bitSize)
	if err != nil {
		return 0, ErrInvalidFloat
	}
	return v, nil
}

func isDecimalFloat(b []byte) bool {
	i := 0
	if b[i] == '-' || b[i] == '+' {
		i++
	}

	mantissa := 0
	for ; i < len(b) && isDigit(b[i]); i++ {
		mantissa++
	}
	if i < len(b) && b[i] == '.' {
		i++
		for ; i < len(b) && isDigit(b[i]); i++ {
			mantissa++
		}
	}
	if mantissa == 0 {
		return false
	}

	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++
		if i < len(b) && (b[i] == '-' || b[i] == '+') {
			i++
		}
		exp := 0
		for ; i < len(b) && isDigit(b[i]); i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}

	return i == len(b)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// ParseBool accepts "Y" and "N".
func ParseBool(b []byte) (bool, error) {
	if len(b) == 1 {
		switch b[0] {
		case 'Y':
			return true, nil
		case 'N':
			return false, nil
		}
	}
	return false, ErrInvalidBool
}

// ParseChar accepts exactly one printable ASCII byte.
func ParseChar(b []byte) (byte, error) {
	if len(b) != 1 || !isPrintable(b[0]) {
		return 0, ErrInvalidChar
	}
	return b[0], nil
}

func isPrintable(c byte) bool {
	return c >= 0x20 && c < 0x7f
}

// ParseFixed checks that b is exactly n ASCII bytes.
func ParseFixed(b []byte, n int) ([]byte, error) {
	if len(b) != n {
		return nil, ErrFixedLength
	}
	if err := ValidateASCII(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseTimestamp parses a UTCTimestamp with or without milliseconds.
func ParseTimestamp(b []byte) (time.Time, error) {
	layout := TimestampLayout
	if len(b) == len(timestampLayoutSeconds) {
		layout = timestampLayoutSeconds
	}
	t, err := time.Parse(layout, string(b))
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return t, nil
}

// ParseTagNumber converts tag bytes to their numeric value.
func ParseTagNumber(tag []byte) (uint32, error) {
	v, err := ParseUint(tag, 32)
	if err != nil || v == 0 && len(tag) > 1 {
		return 0, ErrInvalidTag
	}
	return uint32(v), nil
}

// AppendUint appends v in decimal.
func AppendUint(dst []byte, v uint64) []byte {
	return strconv.AppendUint(dst, v, 10)
}

// AppendInt appends v in decimal.
func AppendInt(dst []byte, v int64) []byte {
	return strconv.AppendInt(dst, v, 10)
}

// AppendFloat appends the shortest decimal that round trips to v.
// The wire format has no exponent or non-finite forms.
func AppendFloat(dst []byte, v float64, bitSize int) ([]byte, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return dst, ErrNonFinite
	}
	return strconv.AppendFloat(dst, v, 'f', -1, bitSize), nil
}

// AppendBool appends 'Y' or 'N'.
func AppendBool(dst []byte, v bool) []byte {
	if v {
		return append(dst, 'Y')
	}
	return append(dst, 'N')
}

// AppendFixedUint appends v zero padded to exactly width digits.
func AppendFixedUint(dst []byte, v uint64, width int) ([]byte, error) {
	var digits [20]byte
	n := strconv.AppendUint(digits[:0], v, 10)
	if len(n) > width {
		return dst, ErrFixedWidthOverflow
	}
	for i := len(n); i < width; i++ {
		dst = append(dst, '0')
	}
	return append(dst, n...), nil
}

// AppendTimestamp appends t in UTC with millisecond precision.
func AppendTimestamp(dst []byte, t time.Time) []byte {
	return t.UTC().AppendFormat(dst, TimestampLayout)
}
