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

// Package frame handles the FIX envelope around a message body:
// BeginString(8) and BodyLength(9) in front, CheckSum(10) at the end.
package frame

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/stephenlclarke/fixcodec/codec"
)

var (
	ErrMissingBeginString = errors.New("frame: first field is not BeginString(8)")
	ErrMissingBodyLength  = errors.New("frame: second field is not BodyLength(9)")
	ErrBodyLengthMismatch = errors.New("frame: BodyLength does not match the body")
	ErrMissingChecksum    = errors.New("frame: last field is not CheckSum(10)")
	ErrBadChecksum        = errors.New("frame: checksum mismatch")
	ErrIncomplete         = errors.New("frame: incomplete frame")
)

var (
	tagBeginString = []byte("8")
	tagBodyLength  = []byte("9")
	tagCheckSum    = []byte("10")
	tagMsgType     = []byte("35")
)

// trailerLen is len("10=NNN\x01").
const trailerLen = 7

// Frame is a validated message split into its envelope parts. All slices
// alias the input.
type Frame struct {
	BeginString []byte
	BodyLength  int

	// Body runs from the field after BodyLength up to and including the
	// SOH in front of CheckSum.
	Body []byte

	Checksum uint8

	// Raw is the whole frame.
	Raw []byte
}

// MsgType returns the value of the first body field when it is 35.
func (f Frame) MsgType() []byte {
	r := codec.NewReader(f.Body)
	if tag, ok := r.ParseTag(); !ok || !bytes.Equal(tag, tagMsgType) {
		return nil
	}
	v, err := r.ParseValue()
	if err != nil {
		return nil
	}
	return v
}

// Checksum is the byte sum of b modulo 256.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, c := range b {
		sum += c
	}
	return sum
}

// AppendChecksum appends sum as three zero padded digits.
func AppendChecksum(dst []byte, sum uint8) []byte {
	out, _ := codec.AppendFixedUint(dst, uint64(sum), 3)
	return out
}

// Split validates data as exactly one frame and returns its parts.
func Split(data []byte) (Frame, error) {
	var f Frame

	r := codec.NewReader(data)
	if tag, ok := r.ParseTag(); !ok || !bytes.Equal(tag, tagBeginString) {
		return f, ErrMissingBeginString
	}
	begin, err := r.ParseValue()
	if err != nil {
		return f, fmt.Errorf("BeginString: %w", err)
	}

	if tag, ok := r.ParseTag(); !ok || !bytes.Equal(tag, tagBodyLength) {
		return f, ErrMissingBodyLength
	}
	n, err := codec.ParseUintValue[uint32](r)
	if err != nil {
		return f, fmt.Errorf("BodyLength: %w", err)
	}

	start := r.Pos()
	end := start + int(n)
	if end > len(data) || (n > 0 && data[end-1] != codec.SOH) {
		return f, fmt.Errorf("declared %d, %d bytes follow: %w", n, len(data)-start, ErrBodyLengthMismatch)
	}

	tr := codec.NewReader(data[end:])
	if tag, ok := tr.ParseTag(); !ok || !bytes.Equal(tag, tagCheckSum) {
		if i := bytes.Index(data[start:], []byte("\x0110=")); i >= 0 && start+i+1 != end {
			return f, fmt.Errorf("declared %d, body is %d bytes: %w", n, i+1, ErrBodyLengthMismatch)
		}
		return f, ErrMissingChecksum
	}
	sv, err := tr.ParseValue()
	if err != nil {
		return f, fmt.Errorf("CheckSum: %w", err)
	}
	if _, err := codec.ParseFixed(sv, 3); err != nil {
		return f, fmt.Errorf("CheckSum %q: %w", sv, err)
	}
	declared, err := codec.ParseUint(sv, 8)
	if err != nil {
		return f, fmt.Errorf("CheckSum %q: %w", sv, err)
	}
	if !tr.IsEnd() {
		return f, fmt.Errorf("after CheckSum: %w", codec.ErrTrailingBytes)
	}

	if sum := Checksum(data[:end]); sum != uint8(declared) {
		return f, fmt.Errorf("declared %03d, computed %03d: %w", declared, sum, ErrBadChecksum)
	}

	f.BeginString = begin
	f.BodyLength = int(n)
	f.Body = data[start:end:end]
	f.Checksum = uint8(declared)
	f.Raw = data
	return f, nil
}
