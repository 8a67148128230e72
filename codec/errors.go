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

// Package codec implements the FIX tag=value wire format: a zero-copy,
// single-pass decoder and an incremental encoder over SOH-delimited fields.
package codec

import (
	"bytes"
	"errors"
	"fmt"
)

// Sentinel errors. Check with errors.Is.
var (
	// Structural malformation.
	ErrUnexpectedEOF     = errors.New("codec: unexpected end of data")
	ErrInvalidFrame      = errors.New("codec: invalid fix frame")
	ErrEmptyValue        = errors.New("codec: empty value")
	ErrDataTagMismatch   = errors.New("codec: data tag does not follow its length tag")
	ErrUnpairedLength    = errors.New("codec: length tag has no paired data tag")
	ErrGroupCount        = errors.New("codec: group instance count mismatch")
	ErrInvalidTag        = errors.New("codec: invalid tag")
	ErrTrailingBytes     = errors.New("codec: trailing bytes after value")
	ErrMaxDepthExceeded  = errors.New("codec: maximum nesting depth exceeded")
	ErrMaxGroupInstances = errors.New("codec: maximum group instances exceeded")

	// Value format.
	ErrInvalidInteger = errors.New("codec: invalid integer")
	ErrIntegerRange   = errors.New("codec: integer out of range")
	ErrInvalidFloat   = errors.New("codec: invalid float")
	ErrInvalidBool    = errors.New("codec: invalid boolean")
	ErrInvalidChar    = errors.New("codec: invalid char")
	ErrInvalidEnum    = errors.New("codec: invalid enumerated code")
	ErrInvalidTime    = errors.New("codec: invalid timestamp")
	ErrNonASCII       = errors.New("codec: non-ascii byte")
	ErrFixedLength    = errors.New("codec: fixed length mismatch")

	// Missing members.
	ErrRequiredFieldMissing = errors.New("codec: required field missing")

	// Encode only.
	ErrNonFinite          = errors.New("codec: non-finite float")
	ErrValueContainsSOH   = errors.New("codec: value contains SOH")
	ErrFixedWidthOverflow = errors.New("codec: value does not fit fixed width")
	ErrSequenceLength     = errors.New("codec: sequence length mismatch")
	ErrHeaderOverflow     = errors.New("codec: header exceeds reserved margin")

	// Type handling.
	ErrNotPointer           = errors.New("codec: target must be a non-nil pointer to struct")
	ErrUnsupportedType      = errors.New("codec: unsupported field type")
	ErrDuplicateTag         = errors.New("codec: duplicate tag in struct")
	ErrDuplicateMessageType = errors.New("codec: duplicate message type")
	ErrUnknownMessageType   = errors.New("codec: unknown message type")
)

// DecodeError carries the position and context of a decoding failure.
type DecodeError struct {
	// Tag is the wire tag being decoded, if known.
	Tag string

	// Field is the Go field name being decoded, if known.
	Field string

	// Offset is the byte offset in the input, or -1.
	Offset int

	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	var prefix string
	switch {
	case e.Field != "" && e.Tag != "":
		prefix = fmt.Sprintf(" %s(%s)", e.Field, e.Tag)
	case e.Tag != "":
		prefix = " tag " + e.Tag
	case e.Field != "":
		prefix = " " + e.Field
	}

	if e.Offset >= 0 {
		return fmt.Sprintf("codec: decode%s at offset %d: %s", prefix, e.Offset, e.Message)
	}
	return fmt.Sprintf("codec: decode%s: %s", prefix, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is reports whether the cause matches target.
func (e *DecodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

// Snippet quotes up to radius bytes either side of the error offset,
// showing SOH as '|'. It returns "" when the offset is unknown.
func (e *DecodeError) Snippet(data []byte, radius int) string {
	if e.Offset < 0 || e.Offset > len(data) {
		return ""
	}

	lo := max(e.Offset-radius, 0)
	hi := min(e.Offset+radius, len(data))

	return string(bytes.ReplaceAll(data[lo:hi], []byte{SOH}, []byte{'|'}))
}

func newDecodeError(offset int, message string, cause error) *DecodeError {
	return &DecodeError{Offset: offset, Message: message, Cause: cause}
}

// withField fills in tag/field context on a DecodeError that lacks it.
func withField(err error, tag []byte, field string) error {
	var de *DecodeError
	if errors.As(err, &de) {
		if de.Tag == "" {
			de.Tag = string(tag)
		}
		if de.Field == "" {
			de.Field = field
		}
		return de
	}
	return &DecodeError{Tag: string(tag), Field: field, Offset: -1, Message: err.Error(), Cause: err}
}

// EncodeError provides context for encoding failures.
type EncodeError struct {
	Type    string
	Field   string
	Tag     string
	Message string
	Cause   error
}

func (e *EncodeError) Error() string {
	var prefix string
	switch {
	case e.Type != "" && e.Field != "":
		prefix = fmt.Sprintf(" %s.%s", e.Type, e.Field)
	case e.Field != "":
		prefix = " " + e.Field
	case e.Type != "":
		prefix = " " + e.Type
	}
	if e.Tag != "" {
		prefix += "(" + e.Tag + ")"
	}
	return fmt.Sprintf("codec: encode%s: %s", prefix, e.Message)
}

func (e *EncodeError) Unwrap() error {
	return e.Cause
}

func (e *EncodeError) Is(target error) bool {
	return e.Cause != nil && errors.Is(e.Cause, target)
}

func newEncodeError(typeName, field string, tag []byte, cause error) *EncodeError {
	return &EncodeError{
		Type:    typeName,
		Field:   field,
		Tag:     string(tag),
		Message: cause.Error(),
		Cause:   cause,
	}
}

// IsStructural reports whether err is a framing/delimiting failure rather
// than a bad value.
func IsStructural(err error) bool {
	switch {
	case errors.Is(err, ErrUnexpectedEOF),
		errors.Is(err, ErrInvalidFrame),
		errors.Is(err, ErrEmptyValue),
		errors.Is(err, ErrDataTagMismatch),
		errors.Is(err, ErrGroupCount),
		errors.Is(err, ErrInvalidTag):
		return true
	default:
		return false
	}
}
