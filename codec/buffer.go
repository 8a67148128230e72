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
	"sync"
)

// DefaultHeaderMargin fits "8=FIXT.1.1|9=<10 digits>|" with room to spare.
const DefaultHeaderMargin = 32

// Buffer accumulates an encoded message. It reserves a margin ahead of the
// body so header fields that depend on the body, such as BodyLength, can
// be written once the body is complete without moving it. Trailer fields
// are simply appended after the body.
//
// Layout: buf[start:margin] holds prepended header bytes, buf[margin:] the
// body and trailer.
type Buffer struct {
	buf    []byte
	margin int
	start  int
}

var bufferPool = sync.Pool{
	New: func() any {
		return NewBuffer(DefaultHeaderMargin, 256)
	},
}

// NewBuffer creates a Buffer with margin header bytes reserved and room
// for sizeHint body bytes.
func NewBuffer(margin, sizeHint int) *Buffer {
	if margin < 0 {
		margin = 0
	}
	return &Buffer{
		buf:    make([]byte, margin, margin+max(sizeHint, 0)),
		margin: margin,
		start:  margin,
	}
}

// GetBuffer gets a Buffer with DefaultHeaderMargin from the pool.
// Return it with PutBuffer when the bytes are no longer referenced.
func GetBuffer() *Buffer {
	b := bufferPool.Get().(*Buffer)
	b.Reset()
	return b
}

// PutBuffer returns b to the pool. Large buffers are dropped.
func PutBuffer(b *Buffer) {
	if b == nil || b.margin != DefaultHeaderMargin {
		return
	}
	if cap(b.buf) > 64*1024 {
		return
	}
	b.Reset()
	bufferPool.Put(b)
}

// Reset discards header and body, keeping capacity.
func (b *Buffer) Reset() {
	b.buf = b.buf[:b.margin]
	b.start = b.margin
}

// Margin returns the header bytes still free.
func (b *Buffer) Margin() int {
	return b.start
}

// Body returns the bytes written after the margin.
func (b *Buffer) Body() []byte {
	return b.buf[b.margin:]
}

// BodyLen returns len(Body()).
func (b *Buffer) BodyLen() int {
	return len(b.buf) - b.margin
}

// Len returns the length of the whole message so far.
func (b *Buffer) Len() int {
	return len(b.buf) - b.start
}

// Bytes returns header and body as one contiguous slice. It aliases the
// buffer and is valid until the next write or Reset.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.start:]
}

// Write appends p to the body. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends c to the body.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteString appends s to the body.
func (b *Buffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// PrependHeader places h immediately in front of anything already
// prepended. Calls therefore run from the innermost header field out.
func (b *Buffer) PrependHeader(h []byte) error {
	if len(h) > b.start {
		return ErrHeaderOverflow
	}
	b.start -= len(h)
	copy(b.buf[b.start:], h)
	return nil
}
