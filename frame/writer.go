package frame

import (
	"bytes"

	"github.com/rs/zerolog"
	"github.com/stephenlclarke/fixcodec/codec"
)

// Writer produces complete frames. The body is encoded first into a
// codec.Buffer; BeginString and BodyLength then go into the margin the
// buffer reserves ahead of the body, and CheckSum is appended.
type Writer struct {
	BeginString string
	Schema      codec.Schema

	// Limits overrides codec.DefaultLimits when non-zero.
	Limits codec.Limits

	// Logger, when set, receives encoder trace events.
	Logger *zerolog.Logger
}

func (w *Writer) options() codec.Options {
	opts := codec.DefaultOptions
	if w.Limits != (codec.Limits{}) {
		opts.Limits = w.Limits
	}
	if w.Logger != nil {
		opts.Logger = *w.Logger
	}
	return opts
}

// Encode encodes each part in order as the body, typically a header
// struct followed by a message struct.
func (w *Writer) Encode(parts ...any) ([]byte, error) {
	return w.EncodeFunc(func(e *codec.Encoder) error {
		for _, p := range parts {
			if err := e.Encode(p); err != nil {
				return err
			}
		}
		return nil
	})
}

// EncodeFunc lets fn write the body directly.
func (w *Writer) EncodeFunc(fn func(*codec.Encoder) error) ([]byte, error) {
	b := codec.GetBuffer()
	defer codec.PutBuffer(b)

	if err := fn(codec.NewEncoderWithOptions(b, w.Schema, w.options())); err != nil {
		return nil, err
	}
	if err := w.seal(b); err != nil {
		return nil, err
	}
	return bytes.Clone(b.Bytes()), nil
}

// Seal wraps a body that is already encoded.
func (w *Writer) Seal(body []byte) ([]byte, error) {
	b := codec.NewBuffer(codec.DefaultHeaderMargin, len(body)+trailerLen)
	b.Write(body)
	if err := w.seal(b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func (w *Writer) seal(b *codec.Buffer) error {
	var scratch [codec.DefaultHeaderMargin]byte
	h := append(scratch[:0], "8="...)
	h = append(h, w.BeginString...)
	h = append(h, codec.SOH, '9', '=')
	h = codec.AppendUint(h, uint64(b.BodyLen()))
	h = append(h, codec.SOH)

	if err := b.PrependHeader(h); err != nil {
		return err
	}

	sum := Checksum(b.Bytes())
	t := append(scratch[:0], "10="...)
	t = AppendChecksum(t, sum)
	t = append(t, codec.SOH)
	b.Write(t)
	return nil
}
