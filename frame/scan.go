package frame

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/stephenlclarke/fixcodec/codec"
)

// Complete reports the length of the frame at the start of data. It
// returns 0 and no error when more bytes are needed. Only the envelope
// is inspected; use Split to validate the checksum.
func Complete(data []byte) (int, error) {
	r := codec.NewReader(data)

	tag, ok := r.ParseTag()
	if !ok {
		return 0, probe(data, tagBeginString)
	}
	if !bytes.Equal(tag, tagBeginString) {
		return 0, ErrMissingBeginString
	}
	r.ScanValue()
	if r.IsEnd() {
		return 0, nil
	}

	tag, ok = r.ParseTag()
	if !ok {
		return 0, probe(r.Remaining(), tagBodyLength)
	}
	if !bytes.Equal(tag, tagBodyLength) {
		return 0, ErrMissingBodyLength
	}
	at := r.Pos()
	v := r.ScanValue()
	if r.IsEnd() && data[len(data)-1] != codec.SOH {
		// the length itself may still be arriving
		if _, err := codec.ParseUint(v, 32); err != nil && len(v) > 0 {
			return 0, fmt.Errorf("BodyLength %q at %d: %w", v, at, err)
		}
		return 0, nil
	}
	n, err := codec.ParseUint(v, 32)
	if err != nil {
		return 0, fmt.Errorf("BodyLength %q at %d: %w", v, at, err)
	}

	end := r.Pos() + int(n)
	total := end + trailerLen
	if len(data) < total {
		return 0, nil
	}
	if !bytes.HasPrefix(data[end:], []byte("10=")) || data[total-1] != codec.SOH {
		return 0, fmt.Errorf("declared %d: %w", n, ErrBodyLengthMismatch)
	}
	return total, nil
}

// probe fails fast when the bytes seen so far cannot start want.
func probe(data, want []byte) error {
	if len(data) == 0 {
		return nil
	}
	prefix := data
	if len(prefix) > len(want) {
		prefix = prefix[:len(want)]
	}
	if !bytes.HasPrefix(want, prefix) || len(data) > len(want) {
		if bytes.Equal(want, tagBeginString) {
			return ErrMissingBeginString
		}
		return ErrMissingBodyLength
	}
	return nil
}

// ScanFrames is a bufio.SplitFunc that yields one frame per token.
// Whitespace between frames, such as newlines in a capture file, is
// skipped.
func ScanFrames(data []byte, atEOF bool) (int, []byte, error) {
	skip := 0
	for skip < len(data) && isSpace(data[skip]) {
		skip++
	}
	if skip == len(data) {
		if atEOF {
			return len(data), nil, nil
		}
		return skip, nil, nil
	}

	n, err := Complete(data[skip:])
	if err != nil {
		return 0, nil, err
	}
	if n == 0 {
		if atEOF {
			return 0, nil, fmt.Errorf("%d bytes: %w", len(data)-skip, ErrIncomplete)
		}
		return skip, nil, nil
	}
	return skip + n, data[skip : skip+n], nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

var (
	beginMarker = []byte("8=FIX")
	trailerRe   = regexp.MustCompile(`\x0110=\d{3}\x01`)
)

// Find locates frames embedded in a line of text, such as an application
// log. A frame whose BodyLength is usable is cut exactly; otherwise the
// frame runs to the first CheckSum field. Each result is a [start, end)
// pair.
func Find(line []byte) [][]int {
	var out [][]int

	for from := 0; from < len(line); {
		i := bytes.Index(line[from:], beginMarker)
		if i < 0 {
			break
		}
		start := from + i

		if n, err := Complete(line[start:]); err == nil && n > 0 {
			out = append(out, []int{start, start + n})
			from = start + n
			continue
		}

		loc := trailerRe.FindIndex(line[start:])
		if loc == nil {
			break
		}
		end := start + loc[1]
		out = append(out, []int{start, end})
		from = end
	}
	return out
}
