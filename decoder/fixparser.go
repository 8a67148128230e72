package decoder

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stephenlclarke/fixcodec/codec"
)

// FieldValue is one decoded field. Depth counts the repeating groups it
// sits in.
type FieldValue struct {
	Tag   int
	Value string
	Depth int
}

var (
	decodeMu      sync.RWMutex
	decodeOptions = codec.DefaultOptions
)

// SetLimits bounds group nesting and instance counts while decoding.
// Decodes already running keep the limits they started with.
func SetLimits(l codec.Limits) {
	decodeMu.Lock()
	defer decodeMu.Unlock()
	decodeOptions.Limits = l
}

// SetLogger routes codec trace events to l.
func SetLogger(l zerolog.Logger) {
	decodeMu.Lock()
	defer decodeMu.Unlock()
	decodeOptions.Logger = l
}

func currentOptions() codec.Options {
	decodeMu.RLock()
	defer decodeMu.RUnlock()
	return decodeOptions
}

// DecodeNodes decodes msg into a field tree. The dictionary supplies
// length/data pairs and group layouts; without one every field is flat.
func DecodeNodes(msg []byte, dict *Dictionary) ([]codec.Node, error) {
	opts := currentOptions()
	if dict == nil {
		return codec.NewDecoderWithOptions(msg, nil, opts).DecodeNodes(nil)
	}
	return codec.NewDecoderWithOptions(msg, dict, opts).DecodeNodes(dict)
}

// snippetRadius is how many bytes either side of a decode failure are
// quoted.
const snippetRadius = 16

// describeError renders err with the bytes of msg around the offset it
// failed at.
func describeError(err error, msg []byte) string {
	var de *codec.DecodeError
	if errors.As(err, &de) {
		if s := de.Snippet(msg, snippetRadius); s != "" {
			return fmt.Sprintf("%v near %q", err, s)
		}
	}
	return err.Error()
}

// ParseFix lists the fields of msg depth first. Fields decoded before an
// error are returned along with it.
func ParseFix(msg string, dict *Dictionary) ([]FieldValue, error) {
	// If there's no SOH delimiter, assume no valid fields
	if !strings.Contains(msg, "\x01") {
		return nil, nil
	}

	nodes, err := DecodeNodes([]byte(msg), dict)
	out := make([]FieldValue, 0, len(nodes))

	var walk func([]codec.Node, int)
	walk = func(ns []codec.Node, depth int) {
		for _, n := range ns {
			tag, _ := codec.ParseTagNumber(n.Tag)
			out = append(out, FieldValue{Tag: int(tag), Value: string(n.Value), Depth: depth})
			for _, inst := range n.Instances {
				walk(inst, depth+1)
			}
		}
	}
	walk(nodes, 0)

	return out, err
}
