// Package fix44 holds typed FIX 4.4 messages for the codec, and decodes
// frames in two stages: the standard header first, then the body type
// registered for its MsgType.
package fix44

import (
	"errors"
	"fmt"
	"time"

	"github.com/stephenlclarke/fixcodec/codec"
	"github.com/stephenlclarke/fixcodec/fix"
	"github.com/stephenlclarke/fixcodec/frame"
)

// BeginString is the value of tag 8 on every FIX 4.4 frame.
const BeginString = "FIX.4.4"

var (
	ErrBeginString     = errors.New("fix44: BeginString is not " + BeginString)
	ErrMsgTypeMismatch = errors.New("fix44: header MsgType does not match the message")
)

// Header is the standard header without BeginString and BodyLength,
// which belong to the frame.
type Header struct {
	MsgType          string     `fix:"35"`
	SenderCompID     string     `fix:"49"`
	TargetCompID     string     `fix:"56"`
	OnBehalfOfCompID string     `fix:"115,omitempty"`
	DeliverToCompID  string     `fix:"128,omitempty"`
	SecureData       codec.Data `fix:"90,omitempty"`
	MsgSeqNum        uint32     `fix:"34"`
	SenderSubID      string     `fix:"50,omitempty"`
	TargetSubID      string     `fix:"57,omitempty"`
	PossDupFlag      bool       `fix:"43,omitempty"`
	PossResend       bool       `fix:"97,omitempty"`
	SendingTime      time.Time  `fix:"52"`
	OrigSendingTime  *time.Time `fix:"122"`
	MessageEncoding  string     `fix:"347,omitempty"`
}

// Schema pairs the LENGTH and DATA tags of FIX 4.4.
var Schema codec.Schema = fix.StandardDataPairs

// Registry maps MsgType to the message types of this package.
var Registry = codec.NewRegistry()

func init() {
	Registry.MustRegister("0", Heartbeat{})
	Registry.MustRegister("1", TestRequest{})
	Registry.MustRegister("5", Logout{})
	Registry.MustRegister("A", Logon{})
	Registry.MustRegister("D", NewOrderSingle{})
	Registry.MustRegister("8", ExecutionReport{})
	Registry.MustRegister("W", MarketDataSnapshotFullRefresh{})
	Registry.MustRegister("B", News{})
}

var writer = frame.Writer{BeginString: BeginString, Schema: Schema}

// Decode decodes a frame body: the header, then the message registered
// for its MsgType. Input left after the message is an error.
func Decode(body []byte) (Header, any, error) {
	return DecodeWithOptions(body, codec.DefaultOptions)
}

// DecodeWithOptions is Decode with explicit limits and logger.
func DecodeWithOptions(body []byte, opts codec.Options) (Header, any, error) {
	var h Header

	d := codec.NewDecoderWithOptions(body, Schema, opts)
	if err := d.Decode(&h); err != nil {
		return h, nil, err
	}

	msg, err := Registry.New([]byte(h.MsgType))
	if err != nil {
		return h, nil, err
	}
	if err := d.Decode(msg); err != nil {
		return h, msg, err
	}
	return h, msg, d.End()
}

// DecodeFrame validates the envelope of raw and decodes its body.
func DecodeFrame(raw []byte) (Header, any, error) {
	f, err := frame.Split(raw)
	if err != nil {
		return Header{}, nil, err
	}
	if string(f.BeginString) != BeginString {
		return Header{}, nil, fmt.Errorf("%q: %w", f.BeginString, ErrBeginString)
	}
	return Decode(f.Body)
}

// Encode builds a complete frame. An empty h.MsgType is filled in from
// the registered type of msg.
func Encode(h Header, msg any) ([]byte, error) {
	mt, ok := Registry.MsgTypeOf(msg)
	if !ok {
		return nil, fmt.Errorf("%T: %w", msg, codec.ErrUnknownMessageType)
	}
	switch h.MsgType {
	case "":
		h.MsgType = mt
	case mt:
	default:
		return nil, fmt.Errorf("header %q, message %q: %w", h.MsgType, mt, ErrMsgTypeMismatch)
	}
	return writer.Encode(&h, msg)
}
