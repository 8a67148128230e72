package frame

import (
	"bytes"
	"testing"

	"github.com/quickfixgo/quickfix"
)

// Frames written here must parse in quickfix, and frames built by
// quickfix must pass Split.

func TestQuickfixParsesWriterFrames(t *testing.T) {
	w := Writer{BeginString: "FIX.4.4"}
	raw, err := w.Encode(
		&testHeader{MsgType: "0", SenderCompID: "BUY", TargetCompID: "SELL", MsgSeqNum: 1},
		testHeartbeat{TestReqID: "T1", Text: "hi"},
	)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	msg := quickfix.NewMessage()
	if err := quickfix.ParseMessage(msg, bytes.NewBuffer(raw)); err != nil {
		t.Fatalf("quickfix rejected the frame: %v", err)
	}

	if v, err := msg.Header.GetString(quickfix.Tag(35)); err != nil || v != "0" {
		t.Errorf("Expected MsgType 0, got %q (%v)", v, err)
	}
	if v, err := msg.Header.GetString(quickfix.Tag(49)); err != nil || v != "BUY" {
		t.Errorf("Expected SenderCompID BUY, got %q (%v)", v, err)
	}
	if v, err := msg.Body.GetString(quickfix.Tag(112)); err != nil || v != "T1" {
		t.Errorf("Expected TestReqID T1, got %q (%v)", v, err)
	}
	if v, err := msg.Trailer.GetString(quickfix.Tag(10)); err != nil || v != trailerChecksum(raw) {
		t.Errorf("Unexpected checksum %q (%v)", v, err)
	}
}

func TestSplitAcceptsQuickfixFrames(t *testing.T) {
	msg := quickfix.NewMessage()
	msg.Header.SetString(quickfix.Tag(8), "FIX.4.4")
	msg.Header.SetString(quickfix.Tag(35), "D")
	msg.Header.SetString(quickfix.Tag(49), "BUY")
	msg.Header.SetString(quickfix.Tag(56), "SELL")
	msg.Header.SetString(quickfix.Tag(34), "2")
	msg.Body.SetString(quickfix.Tag(11), "ORD-1")
	msg.Body.SetString(quickfix.Tag(55), "IBM")

	raw := []byte(msg.String())
	f, err := Split(raw)
	if err != nil {
		t.Fatalf("Split rejected %q: %v", raw, err)
	}
	if string(f.MsgType()) != "D" || string(f.BeginString) != "FIX.4.4" {
		t.Errorf("Unexpected frame %+v", f)
	}
	if n, err := Complete(raw); err != nil || n != len(raw) {
		t.Errorf("Expected Complete to measure %d bytes, got %d (%v)", len(raw), n, err)
	}
}

// trailerChecksum recomputes the trailer value of a sealed frame.
func trailerChecksum(raw []byte) string {
	i := bytes.LastIndex(raw, []byte("\x0110="))
	return string(AppendChecksum(nil, Checksum(raw[:i+1])))
}
