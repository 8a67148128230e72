package codec

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncoderLowLevel(t *testing.T) {
	e := NewEncoder(NewBuffer(0, 64), nil)

	e.WriteTag([]byte("8"))
	e.WriteEq()
	if err := e.WriteString("FIX.4.4"); err != nil {
		t.Fatal(err)
	}
	e.WriteSOH()

	e.WriteTagNumber(34)
	e.WriteEq()
	e.WriteUint(12)
	e.WriteSOH()

	e.WriteTagNumber(9000)
	e.WriteEq()
	e.WriteInt(-3)
	e.WriteSOH()

	if err := e.WriteField([]byte("43"), []byte("Y")); err != nil {
		t.Fatal(err)
	}

	want := wire("8=FIX.4.4|34=12|9000=-3|43=Y|")
	if !bytes.Equal(e.Bytes(), want) {
		t.Errorf("Expected %q, got %q", want, e.Bytes())
	}
	if string(e.LastTag()) != "43" {
		t.Errorf("Expected last tag 43, got %q", e.LastTag())
	}
}

func TestEncoderRejectsBadText(t *testing.T) {
	e := NewEncoder(nil, nil)

	if err := e.WriteField([]byte("58"), nil); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("Expected ErrEmptyValue, got %v", err)
	}
	if err := e.WriteField([]byte("58"), []byte("a\x01b")); !errors.Is(err, ErrValueContainsSOH) {
		t.Errorf("Expected ErrValueContainsSOH, got %v", err)
	}
	if e.Buffer().BodyLen() != 0 {
		t.Errorf("Rejected fields left %d bytes behind", e.Buffer().BodyLen())
	}

	if err := e.WriteChar(0x01); !errors.Is(err, ErrInvalidChar) {
		t.Errorf("Expected ErrInvalidChar, got %v", err)
	}
	if err := e.WriteFloat(math.NaN(), 64); !errors.Is(err, ErrNonFinite) {
		t.Errorf("Expected ErrNonFinite, got %v", err)
	}
	if err := e.WriteFixedUint(1000, 3); !errors.Is(err, ErrFixedWidthOverflow) {
		t.Errorf("Expected ErrFixedWidthOverflow, got %v", err)
	}
}

func TestEncodeOrder(t *testing.T) {
	price := 10.5
	o := testOrder{
		ClOrdID: "ORD1",
		Side:    testSideBuy,
		Qty:     100,
		Price:   &price,
		Parties: []testParty{
			{ID: "A", Role: 1, Subs: []testSubID{{ID: "a1", Type: 1}, {ID: "a2", Type: 2}}},
			{ID: "B", Source: 'D', Role: 3},
		},
		Instrument: testInstrument{Symbol: "IBM"},
	}

	got, err := Marshal(&o, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := wire("11=ORD1|54=1|38=100|44=10.5|453=2|448=A|452=1|802=2|523=a1|803=1|523=a2|803=2|448=B|447=D|452=3|55=IBM|")
	if !bytes.Equal(got, want) {
		t.Errorf("Expected\n%q\ngot\n%q", want, got)
	}

	var back testOrder
	if err := Unmarshal(got, &back, nil); err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}
	if back.ClOrdID != o.ClOrdID || *back.Price != price || len(back.Parties) != 2 || len(back.Parties[0].Subs) != 2 {
		t.Errorf("Round trip mismatch %+v", back)
	}
}

func TestEncodeDataPair(t *testing.T) {
	got, err := Marshal(testBinary{Payload: Data("0123456789")}, testPairs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bytes.Equal(got, wire("0=10|1=0123456789|")) {
		t.Errorf("Unexpected encoding %q", got)
	}

	raw := Data("a\x01\x00b")
	got, err = Marshal(testBinary{Payload: raw}, testPairs)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var back testBinary
	if err := Unmarshal(got, &back, testPairs); err != nil || !bytes.Equal(back.Payload, raw) {
		t.Errorf("Raw payload did not round trip: %q (%v)", back.Payload, err)
	}

	if _, err := Marshal(testBinary{Payload: raw}, nil); !errors.Is(err, ErrUnpairedLength) {
		t.Errorf("Expected ErrUnpairedLength without a schema, got %v", err)
	}
}

func TestEncodeErrorsNameTheField(t *testing.T) {
	o := testOrder{ClOrdID: "X", Side: testSideBuy, Qty: math.Inf(1), Instrument: testInstrument{Symbol: "IBM"}}

	_, err := Marshal(&o, nil)
	if !errors.Is(err, ErrNonFinite) {
		t.Fatalf("Expected ErrNonFinite, got %v", err)
	}
	var ee *EncodeError
	if !errors.As(err, &ee) || ee.Field != "Qty" || ee.Tag != "38" || ee.Type != "testOrder" {
		t.Errorf("Unexpected error context %+v", ee)
	}

	o.Qty = 1
	o.Side = 0
	if _, err := Marshal(&o, nil); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("Expected ErrInvalidEnum for unset enum, got %v", err)
	}

	o.Side = testSideSell
	o.ClOrdID = ""
	if _, err := Marshal(&o, nil); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("Expected ErrEmptyValue for empty required string, got %v", err)
	}

	o.ClOrdID = "a\x01b"
	if _, err := Marshal(&o, nil); !errors.Is(err, ErrValueContainsSOH) {
		t.Errorf("Expected ErrValueContainsSOH, got %v", err)
	}

	o.ClOrdID = "X"
	o.Parties = []testParty{{ID: "P", Source: 0x7f, Role: 1}}
	_, err = Marshal(&o, nil)
	if !errors.Is(err, ErrInvalidChar) || !errors.As(err, &ee) || ee.Type != "testParty" {
		t.Errorf("Expected ErrInvalidChar from the group member, got %v", err)
	}

	if _, err := Marshal((*testOrder)(nil), nil); !errors.Is(err, ErrNotPointer) {
		t.Errorf("Expected ErrNotPointer, got %v", err)
	}
}

func TestEncodeScalarKinds(t *testing.T) {
	m := testScalars{
		Account:  MustASCII("ACC"),
		Currency: [3]byte{'U', 'S', 'D'},
		Sent:     time.Date(2024, 1, 2, 3, 4, 5, 678_000_000, time.UTC),
		Raw:      []byte("hello"),
		Flag:     true,
		Words:    testWords{"a", "b"},
		Seq:      math.MaxUint64,
	}

	got, err := Marshal(m, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := wire("1=ACC|15=USD|52=20240102-03:04:05.678|58=hello|114=Y|10001=a b|34=18446744073709551615|")
	if !bytes.Equal(got, want) {
		t.Errorf("Expected\n%q\ngot\n%q", want, got)
	}

	var back testScalars
	if err := Unmarshal(got, &back, nil); err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}
	if back.Seq != math.MaxUint64 || back.Words[1] != "b" || !back.Sent.Equal(m.Sent) {
		t.Errorf("Round trip mismatch %+v", back)
	}

	m.Seq = 42
	got, _ = Marshal(m, nil)
	if !bytes.HasSuffix(got, wire("34=00000000000000000042|")) {
		t.Errorf("Expected zero padded sequence number, got %q", got)
	}
}

func TestEncodeSkipsAbsentOptionals(t *testing.T) {
	got, err := Marshal(testWithGroup{}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected nothing for an empty message, got %q", got)
	}

	got, _ = Marshal(testWithGroup{Items: []testSingle{}, After: "x"}, nil)
	if !bytes.Equal(got, wire("1=0|3=x|")) {
		t.Errorf("Expected an empty group to keep its count, got %q", got)
	}

	got, _ = Marshal(testOptionalGroup{Items: []testSingle{}}, nil)
	if len(got) != 0 {
		t.Errorf("Expected omitempty to drop an empty group, got %q", got)
	}

	got, _ = Marshal(testWithGroup{Items: []testSingle{{0}, {255}, {7}}, After: "x"}, nil)
	if !bytes.Equal(got, wire("1=3|2=0|2=255|2=7|3=x|")) {
		t.Errorf("Unexpected encoding %q", got)
	}
}

func TestSequenceGroupMode(t *testing.T) {
	e := NewEncoder(nil, testPairs)
	e.WriteTagNumber(1)
	e.WriteEq()

	s, err := e.StartSequence(2)
	if err != nil || s.IsData() {
		t.Fatalf("Expected group mode, got %v (%v)", s, err)
	}
	if err := s.Element(testSingle{V: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.End(); !errors.Is(err, ErrSequenceLength) {
		t.Errorf("Expected ErrSequenceLength for a short group, got %v", err)
	}

	e = NewEncoder(nil, testPairs)
	e.WriteTagNumber(1)
	e.WriteEq()
	s, _ = e.StartSequence(2)
	for _, v := range []uint32{5, 6} {
		if err := s.Element(&testSingle{V: v}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Element(testSingle{V: 7}); !errors.Is(err, ErrSequenceLength) {
		t.Errorf("Expected ErrSequenceLength for an extra instance, got %v", err)
	}
	if err := s.End(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !bytes.Equal(e.Bytes(), wire("1=2|2=5|2=6|")) {
		t.Errorf("Unexpected encoding %q", e.Bytes())
	}
}

func TestSequenceDataMode(t *testing.T) {
	e := NewEncoder(nil, testPairs)
	e.WriteTagNumber(0)
	e.WriteEq()

	s, err := e.StartSequence(5)
	if err != nil || !s.IsData() {
		t.Fatalf("Expected data mode, got %v (%v)", s, err)
	}
	s.Write([]byte("ab"))
	s.Write([]byte("\x01cd"))
	if _, err := s.Write([]byte("!")); !errors.Is(err, ErrSequenceLength) {
		t.Errorf("Expected ErrSequenceLength for overlong data, got %v", err)
	}
	if err := s.End(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !bytes.Equal(e.Bytes(), []byte("0=5\x011=ab\x01cd\x01")) {
		t.Errorf("Unexpected encoding %q", e.Bytes())
	}

	e = NewEncoder(nil, testPairs)
	e.WriteTagNumber(0)
	e.WriteEq()
	s, _ = e.StartSequence(3)
	s.Write([]byte("a"))
	if err := s.End(); !errors.Is(err, ErrSequenceLength) {
		t.Errorf("Expected ErrSequenceLength for short data, got %v", err)
	}
}

func TestEncoderDepthLimit(t *testing.T) {
	opts := DefaultOptions
	opts.Limits.MaxDepth = 1

	o := testOrder{
		ClOrdID: "X", Side: testSideBuy, Qty: 1,
		Parties:    []testParty{{ID: "A", Role: 1, Subs: []testSubID{{ID: "s", Type: 1}}}},
		Instrument: testInstrument{Symbol: "IBM"},
	}
	err := NewEncoderWithOptions(nil, nil, opts).Encode(&o)
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("Expected ErrMaxDepthExceeded, got %v", err)
	}
}
