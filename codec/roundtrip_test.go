package codec

import (
	"bytes"
	"math"
	"reflect"
	"testing"
)

type testBounds struct {
	I     int      `fix:"1"`
	I8    int8     `fix:"2"`
	I16   int16    `fix:"3"`
	I32   int32    `fix:"4"`
	I64   int64    `fix:"5"`
	U     uint     `fix:"6"`
	U8    uint8    `fix:"7"`
	U16   uint16   `fix:"8"`
	U32   uint32   `fix:"9"`
	U64   uint64   `fix:"10"`
	F32   float32  `fix:"11"`
	F64   float64  `fix:"12"`
	Flag  bool     `fix:"13"`
	Code  Char     `fix:"14"`
	Side  testSide `fix:"15"`
	Fixed uint64   `fix:"16,width=20"`
}

type testOptionalGroup struct {
	Items []testSingle `fix:"1,omitempty"`
}

type testStip struct {
	Type  string `fix:"604"`
	Value string `fix:"605,omitempty"`
}

type testLeg struct {
	Symbol string     `fix:"600"`
	Qty    *float64   `fix:"687"`
	Note   Data       `fix:"354,omitempty"`
	Stips  []testStip `fix:"683"`
}

type testMultileg struct {
	ClOrdID string    `fix:"11"`
	Legs    []testLeg `fix:"555"`
	Text    string    `fix:"58,omitempty"`
}

var testLegPairs = NewDataPairs(DataPair{Length: []byte("354"), Data: []byte("355")})

func TestScalarBoundsRoundTrip(t *testing.T) {
	cases := map[string]testBounds{
		"min": {
			I: math.MinInt, I8: math.MinInt8, I16: math.MinInt16, I32: math.MinInt32, I64: math.MinInt64,
			F32: -math.MaxFloat32, F64: -math.MaxFloat64,
			Code: '!', Side: testSideBuy,
		},
		"max": {
			I: math.MaxInt, I8: math.MaxInt8, I16: math.MaxInt16, I32: math.MaxInt32, I64: math.MaxInt64,
			U: math.MaxUint, U8: math.MaxUint8, U16: math.MaxUint16, U32: math.MaxUint32, U64: math.MaxUint64,
			F32: math.MaxFloat32, F64: math.MaxFloat64,
			Flag: true, Code: '~', Side: testSideSell, Fixed: math.MaxUint64,
		},
		"smallest": {
			F32: math.SmallestNonzeroFloat32, F64: math.SmallestNonzeroFloat64,
			Code: 'A', Side: testSideBuy, Fixed: 1,
		},
		"third": {
			F32: 1.0 / 3, F64: 1.0 / 3,
			Code: 'x', Side: testSideSell,
		},
	}

	for name, in := range cases {
		raw, err := Marshal(in, nil)
		if err != nil {
			t.Fatalf("%s: Marshal failed: %v", name, err)
		}

		var out testBounds
		if err := Unmarshal(raw, &out, nil); err != nil {
			t.Fatalf("%s: Unmarshal of %q failed: %v", name, raw, err)
		}
		if !reflect.DeepEqual(in, out) {
			t.Errorf("%s: round trip mismatch\nwant %+v\ngot  %+v", name, in, out)
		}
	}
}

func TestGroupRoundTrip(t *testing.T) {
	qty := 250.5

	cases := []struct {
		name  string
		in    testMultileg
		count string
	}{
		{"absent", testMultileg{ClOrdID: "A"}, ""},
		{"none", testMultileg{ClOrdID: "B", Legs: []testLeg{}, Text: "empty"}, "555=0|"},
		{"one", testMultileg{ClOrdID: "C", Legs: []testLeg{{Symbol: "IBM"}}}, "555=1|"},
		{
			"many",
			testMultileg{
				ClOrdID: "D",
				Legs: []testLeg{
					{Symbol: "IBM", Qty: &qty, Stips: []testStip{{Type: "MAT", Value: "5Y"}, {Type: "PIECES"}}},
					{Symbol: "MSFT", Note: Data("a\x01b\x00c")},
					{Symbol: "AAPL", Stips: []testStip{}},
				},
				Text: "legs",
			},
			"555=3|",
		},
	}

	for _, c := range cases {
		raw, err := Marshal(c.in, testLegPairs)
		if err != nil {
			t.Fatalf("%s: Marshal failed: %v", c.name, err)
		}
		if c.count != "" && !bytes.Contains(raw, wire(c.count)) {
			t.Errorf("%s: expected %s on the wire, got %q", c.name, c.count, raw)
		}

		var out testMultileg
		if err := Unmarshal(raw, &out, testLegPairs); err != nil {
			t.Fatalf("%s: Unmarshal of %q failed: %v", c.name, raw, err)
		}
		if !reflect.DeepEqual(c.in, out) {
			t.Errorf("%s: round trip mismatch\nwant %+v\ngot  %+v", c.name, c.in, out)
		}
	}
}

func TestDataPairRoundTripKeepsLength(t *testing.T) {
	payload := Data("\x01\x00=|\x01")

	raw, err := Marshal(testBinary{Payload: payload}, testPairs)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.HasPrefix(raw, wire("0=5|1=")) {
		t.Errorf("Expected the length to count every byte, got %q", raw)
	}

	var out testBinary
	if err := Unmarshal(raw, &out, testPairs); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Errorf("Expected %q, got %q", payload, out.Payload)
	}
}
