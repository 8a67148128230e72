package fix44

import (
	"time"

	"github.com/stephenlclarke/fixcodec/codec"
)

type Heartbeat struct {
	TestReqID string `fix:"112,omitempty"`
}

type TestRequest struct {
	TestReqID string `fix:"112"`
}

type Logout struct {
	Text        string     `fix:"58,omitempty"`
	EncodedText codec.Data `fix:"354,omitempty"`
}

// Logon carries RawData(96) behind RawDataLength(95).
type Logon struct {
	EncryptMethod   int        `fix:"98"`
	HeartBtInt      int        `fix:"108"`
	RawData         codec.Data `fix:"95,omitempty"`
	ResetSeqNumFlag bool       `fix:"141,omitempty"`
	Username        string     `fix:"553,omitempty"`
	Password        string     `fix:"554,omitempty"`
}

// Instrument is a component; its fields sit directly in the message.
type Instrument struct {
	Symbol              string     `fix:"55"`
	SecurityID          string     `fix:"48,omitempty"`
	SecurityIDSource    string     `fix:"22,omitempty"`
	SecurityType        string     `fix:"167,omitempty"`
	SecurityDesc        string     `fix:"107,omitempty"`
	EncodedSecurityDesc codec.Data `fix:"350,omitempty"`
}

type PartySubID struct {
	PartySubID     string `fix:"523"`
	PartySubIDType int    `fix:"803"`
}

// Party is one NoPartyIDs(453) instance.
type Party struct {
	PartyID       string       `fix:"448"`
	PartyIDSource codec.Char   `fix:"447,omitempty"`
	PartyRole     int          `fix:"452"`
	PartySubIDs   []PartySubID `fix:"802"`
}

type NewOrderSingle struct {
	ClOrdID string  `fix:"11"`
	Account string  `fix:"1,omitempty"`
	Parties []Party `fix:"453"`
	Instrument
	Side         Side       `fix:"54"`
	TransactTime time.Time  `fix:"60"`
	OrderQty     float64    `fix:"38"`
	OrdType      OrdType    `fix:"40"`
	Price        *float64   `fix:"44"`
	Currency     [3]byte    `fix:"15,omitempty"`
	TimeInForce  codec.Char `fix:"59,omitempty"`
	Text         string     `fix:"58,omitempty"`
	EncodedText  codec.Data `fix:"354,omitempty"`
}

type ExecutionReport struct {
	OrderID   string    `fix:"37"`
	ClOrdID   string    `fix:"11,omitempty"`
	ExecID    string    `fix:"17"`
	ExecType  ExecType  `fix:"150"`
	OrdStatus OrdStatus `fix:"39"`
	Parties   []Party   `fix:"453"`
	Instrument
	Side         Side       `fix:"54"`
	OrderQty     float64    `fix:"38,omitempty"`
	Price        *float64   `fix:"44"`
	LastQty      *float64   `fix:"32"`
	LastPx       *float64   `fix:"31"`
	LeavesQty    float64    `fix:"151"`
	CumQty       float64    `fix:"14"`
	AvgPx        float64    `fix:"6"`
	TransactTime *time.Time `fix:"60"`
	Text         string     `fix:"58,omitempty"`
	EncodedText  codec.Data `fix:"354,omitempty"`
}

// MDEntry is one NoMDEntries(268) instance.
type MDEntry struct {
	MDEntryType       MDEntryType `fix:"269"`
	MDEntryPx         *float64    `fix:"270"`
	Currency          [3]byte     `fix:"15,omitempty"`
	MDEntrySize       *float64    `fix:"271"`
	MDEntryTime       string      `fix:"273,omitempty"`
	NumberOfOrders    *int        `fix:"346"`
	MDEntryPositionNo *int        `fix:"290"`
}

type MarketDataSnapshotFullRefresh struct {
	MDReqID string `fix:"262,omitempty"`
	Instrument
	MDEntries []MDEntry `fix:"268"`
}

// LineOfText is one LinesOfText(33) instance. EncodedText holds the line
// in the header's MessageEncoding.
type LineOfText struct {
	Text        string     `fix:"58"`
	EncodedText codec.Data `fix:"354,omitempty"`
}

type News struct {
	OrigTime        *time.Time   `fix:"42"`
	Urgency         codec.Char   `fix:"61,omitempty"`
	Headline        string       `fix:"148"`
	EncodedHeadline codec.Data   `fix:"358,omitempty"`
	LinesOfText     []LineOfText `fix:"33"`
}
