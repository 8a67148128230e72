package fix44

// Side is tag 54.
type Side byte

const (
	SideBuy       Side = '1'
	SideSell      Side = '2'
	SideBuyMinus  Side = '3'
	SideSellPlus  Side = '4'
	SideSellShort Side = '5'
	SideCross     Side = '8'
)

func (Side) ValidCodes() string { return "123456789ABCDEFG" }

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	case SideSellShort:
		return "SellShort"
	}
	return string(rune(s))
}

// OrdType is tag 40.
type OrdType byte

const (
	OrdTypeMarket    OrdType = '1'
	OrdTypeLimit     OrdType = '2'
	OrdTypeStop      OrdType = '3'
	OrdTypeStopLimit OrdType = '4'
	OrdTypePegged    OrdType = 'P'
)

func (OrdType) ValidCodes() string { return "12346789DEGIJKLMP" }

// MDEntryType is tag 269.
type MDEntryType byte

const (
	MDEntryBid   MDEntryType = '0'
	MDEntryOffer MDEntryType = '1'
	MDEntryTrade MDEntryType = '2'
	MDEntryOpen  MDEntryType = '4'
	MDEntryClose MDEntryType = '5'
)

func (MDEntryType) ValidCodes() string { return "0123456789ABC" }

// ExecType is tag 150.
type ExecType byte

const (
	ExecTypeNew         ExecType = '0'
	ExecTypeCanceled    ExecType = '4'
	ExecTypeReplaced    ExecType = '5'
	ExecTypeRejected    ExecType = '8'
	ExecTypeTrade       ExecType = 'F'
	ExecTypeOrderStatus ExecType = 'I'
)

func (ExecType) ValidCodes() string { return "0345678ABCDEFGHI" }

// OrdStatus is tag 39.
type OrdStatus byte

const (
	OrdStatusNew             OrdStatus = '0'
	OrdStatusPartiallyFilled OrdStatus = '1'
	OrdStatusFilled          OrdStatus = '2'
	OrdStatusCanceled        OrdStatus = '4'
	OrdStatusRejected        OrdStatus = '8'
)

func (OrdStatus) ValidCodes() string { return "0123456789ABCDE" }
