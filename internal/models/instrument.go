package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Instrument-type codes from the "Exchange Instrument type" column of the
// Fyers symbol master. Cash/equity-like rows use 0, 4 or 50; derivative
// segments use the 11-32 range.
const (
	InstrTypeEquity      = 0
	InstrTypeEquitySME   = 4
	InstrTypeEquityOther = 50
)

// EquityInstrTypes are the instrument-type codes treated as cash equity
// during symbol resolution.
var EquityInstrTypes = []int{InstrTypeEquity, InstrTypeEquitySME, InstrTypeEquityOther}

// OptionRight represents the option right flag of an instrument row.
// The symbol master uses XX for non-option rows.
type OptionRight string

const (
	RightCall OptionRight = "CE"
	RightPut  OptionRight = "PE"
	RightNone OptionRight = "XX"
)

// InstrumentRecord is one row of the instrument catalog, as distilled
// from the 21-column Fyers symbol master. Token plus symbol ticker
// uniquely identify a row; strike and right are only meaningful for
// option segments.
type InstrumentRecord struct {
	Token        string          `csv:"scrip_code"`
	SymbolTicker string          `csv:"symbol_ticker"`
	Underlying   string          `csv:"underlying"`
	Exchange     int             `csv:"exchange"`
	InstrType    int             `csv:"instrument_type"`
	Strike       decimal.Decimal `csv:"strike"`
	Right        OptionRight     `csv:"option_type"`
	ExpiryUnix   int64           `csv:"expiry"`
	LotSize      int             `csv:"lot_size"`
	TickSize     float64         `csv:"tick_size"`
	FyToken      string          `csv:"fytoken"`
	Description  string          `csv:"description"`
}

// Expiry returns the contract expiry as a time. The zero time is
// returned for non-derivative rows.
func (r InstrumentRecord) Expiry() time.Time {
	if r.ExpiryUnix <= 0 {
		return time.Time{}
	}
	return time.Unix(r.ExpiryUnix, 0)
}

// HasExpiry reports whether the row carries a contract expiry.
func (r InstrumentRecord) HasExpiry() bool {
	return r.ExpiryUnix > 0
}

// ExpiryClass selects which contract expiry a derivative lookup resolves.
type ExpiryClass string

const (
	ExpiryNearestWeekly  ExpiryClass = "W"
	ExpiryNextWeekly     ExpiryClass = "NW"
	ExpiryNearestMonthly ExpiryClass = "M"
	ExpiryNextMonthly    ExpiryClass = "NM"
	ExpiryNextNextMonth  ExpiryClass = "NNM"
)

// Valid reports whether the expiry class is one of the known selectors.
func (c ExpiryClass) Valid() bool {
	switch c {
	case ExpiryNearestWeekly, ExpiryNextWeekly, ExpiryNearestMonthly,
		ExpiryNextMonthly, ExpiryNextNextMonth:
		return true
	}
	return false
}

// TradeIntent is a caller-supplied resolution request. Strike, Right and
// InstrumentType only apply to derivative lookups; ExpiryClass defaults
// to the nearest weekly contract when empty.
type TradeIntent struct {
	Exchange       Exchange
	Symbol         string
	Strike         decimal.Decimal
	Right          OptionRight
	ExpiryClass    ExpiryClass
	InstrumentType string // FUTIDX, OPTIDX, OPTSTK, ...
}

// ResolvedInstrument is the output of a catalog lookup.
type ResolvedInstrument struct {
	Token    string
	Symbol   string
	LotSize  int
	Exchange Exchange
}
