// Package models provides domain models for the trading application.
package models

import (
	"time"
)

// Exchange represents a stock exchange segment as named by Fyers.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // NSE F&O
	MCX Exchange = "MCX" // Commodity
	BFO Exchange = "BFO" // BSE F&O
	CDS Exchange = "CDS" // Currency
	BCD Exchange = "BCD" // BSE Currency
)

// exchangeCodes maps exchange names to the numeric codes used in the
// Fyers symbol master. NFO shares NSE's code; BFO shares BSE's.
var exchangeCodes = map[Exchange]int{
	NSE: 10,
	BSE: 12,
	NFO: 10,
	MCX: 11,
	BFO: 12,
}

// Code returns the Fyers numeric exchange code. ok is false for
// exchanges that have no entry in the symbol master mapping.
func (e Exchange) Code() (code int, ok bool) {
	code, ok = exchangeCodes[e]
	return code, ok
}

// IsDerivative reports whether the exchange is a derivatives segment.
// Used for product-type selection on overnight orders.
func (e Exchange) IsDerivative() bool {
	switch e {
	case NFO, CDS, MCX, BFO, BCD:
		return true
	}
	return false
}

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Code returns the Fyers wire encoding for the side (1 buy, -1 sell).
func (s OrderSide) Code() int {
	if s == OrderSideSell {
		return -1
	}
	return 1
}

// OrderKind represents the kind of an order.
type OrderKind string

const (
	OrderKindLimit  OrderKind = "LIMIT"
	OrderKindMarket OrderKind = "MARKET"
)

// Code returns the Fyers wire encoding for the order kind (1 limit, 2 market).
func (k OrderKind) Code() int {
	if k == OrderKindLimit {
		return 1
	}
	return 2
}

// ProductType represents the broker-side margining category.
type ProductType string

const (
	ProductIntraday ProductType = "INTRADAY"
	ProductMargin   ProductType = "MARGIN" // Overnight derivatives
	ProductCash     ProductType = "CASH"   // Overnight cash/delivery
)

// SelectProduct returns the product type for an order: derivatives held
// overnight go on MARGIN, cash held overnight on CASH, else INTRADAY.
func SelectProduct(exchange Exchange, overnight bool) ProductType {
	if !overnight {
		return ProductIntraday
	}
	if exchange.IsDerivative() {
		return ProductMargin
	}
	return ProductCash
}

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen      MarketStatus = "OPEN"
	MarketPreOpen   MarketStatus = "PRE_OPEN"
	MarketPostClose MarketStatus = "POST_CLOSE"
	MarketClosed    MarketStatus = "CLOSED"
)

// Quote represents a point-in-time market quote.
type Quote struct {
	Symbol    string
	LTP       float64
	Timestamp time.Time
}

// Tick represents a streamed market data update.
type Tick struct {
	Symbol    string
	LTP       float64
	Volume    int64
	Timestamp time.Time
}

// FundLimit represents one margin record from the funds endpoint.
// Records are keyed by numeric id; id 10 carries the equity balance.
type FundLimit struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	EquityAmount float64 `json:"equityAmount"`
}

// EquityFundID is the fund-limit record id carrying the usable
// equity balance.
const EquityFundID = 10
