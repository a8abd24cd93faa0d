// Package broker provides the Fyers broker integration.
package broker

import (
	"context"

	"fyers-trader/internal/models"
)

// Broker defines the interface for broker operations.
type Broker interface {
	// Authentication
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	IsAuthenticated() bool

	// Market Data
	GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)

	// Orders
	PlaceOrder(ctx context.Context, req OrderRequest) (*PlaceResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrderBook(ctx context.Context) ([]OrderRecord, error)

	// Account
	GetFunds(ctx context.Context) ([]models.FundLimit, error)
}

// Ticker defines the interface for real-time market data streaming.
type Ticker interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(symbols []string) error
	Unsubscribe(symbols []string) error
	OnTick(handler func(models.Tick))
	OnError(handler func(error))
}

// OrderRequest is the order placement payload in the shape the Fyers
// orders endpoint expects: type 1=limit/2=market, side 1=buy/-1=sell.
type OrderRequest struct {
	Symbol       string  `json:"symbol"`
	Qty          int     `json:"qty"`
	Type         int     `json:"type"`
	Side         int     `json:"side"`
	ProductType  string  `json:"productType"`
	LimitPrice   float64 `json:"limitPrice"`
	StopPrice    float64 `json:"stopPrice"`
	DisclosedQty int     `json:"disclosedQty"`
	Validity     string  `json:"validity"`
	OfflineOrder string  `json:"offlineOrder"`
}

// PlaceResult represents the result of an order placement.
type PlaceResult struct {
	OrderID string
	Message string
}

// OrderRecord is one row of the broker order book. Status carries the
// broker's numeric code (see models.BrokerStatus*); TradedPrice is the
// realized average and may be zero even on filled rows.
type OrderRecord struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Status      int     `json:"status"`
	Qty         int     `json:"qty"`
	FilledQty   int     `json:"filledQty"`
	TradedPrice float64 `json:"tradedPrice"`
	LimitPrice  float64 `json:"limitPrice"`
	Side        int     `json:"side"`
	Message     string  `json:"message"`
}
