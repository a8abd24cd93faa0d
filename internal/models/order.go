package models

import "time"

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderSubmitted OrderStatus = "SUBMITTED"
	OrderFilled    OrderStatus = "FILLED"
	OrderRejected  OrderStatus = "REJECTED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderTimedOut  OrderStatus = "TIMED_OUT"
)

// Terminal reports whether no further polling occurs for this status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderFilled, OrderRejected, OrderCancelled, OrderTimedOut:
		return true
	}
	return false
}

// Broker order-book status codes as reported by Fyers.
const (
	BrokerStatusCancelled = 1
	BrokerStatusFilled    = 2
	BrokerStatusRejected  = 5
	BrokerStatusExpired   = 6
	// 3 (for-the-day cancelled) and 6 are both treated as cancelled
	// by the lifecycle driver.
	BrokerStatusForDay = 3
)

// Order holds submission parameters plus mutable lifecycle state. It is
// created on submission and mutated only by the polling loop; once the
// status is terminal it is never touched again.
type Order struct {
	ID           string
	Symbol       string
	Token        string
	Exchange     Exchange
	Side         OrderSide
	Kind         OrderKind
	Product      ProductType
	Quantity     int
	LimitPrice   float64
	Status       OrderStatus
	FilledQty    int
	AveragePrice float64
	Message      string // Broker-supplied status or rejection message
	IsPaper      bool
	PlacedAt     time.Time
}
