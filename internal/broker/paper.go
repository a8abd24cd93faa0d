package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyers-trader/internal/errors"
	"fyers-trader/internal/models"
)

// PaperBroker implements the Broker interface for dry-run simulation.
// Orders fill immediately against the cached price; the order book
// reports the same numeric status codes the live broker uses, so the
// lifecycle driver behaves identically against it.
type PaperBroker struct {
	// Real broker for market data, optional
	dataBroker Broker

	orders       map[string]*OrderRecord
	orderCounter int
	balance      float64
	priceCache   map[string]float64

	mu sync.RWMutex
}

// PaperBrokerConfig holds configuration for the paper broker.
type PaperBrokerConfig struct {
	DataBroker     Broker
	InitialBalance float64
}

// NewPaperBroker creates a paper trading broker.
func NewPaperBroker(cfg PaperBrokerConfig) *PaperBroker {
	balance := cfg.InitialBalance
	if balance == 0 {
		balance = 1000000 // 10 lakhs default
	}

	return &PaperBroker{
		dataBroker: cfg.DataBroker,
		orders:     make(map[string]*OrderRecord),
		balance:    balance,
		priceCache: make(map[string]float64),
	}
}

// Login is a no-op for paper trading.
func (p *PaperBroker) Login(ctx context.Context) error {
	return nil
}

// Logout is a no-op for paper trading.
func (p *PaperBroker) Logout(ctx context.Context) error {
	return nil
}

// IsAuthenticated always returns true for paper trading.
func (p *PaperBroker) IsAuthenticated() bool {
	return true
}

// GetQuotes fetches real quotes through the data broker when one is
// configured, falling back to cached prices.
func (p *PaperBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if p.dataBroker != nil {
		quotes, err := p.dataBroker.GetQuotes(ctx, symbols)
		if err == nil {
			p.mu.Lock()
			for sym, q := range quotes {
				p.priceCache[sym] = q.LTP
			}
			p.mu.Unlock()
		}
		return quotes, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	quotes := make(map[string]models.Quote, len(symbols))
	for _, sym := range symbols {
		if ltp, ok := p.priceCache[sym]; ok {
			quotes[sym] = models.Quote{Symbol: sym, LTP: ltp, Timestamp: time.Now()}
		}
	}
	return quotes, nil
}

// PlaceOrder simulates order placement with an immediate fill.
func (p *PaperBroker) PlaceOrder(ctx context.Context, req OrderRequest) (*PlaceResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	execPrice := req.LimitPrice
	if req.Type == models.OrderKindMarket.Code() {
		execPrice = p.priceCache[req.Symbol]
	}

	orderValue := execPrice * float64(req.Qty)
	if req.Side == models.OrderSideBuy.Code() && orderValue > p.balance {
		return nil, errors.NewSubmissionError(req.Symbol,
			fmt.Sprintf("insufficient funds: need %.2f, have %.2f", orderValue, p.balance))
	}

	p.orderCounter++
	orderID := fmt.Sprintf("PAPER_%d_%d", time.Now().Unix(), p.orderCounter)

	p.orders[orderID] = &OrderRecord{
		ID:          orderID,
		Symbol:      req.Symbol,
		Status:      models.BrokerStatusFilled,
		Qty:         req.Qty,
		FilledQty:   req.Qty,
		TradedPrice: execPrice,
		LimitPrice:  req.LimitPrice,
		Side:        req.Side,
		Message:     "Paper order filled",
	}

	if req.Side == models.OrderSideBuy.Code() {
		p.balance -= orderValue
	} else {
		p.balance += orderValue
	}

	return &PlaceResult{OrderID: orderID, Message: "Paper order placed"}, nil
}

// CancelOrder simulates cancellation. Filled paper orders cannot be
// cancelled, matching live behaviour.
func (p *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return errors.NewBrokerError("cancel_order", "order not found: "+orderID, nil)
	}
	if order.Status == models.BrokerStatusFilled {
		return errors.NewBrokerError("cancel_order", "order already filled", nil)
	}
	order.Status = models.BrokerStatusCancelled
	return nil
}

// GetOrderBook returns all simulated orders.
func (p *PaperBroker) GetOrderBook(ctx context.Context) ([]OrderRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	book := make([]OrderRecord, 0, len(p.orders))
	for _, o := range p.orders {
		book = append(book, *o)
	}
	return book, nil
}

// GetFunds returns the simulated balance as an equity fund-limit record.
func (p *PaperBroker) GetFunds(ctx context.Context) ([]models.FundLimit, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return []models.FundLimit{
		{ID: models.EquityFundID, Title: "Available Balance", EquityAmount: p.balance},
	}, nil
}

// UpdatePrice updates the cached price for a symbol.
func (p *PaperBroker) UpdatePrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priceCache[symbol] = price
}

// Reset restores the paper broker to its initial state.
func (p *PaperBroker) Reset(initialBalance float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.orders = make(map[string]*OrderRecord)
	p.orderCounter = 0
	p.balance = initialBalance
}

// Ensure PaperBroker implements the Broker interface
var _ Broker = (*PaperBroker)(nil)
