// Package trading drives orders from submission to a terminal outcome.
package trading

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"fyers-trader/internal/broker"
	"fyers-trader/internal/catalog"
	"fyers-trader/internal/errors"
	"fyers-trader/internal/logging"
	"fyers-trader/internal/models"
	"fyers-trader/internal/store"
)

// Clock abstracts time for the polling loop so tests never wall-sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// DriverConfig holds the driver's collaborators and polling budget.
type DriverConfig struct {
	Broker    broker.Broker
	Catalog   *catalog.Catalog
	Store     *store.Store // optional order journal
	Logger    zerolog.Logger
	Clock     Clock
	MaxPolls  int
	Interval  time.Duration
	Paper     bool
	Overnight bool
}

// Driver submits orders and polls the order book until each reaches a
// terminal state. It holds no order state of its own; every outcome is
// written onto the order it was given.
type Driver struct {
	broker    broker.Broker
	catalog   *catalog.Catalog
	store     *store.Store
	logger    zerolog.Logger
	clock     Clock
	maxPolls  int
	interval  time.Duration
	paper     bool
	overnight bool
}

// NewDriver creates a lifecycle driver. Zero polling values fall back
// to the 3 × 500ms default.
func NewDriver(cfg DriverConfig) *Driver {
	clock := cfg.Clock
	if clock == nil {
		clock = realClock{}
	}
	maxPolls := cfg.MaxPolls
	if maxPolls == 0 {
		maxPolls = 3
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = 500 * time.Millisecond
	}

	return &Driver{
		broker:    cfg.Broker,
		catalog:   cfg.Catalog,
		store:     cfg.Store,
		logger:    cfg.Logger.With().Str("component", "driver").Logger(),
		clock:     clock,
		maxPolls:  maxPolls,
		interval:  interval,
		paper:     cfg.Paper,
		overnight: cfg.Overnight,
	}
}

// NewOrder builds an order for a resolved instrument with the product
// selected from the exchange and holding intent.
func (d *Driver) NewOrder(inst *models.ResolvedInstrument, side models.OrderSide, kind models.OrderKind, qty int, limitPrice float64) *models.Order {
	return &models.Order{
		Symbol:     inst.Symbol,
		Token:      inst.Token,
		Exchange:   inst.Exchange,
		Side:       side,
		Kind:       kind,
		Product:    models.SelectProduct(inst.Exchange, d.overnight),
		Quantity:   qty,
		LimitPrice: limitPrice,
		Status:     models.OrderCreated,
		IsPaper:    d.paper,
	}
}

// Submit places an order with the broker. In paper mode it synthesizes
// an id and reports an immediate fill without touching the broker. A
// broker refusal surfaces as a SubmissionError carrying the message.
func (d *Driver) Submit(ctx context.Context, order *models.Order) error {
	order.PlacedAt = d.clock.Now()
	logger := logging.WithSymbol(d.logger, order.Symbol)

	if d.paper {
		order.ID = "PAPER-" + orderRef()
		order.Status = models.OrderFilled
		order.FilledQty = order.Quantity
		order.AveragePrice = order.LimitPrice
		logging.LogOrder(logger, order.ID, order.Symbol, string(order.Side), string(order.Status))
		d.journal(order)
		return nil
	}

	// The side follows the caller here. An earlier revision of this
	// workflow submitted every order as a buy regardless of direction.
	req := broker.OrderRequest{
		Symbol:       order.Symbol,
		Qty:          order.Quantity,
		Type:         order.Kind.Code(),
		Side:         order.Side.Code(),
		ProductType:  string(order.Product),
		LimitPrice:   limitPriceFor(order),
		StopPrice:    0,
		DisclosedQty: 0,
		Validity:     "DAY",
		OfflineOrder: "False",
	}

	result, err := d.broker.PlaceOrder(ctx, req)
	if err != nil {
		order.Status = models.OrderRejected
		order.Message = err.Error()
		d.journal(order)
		return err
	}

	order.ID = result.OrderID
	order.Status = models.OrderSubmitted
	order.Message = result.Message
	logging.LogOrder(logger, order.ID, order.Symbol, string(order.Side), string(order.Status))
	d.journal(order)
	return nil
}

// AwaitTerminal polls the order book at a fixed interval until the order
// reaches a terminal state or the poll budget runs out. An exhausted
// budget issues one best-effort cancel and reports ErrTimedOut; a run
// with no readable status at all cancels and reports
// ErrStatusUnavailable instead.
func (d *Driver) AwaitTerminal(ctx context.Context, order *models.Order) error {
	if order.Status.Terminal() {
		return nil
	}
	logger := logging.WithOrderID(d.logger, order.ID)

	statusRead := false
	for attempt := 0; attempt < d.maxPolls; attempt++ {
		d.clock.Sleep(d.interval)

		rec, err := d.lookupOrder(ctx, order.ID)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt+1).Msg("Order book poll failed")
			continue
		}
		statusRead = true

		switch rec.Status {
		case models.BrokerStatusFilled:
			order.Status = models.OrderFilled
			order.FilledQty = rec.FilledQty
			order.AveragePrice = rec.TradedPrice
			order.Message = rec.Message
			logging.LogOrder(logger, order.ID, order.Symbol, string(order.Side), string(order.Status))
			d.journalOutcome(order)
			return nil

		case models.BrokerStatusRejected:
			order.Status = models.OrderRejected
			order.Message = rec.Message
			logging.LogOrder(logger, order.ID, order.Symbol, string(order.Side), string(order.Status))
			d.journalOutcome(order)
			return errors.NewSubmissionError(order.Symbol, rec.Message)

		case models.BrokerStatusCancelled, models.BrokerStatusForDay, models.BrokerStatusExpired:
			order.Status = models.OrderCancelled
			order.Message = rec.Message
			logging.LogOrder(logger, order.ID, order.Symbol, string(order.Side), string(order.Status))
			d.journalOutcome(order)
			return nil
		}
		// Pending or partially traded, keep polling
	}

	// Budget exhausted; get the order off the book before giving up
	d.Cancel(ctx, order.ID)
	order.Status = models.OrderTimedOut
	d.journalOutcome(order)

	if !statusRead {
		order.Message = "order status unavailable"
		return errors.Wrapf(errors.ErrStatusUnavailable, "order %s", order.ID)
	}
	order.Message = "order not filled within poll budget"
	return errors.Wrapf(errors.ErrTimedOut, "order %s", order.ID)
}

// ResolveFillPrice backfills a missing average price on a filled order
// from the LTP quote. Quote failures degrade to zero, never block.
func (d *Driver) ResolveFillPrice(ctx context.Context, order *models.Order) {
	if order.Status != models.OrderFilled || order.AveragePrice > 0 {
		return
	}

	order.AveragePrice = d.LTP(ctx, order.Exchange, order.Token)
	if order.AveragePrice > 0 {
		d.journalOutcome(order)
	}
}

// Cancel issues a best-effort cancellation. Failures are logged and
// swallowed; by the time a cancel matters the order may already be
// terminal on the broker side.
func (d *Driver) Cancel(ctx context.Context, orderID string) {
	if d.paper || orderID == "" {
		return
	}
	if err := d.broker.CancelOrder(ctx, orderID); err != nil {
		logger := logging.WithOrderID(d.logger, orderID)
		logger.Warn().Err(err).Msg("Order cancel failed")
	}
}

// Execute runs the full lifecycle for a trade intent: resolve, submit,
// await a terminal state, and settle the fill price.
func (d *Driver) Execute(ctx context.Context, intent models.TradeIntent, side models.OrderSide, kind models.OrderKind, qty int, limitPrice float64) (*models.Order, error) {
	inst, err := d.catalog.Resolve(intent)
	if err != nil {
		return nil, err
	}

	order := d.NewOrder(inst, side, kind, qty, limitPrice)
	if err := d.Submit(ctx, order); err != nil {
		return order, err
	}
	if err := d.AwaitTerminal(ctx, order); err != nil {
		return order, err
	}
	d.ResolveFillPrice(ctx, order)
	return order, nil
}

// LTP reads the last traded price for a token, degrading to zero on any
// failure after logging.
func (d *Driver) LTP(ctx context.Context, exchange models.Exchange, token string) float64 {
	ticker, err := d.catalog.TickerForQuote(exchange, token)
	if err != nil {
		d.logger.Warn().Err(err).Str("token", token).Msg("No quotable ticker for token")
		return 0
	}

	quotes, err := d.broker.GetQuotes(ctx, []string{ticker})
	if err != nil {
		d.logger.Warn().Err(err).Str("ticker", ticker).Msg("Quote fetch failed")
		return 0
	}
	return quotes[ticker].LTP
}

func (d *Driver) lookupOrder(ctx context.Context, orderID string) (*broker.OrderRecord, error) {
	book, err := d.broker.GetOrderBook(ctx)
	if err != nil {
		return nil, err
	}
	for i := range book {
		if book[i].ID == orderID {
			return &book[i], nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "order %s not in order book", orderID)
}

func (d *Driver) journal(order *models.Order) {
	if d.store == nil {
		return
	}
	if err := d.store.SaveOrder(order); err != nil {
		d.logger.Warn().Err(err).Str("order_id", order.ID).Msg("Order journal write failed")
	}
}

func (d *Driver) journalOutcome(order *models.Order) {
	if d.store == nil {
		return
	}
	err := d.store.UpdateOutcome(order.ID, order.Status, order.FilledQty, order.AveragePrice, order.Message)
	if err != nil {
		d.logger.Warn().Err(err).Str("order_id", order.ID).Msg("Order journal update failed")
	}
}

func limitPriceFor(order *models.Order) float64 {
	if order.Kind == models.OrderKindLimit {
		return order.LimitPrice
	}
	return 0
}

// orderRef generates a short random reference for paper order ids.
func orderRef() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("150405.000")))
	}
	return hex.EncodeToString(b)
}
