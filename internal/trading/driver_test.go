package trading

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"fyers-trader/internal/broker"
	"fyers-trader/internal/catalog"
	"fyers-trader/internal/errors"
	"fyers-trader/internal/models"
)

// brokerStatusPending is a non-terminal order-book code (order in transit).
const brokerStatusPending = 4

type fakeBroker struct {
	placeResult *broker.PlaceResult
	placeErr    error
	placeCalls  int
	lastRequest broker.OrderRequest

	cancelCalls []string
	cancelErr   error

	// books holds one order-book response per poll; the last entry
	// repeats once exhausted.
	books    [][]broker.OrderRecord
	bookErr  error
	bookCall int

	quotes    map[string]models.Quote
	quotesErr error

	funds    []models.FundLimit
	fundsErr error
}

func (f *fakeBroker) Login(ctx context.Context) error  { return nil }
func (f *fakeBroker) Logout(ctx context.Context) error { return nil }
func (f *fakeBroker) IsAuthenticated() bool            { return true }

func (f *fakeBroker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (*broker.PlaceResult, error) {
	f.placeCalls++
	f.lastRequest = req
	return f.placeResult, f.placeErr
}

func (f *fakeBroker) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelCalls = append(f.cancelCalls, orderID)
	return f.cancelErr
}

func (f *fakeBroker) GetOrderBook(ctx context.Context) ([]broker.OrderRecord, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	if len(f.books) == 0 {
		return nil, nil
	}
	i := f.bookCall
	if i >= len(f.books) {
		i = len(f.books) - 1
	}
	f.bookCall++
	return f.books[i], nil
}

func (f *fakeBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	return f.quotes, f.quotesErr
}

func (f *fakeBroker) GetFunds(ctx context.Context) ([]models.FundLimit, error) {
	return f.funds, f.fundsErr
}

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	err := c.Load([]models.InstrumentRecord{
		{
			Token: "301", SymbolTicker: "NSE:NIFTY24JUN22000CE", Underlying: "NIFTY",
			Exchange: 10, InstrType: 14, Strike: decimal.NewFromInt(22000),
			Right: models.RightCall, ExpiryUnix: 1719000000, LotSize: 50,
		},
		{
			Token: "101", SymbolTicker: "NSE:SBIN-EQ", Underlying: "SBIN",
			Exchange: 10, InstrType: 0, Right: models.RightNone, LotSize: 1,
		},
	})
	if err != nil {
		t.Fatalf("catalog load: %v", err)
	}
	return c
}

func testDriver(t *testing.T, fake *fakeBroker, clk *fakeClock, paper bool) *Driver {
	t.Helper()
	return NewDriver(DriverConfig{
		Broker:   fake,
		Catalog:  testCatalog(t),
		Logger:   zerolog.Nop(),
		Clock:    clk,
		MaxPolls: 3,
		Interval: 500 * time.Millisecond,
		Paper:    paper,
	})
}

func testOrder(d *Driver) *models.Order {
	inst := &models.ResolvedInstrument{
		Token: "301", Symbol: "NSE:NIFTY24JUN22000CE", LotSize: 50, Exchange: models.NFO,
	}
	return d.NewOrder(inst, models.OrderSideBuy, models.OrderKindLimit, 50, 101.0)
}

func TestSubmitPaperModeNeverTouchesBroker(t *testing.T) {
	fake := &fakeBroker{}
	d := testDriver(t, fake, &fakeClock{}, true)
	order := testOrder(d)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if fake.placeCalls != 0 {
		t.Errorf("paper submit placed %d broker orders, want 0", fake.placeCalls)
	}
	if !strings.HasPrefix(order.ID, "PAPER-") {
		t.Errorf("paper order id = %q, want PAPER- prefix", order.ID)
	}
	if order.Status != models.OrderFilled || order.AveragePrice != 101.0 || order.FilledQty != 50 {
		t.Errorf("paper order should fill immediately at the limit price, got %+v", order)
	}
}

func TestSubmitBuildsFixedRequestShape(t *testing.T) {
	fake := &fakeBroker{placeResult: &broker.PlaceResult{OrderID: "OD1"}}
	d := testDriver(t, fake, &fakeClock{}, false)
	order := testOrder(d)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	req := fake.lastRequest
	if req.Type != 1 || req.Side != 1 {
		t.Errorf("limit buy should encode type 1 side 1, got type %d side %d", req.Type, req.Side)
	}
	if req.LimitPrice != 101.0 || req.StopPrice != 0 || req.DisclosedQty != 0 {
		t.Errorf("unexpected price fields: %+v", req)
	}
	if req.Validity != "DAY" {
		t.Errorf("validity = %q, want DAY", req.Validity)
	}
	if req.ProductType != string(models.ProductIntraday) {
		t.Errorf("product = %q, want intraday without overnight", req.ProductType)
	}
	if order.ID != "OD1" || order.Status != models.OrderSubmitted {
		t.Errorf("order after submit = %+v", order)
	}
}

func TestSubmitMarketOrderZeroesLimitPrice(t *testing.T) {
	fake := &fakeBroker{placeResult: &broker.PlaceResult{OrderID: "OD1"}}
	d := testDriver(t, fake, &fakeClock{}, false)

	inst := &models.ResolvedInstrument{Token: "101", Symbol: "NSE:SBIN-EQ", LotSize: 1, Exchange: models.NSE}
	order := d.NewOrder(inst, models.OrderSideSell, models.OrderKindMarket, 10, 123.45)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	req := fake.lastRequest
	if req.Type != 2 || req.Side != -1 {
		t.Errorf("market sell should encode type 2 side -1, got type %d side %d", req.Type, req.Side)
	}
	if req.LimitPrice != 0 {
		t.Errorf("market order limitPrice = %v, want 0", req.LimitPrice)
	}
}

func TestSubmitRejectionClassifiesInsufficientFunds(t *testing.T) {
	fake := &fakeBroker{placeErr: errors.NewSubmissionError("NSE:SBIN-EQ", "Insufficient Funds to place order")}
	d := testDriver(t, fake, &fakeClock{}, false)
	order := testOrder(d)

	err := d.Submit(context.Background(), order)
	if !errors.Is(err, errors.ErrInsufficientFunds) {
		t.Errorf("Submit = %v, want ErrInsufficientFunds in chain", err)
	}
	if order.Status != models.OrderRejected {
		t.Errorf("order status = %s, want rejected", order.Status)
	}
}

func TestAwaitTerminalFillsAfterPolls(t *testing.T) {
	pending := []broker.OrderRecord{{ID: "OD1", Status: brokerStatusPending}}
	filled := []broker.OrderRecord{{ID: "OD1", Status: models.BrokerStatusFilled, TradedPrice: 101.5, FilledQty: 50}}
	fake := &fakeBroker{
		placeResult: &broker.PlaceResult{OrderID: "OD1"},
		books:       [][]broker.OrderRecord{pending, pending, filled},
	}
	clk := &fakeClock{now: time.Now()}
	d := testDriver(t, fake, clk, false)
	order := testOrder(d)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := d.AwaitTerminal(context.Background(), order); err != nil {
		t.Fatalf("AwaitTerminal: %v", err)
	}

	if order.Status != models.OrderFilled || order.AveragePrice != 101.5 || order.FilledQty != 50 {
		t.Errorf("filled order = %+v", order)
	}
	if len(fake.cancelCalls) != 0 {
		t.Errorf("fill must not trigger cancels, got %v", fake.cancelCalls)
	}
	if len(clk.sleeps) != 3 {
		t.Errorf("got %d sleeps, want one per poll", len(clk.sleeps))
	}
	for _, s := range clk.sleeps {
		if s != 500*time.Millisecond {
			t.Errorf("sleep = %v, want fixed 500ms interval", s)
		}
	}
}

func TestAwaitTerminalTimeoutCancelsOnce(t *testing.T) {
	pending := []broker.OrderRecord{{ID: "OD1", Status: brokerStatusPending}}
	fake := &fakeBroker{
		placeResult: &broker.PlaceResult{OrderID: "OD1"},
		books:       [][]broker.OrderRecord{pending},
	}
	clk := &fakeClock{now: time.Now()}
	d := testDriver(t, fake, clk, false)
	order := testOrder(d)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	err := d.AwaitTerminal(context.Background(), order)
	if !errors.Is(err, errors.ErrTimedOut) {
		t.Errorf("AwaitTerminal = %v, want ErrTimedOut", err)
	}
	if order.Status != models.OrderTimedOut {
		t.Errorf("order status = %s, want timed out", order.Status)
	}
	if len(fake.cancelCalls) != 1 || fake.cancelCalls[0] != "OD1" {
		t.Errorf("want exactly one best-effort cancel, got %v", fake.cancelCalls)
	}
	if len(clk.sleeps) != 3 {
		t.Errorf("got %d sleeps, want the full poll budget", len(clk.sleeps))
	}
}

func TestAwaitTerminalStatusUnavailable(t *testing.T) {
	fake := &fakeBroker{
		placeResult: &broker.PlaceResult{OrderID: "OD1"},
		bookErr:     errors.NewBrokerError("order_book", "gateway timeout", nil),
	}
	d := testDriver(t, fake, &fakeClock{now: time.Now()}, false)
	order := testOrder(d)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	err := d.AwaitTerminal(context.Background(), order)
	if !errors.Is(err, errors.ErrStatusUnavailable) {
		t.Errorf("AwaitTerminal = %v, want ErrStatusUnavailable", err)
	}
	if len(fake.cancelCalls) != 1 {
		t.Errorf("want one best-effort cancel, got %v", fake.cancelCalls)
	}
}

func TestAwaitTerminalRejectionClassification(t *testing.T) {
	rejected := []broker.OrderRecord{{
		ID: "OD1", Status: models.BrokerStatusRejected,
		Message: "RED:Insufficient balance in account",
	}}
	fake := &fakeBroker{
		placeResult: &broker.PlaceResult{OrderID: "OD1"},
		books:       [][]broker.OrderRecord{rejected},
	}
	d := testDriver(t, fake, &fakeClock{now: time.Now()}, false)
	order := testOrder(d)

	if err := d.Submit(context.Background(), order); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	err := d.AwaitTerminal(context.Background(), order)
	if !errors.Is(err, errors.ErrInsufficientFunds) {
		t.Errorf("AwaitTerminal = %v, want ErrInsufficientFunds for insufficient-balance message", err)
	}
	if order.Status != models.OrderRejected {
		t.Errorf("order status = %s, want rejected", order.Status)
	}
	if len(fake.cancelCalls) != 0 {
		t.Errorf("rejection must not trigger cancels, got %v", fake.cancelCalls)
	}
}

func TestAwaitTerminalCancelledCodes(t *testing.T) {
	for _, status := range []int{models.BrokerStatusCancelled, models.BrokerStatusForDay, models.BrokerStatusExpired} {
		cancelled := []broker.OrderRecord{{ID: "OD1", Status: status}}
		fake := &fakeBroker{
			placeResult: &broker.PlaceResult{OrderID: "OD1"},
			books:       [][]broker.OrderRecord{cancelled},
		}
		d := testDriver(t, fake, &fakeClock{now: time.Now()}, false)
		order := testOrder(d)

		if err := d.Submit(context.Background(), order); err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if err := d.AwaitTerminal(context.Background(), order); err != nil {
			t.Errorf("status %d: AwaitTerminal = %v, want nil", status, err)
		}
		if order.Status != models.OrderCancelled {
			t.Errorf("status %d mapped to %s, want cancelled", status, order.Status)
		}
	}
}

func TestResolveFillPriceFallsBackToQuote(t *testing.T) {
	fake := &fakeBroker{
		quotes: map[string]models.Quote{
			"NSE:NIFTY24JUN22000CE": {Symbol: "NSE:NIFTY24JUN22000CE", LTP: 99.5},
		},
	}
	d := testDriver(t, fake, &fakeClock{}, false)
	order := testOrder(d)
	order.Status = models.OrderFilled
	order.AveragePrice = 0

	d.ResolveFillPrice(context.Background(), order)
	if order.AveragePrice != 99.5 {
		t.Errorf("average price = %v, want the LTP fallback", order.AveragePrice)
	}
}

func TestResolveFillPriceKeepsBrokerPrice(t *testing.T) {
	fake := &fakeBroker{
		quotes: map[string]models.Quote{
			"NSE:NIFTY24JUN22000CE": {Symbol: "NSE:NIFTY24JUN22000CE", LTP: 99.5},
		},
	}
	d := testDriver(t, fake, &fakeClock{}, false)
	order := testOrder(d)
	order.Status = models.OrderFilled
	order.AveragePrice = 101.5

	d.ResolveFillPrice(context.Background(), order)
	if order.AveragePrice != 101.5 {
		t.Errorf("average price = %v, want the broker-reported price kept", order.AveragePrice)
	}
}

func TestResolveFillPriceDegradesToZero(t *testing.T) {
	fake := &fakeBroker{quotesErr: errors.NewBrokerError("quotes", "unreachable", nil)}
	d := testDriver(t, fake, &fakeClock{}, false)
	order := testOrder(d)
	order.Status = models.OrderFilled
	order.AveragePrice = 0

	d.ResolveFillPrice(context.Background(), order)
	if order.AveragePrice != 0 {
		t.Errorf("average price = %v, want zero on quote failure", order.AveragePrice)
	}
}

func TestCancelSwallowsFailures(t *testing.T) {
	fake := &fakeBroker{cancelErr: errors.NewBrokerError("cancel_order", "already terminal", nil)}
	d := testDriver(t, fake, &fakeClock{}, false)

	d.Cancel(context.Background(), "OD1") // must not panic or propagate
	if len(fake.cancelCalls) != 1 {
		t.Errorf("cancel calls = %v, want one forwarded cancel", fake.cancelCalls)
	}
}

func TestAvailableFunds(t *testing.T) {
	fake := &fakeBroker{funds: []models.FundLimit{
		{ID: 1, Title: "Total Balance", EquityAmount: 500000},
		{ID: models.EquityFundID, Title: "Available Balance", EquityAmount: 123456.78},
	}}
	d := testDriver(t, fake, &fakeClock{}, false)

	if got := d.AvailableFunds(context.Background()); got != 123456.78 {
		t.Errorf("AvailableFunds = %v, want the id-10 equity record", got)
	}
}

func TestAvailableFundsDegradesToZero(t *testing.T) {
	fake := &fakeBroker{fundsErr: errors.NewBrokerError("funds", "unreachable", nil)}
	d := testDriver(t, fake, &fakeClock{}, false)

	if got := d.AvailableFunds(context.Background()); got != 0 {
		t.Errorf("AvailableFunds = %v, want zero on transport failure", got)
	}
}

func TestExecuteEndToEndPaper(t *testing.T) {
	fake := &fakeBroker{}
	d := testDriver(t, fake, &fakeClock{}, true)

	order, err := d.Execute(context.Background(), models.TradeIntent{
		Exchange:       models.NFO,
		Symbol:         "NIFTY",
		InstrumentType: "OPTIDX",
		Strike:         decimal.NewFromInt(22000),
		Right:          models.RightCall,
		ExpiryClass:    models.ExpiryNearestWeekly,
	}, models.OrderSideBuy, models.OrderKindLimit, 50, 101.0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if order.Symbol != "NSE:NIFTY24JUN22000CE" {
		t.Errorf("resolved symbol = %q", order.Symbol)
	}
	if order.Status != models.OrderFilled {
		t.Errorf("paper execute status = %s, want filled", order.Status)
	}
	if order.Product != models.ProductIntraday {
		t.Errorf("product = %s, want intraday", order.Product)
	}
}
