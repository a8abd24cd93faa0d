package broker

import (
	"context"
	"strings"
	"testing"

	"fyers-trader/internal/errors"
	"fyers-trader/internal/models"
)

func TestPaperPlaceOrderFillsImmediately(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialBalance: 100000})

	result, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol:     "NSE:SBIN-EQ",
		Qty:        10,
		Type:       models.OrderKindLimit.Code(),
		Side:       models.OrderSideBuy.Code(),
		LimitPrice: 550,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if !strings.HasPrefix(result.OrderID, "PAPER_") {
		t.Errorf("order id = %q", result.OrderID)
	}

	book, err := p.GetOrderBook(context.Background())
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	if len(book) != 1 || book[0].Status != models.BrokerStatusFilled {
		t.Errorf("order book = %+v, want one filled order", book)
	}
	if book[0].TradedPrice != 550 || book[0].FilledQty != 10 {
		t.Errorf("fill = %+v", book[0])
	}
}

func TestPaperPlaceOrderInsufficientFunds(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialBalance: 100})

	_, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol:     "NSE:SBIN-EQ",
		Qty:        10,
		Type:       models.OrderKindLimit.Code(),
		Side:       models.OrderSideBuy.Code(),
		LimitPrice: 550,
	})
	if !errors.Is(err, errors.ErrInsufficientFunds) {
		t.Errorf("PlaceOrder = %v, want ErrInsufficientFunds", err)
	}
}

func TestPaperBalanceTracksTrades(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialBalance: 100000})

	_, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol:     "NSE:SBIN-EQ",
		Qty:        10,
		Type:       models.OrderKindLimit.Code(),
		Side:       models.OrderSideBuy.Code(),
		LimitPrice: 550,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	funds, err := p.GetFunds(context.Background())
	if err != nil {
		t.Fatalf("GetFunds: %v", err)
	}
	if len(funds) != 1 || funds[0].ID != models.EquityFundID {
		t.Fatalf("funds = %+v", funds)
	}
	if funds[0].EquityAmount != 100000-5500 {
		t.Errorf("balance = %v, want buy debited", funds[0].EquityAmount)
	}
}

func TestPaperCancelFilledOrderFails(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{InitialBalance: 100000})

	result, err := p.PlaceOrder(context.Background(), OrderRequest{
		Symbol:     "NSE:SBIN-EQ",
		Qty:        1,
		Type:       models.OrderKindLimit.Code(),
		Side:       models.OrderSideBuy.Code(),
		LimitPrice: 550,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if err := p.CancelOrder(context.Background(), result.OrderID); err == nil {
		t.Error("cancelling a filled order must fail")
	}
	if err := p.CancelOrder(context.Background(), "missing"); err == nil {
		t.Error("cancelling an unknown order must fail")
	}
}

func TestPaperQuotesFromPriceCache(t *testing.T) {
	p := NewPaperBroker(PaperBrokerConfig{})
	p.UpdatePrice("NSE:SBIN-EQ", 551.25)

	quotes, err := p.GetQuotes(context.Background(), []string{"NSE:SBIN-EQ", "NSE:INFY-EQ"})
	if err != nil {
		t.Fatalf("GetQuotes: %v", err)
	}
	if q, ok := quotes["NSE:SBIN-EQ"]; !ok || q.LTP != 551.25 {
		t.Errorf("quotes = %+v", quotes)
	}
	if _, ok := quotes["NSE:INFY-EQ"]; ok {
		t.Error("uncached symbol must not produce a quote")
	}
}

func TestSubmissionFailureParsing(t *testing.T) {
	resp := fyersResponse{S: "error", Message: "Insufficient funds"}
	if !resp.failed() {
		t.Error("error status must report failure")
	}
	ok := fyersResponse{S: "OK"}
	if ok.failed() {
		t.Error("ok status must not report failure, case-insensitively")
	}
}
