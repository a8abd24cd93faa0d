package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/rs/zerolog"

	"fyers-trader/internal/errors"
	"fyers-trader/internal/logging"
	"fyers-trader/internal/models"
)

const (
	apiBaseURL  = "https://api.fyers.in/api/v2"
	dataBaseURL = "https://api.fyers.in/data-rest/v2"
)

// FyersBroker implements the Broker interface against the Fyers v2 REST API.
type FyersBroker struct {
	client  *http.Client
	session *Session
	logger  zerolog.Logger
}

// FyersConfig holds configuration for the Fyers broker.
type FyersConfig struct {
	AppID       string
	AppSecret   string
	ClientID    string
	PIN         string
	TOTPSecret  string
	RedirectURI string
	SessionPath string
}

// NewFyersBroker creates a Fyers broker instance. Any persisted session
// is loaded automatically.
func NewFyersBroker(cfg FyersConfig, logger zerolog.Logger) *FyersBroker {
	return &FyersBroker{
		client:  &http.Client{Timeout: 15 * time.Second},
		session: NewSession(cfg),
		logger:  logger.With().Str("component", "fyers").Logger(),
	}
}

// Login establishes an authenticated session, preferring a persisted
// token and falling back to the headless TOTP flow when credentials for
// it are configured.
func (f *FyersBroker) Login(ctx context.Context) error {
	return f.session.Login(ctx, f.client, f.logger)
}

// Logout invalidates the local session.
func (f *FyersBroker) Logout(ctx context.Context) error {
	return f.session.Clear()
}

// IsAuthenticated returns whether a usable access token is held.
func (f *FyersBroker) IsAuthenticated() bool {
	return f.session.Valid()
}

// CompleteLogin exchanges an auth code obtained from the login URL for
// an access token.
func (f *FyersBroker) CompleteLogin(ctx context.Context, authCode string) error {
	return f.session.ExchangeAuthCode(ctx, f.client, authCode)
}

// LoginURL returns the URL a user visits to obtain an auth code.
func (f *FyersBroker) LoginURL() string {
	return f.session.AuthCodeURL()
}

// NewTicker creates a data-socket ticker sharing this broker's session.
func (f *FyersBroker) NewTicker() Ticker {
	return NewFyersTicker(f.session, f.logger)
}

// fyersResponse is the common envelope of Fyers API responses.
type fyersResponse struct {
	S       string `json:"s"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (r fyersResponse) failed() bool {
	return !strings.EqualFold(r.S, "ok")
}

// PlaceOrder submits an order. A response without an order id, or with
// an explicit failure status, reports a SubmissionError carrying the
// broker message verbatim.
func (f *FyersBroker) PlaceOrder(ctx context.Context, req OrderRequest) (*PlaceResult, error) {
	start := time.Now()

	var resp struct {
		fyersResponse
		ID string `json:"id"`
	}
	err := f.doJSON(ctx, http.MethodPost, apiBaseURL+"/orders", req, &resp)
	logging.LogAPICall(f.logger, http.MethodPost, "/orders", time.Since(start), err)
	if err != nil {
		return nil, errors.NewBrokerError("place_order", "request failed", err)
	}

	if resp.failed() || resp.ID == "" {
		return nil, errors.NewSubmissionError(req.Symbol, resp.Message)
	}
	return &PlaceResult{OrderID: resp.ID, Message: resp.Message}, nil
}

// CancelOrder requests cancellation of an open order.
func (f *FyersBroker) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]string{"id": orderID}

	var resp fyersResponse
	err := f.doJSON(ctx, http.MethodDelete, apiBaseURL+"/orders", body, &resp)
	if err != nil {
		return errors.NewBrokerError("cancel_order", "request failed", err)
	}
	if resp.failed() {
		return errors.NewBrokerError("cancel_order", resp.Message, nil)
	}
	return nil
}

// GetOrderBook fetches the day's order book.
func (f *FyersBroker) GetOrderBook(ctx context.Context) ([]OrderRecord, error) {
	var resp struct {
		fyersResponse
		OrderBook []OrderRecord `json:"orderBook"`
	}
	err := f.doJSON(ctx, http.MethodGet, apiBaseURL+"/orders", nil, &resp)
	if err != nil {
		return nil, errors.NewBrokerError("order_book", "request failed", err)
	}
	if resp.failed() {
		return nil, errors.NewBrokerError("order_book", resp.Message, nil)
	}
	return resp.OrderBook, nil
}

// quotesParams is the query shape of the data API quotes endpoint.
type quotesParams struct {
	Symbols string `url:"symbols"`
}

// GetQuotes fetches last-traded prices for one or more symbol tickers.
func (f *FyersBroker) GetQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	params, err := query.Values(quotesParams{Symbols: strings.Join(symbols, ",")})
	if err != nil {
		return nil, errors.NewBrokerError("quotes", "encoding query", err)
	}

	var resp struct {
		fyersResponse
		D []struct {
			N string `json:"n"`
			S string `json:"s"`
			V struct {
				LP float64 `json:"lp"`
				TT int64   `json:"tt"`
			} `json:"v"`
		} `json:"d"`
	}
	url := dataBaseURL + "/quotes/?" + params.Encode()
	if err := f.doJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, errors.NewBrokerError("quotes", "request failed", err)
	}
	if resp.failed() {
		return nil, errors.NewBrokerError("quotes", resp.Message, nil)
	}

	quotes := make(map[string]models.Quote, len(resp.D))
	for _, d := range resp.D {
		if !strings.EqualFold(d.S, "ok") {
			continue
		}
		quotes[d.N] = models.Quote{
			Symbol:    d.N,
			LTP:       d.V.LP,
			Timestamp: time.Unix(d.V.TT, 0),
		}
	}
	return quotes, nil
}

// GetFunds fetches the fund limit records.
func (f *FyersBroker) GetFunds(ctx context.Context) ([]models.FundLimit, error) {
	var resp struct {
		fyersResponse
		FundLimit []models.FundLimit `json:"fund_limit"`
	}
	err := f.doJSON(ctx, http.MethodGet, apiBaseURL+"/funds", nil, &resp)
	if err != nil {
		return nil, errors.NewBrokerError("funds", "request failed", err)
	}
	if resp.failed() {
		return nil, errors.NewBrokerError("funds", resp.Message, nil)
	}
	return resp.FundLimit, nil
}

// doJSON performs an authenticated JSON request against the Fyers API.
func (f *FyersBroker) doJSON(ctx context.Context, method, url string, body, out interface{}) error {
	token, err := f.session.AccessToken()
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	// Fyers expects "appId:token" rather than a Bearer scheme
	req.Header.Set("Authorization", f.session.cfg.AppID+":"+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.ErrSessionExpired
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Ensure FyersBroker implements the Broker interface
var _ Broker = (*FyersBroker)(nil)
