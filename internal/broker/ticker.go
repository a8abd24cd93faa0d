package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fyers-trader/internal/models"
)

const dataSocketURL = "wss://api.fyers.in/socket/v2/dataSock"

// FyersTicker streams last-traded prices over the Fyers data socket.
type FyersTicker struct {
	session *Session
	logger  zerolog.Logger

	conn      *websocket.Conn
	connected bool
	done      chan struct{}

	subscribed map[string]bool

	tickHandler  func(models.Tick)
	errorHandler func(error)

	mu sync.Mutex
}

// NewFyersTicker creates a ticker sharing the broker's session.
func NewFyersTicker(session *Session, logger zerolog.Logger) *FyersTicker {
	return &FyersTicker{
		session:    session,
		logger:     logger.With().Str("component", "ticker").Logger(),
		subscribed: make(map[string]bool),
	}
}

// Connect dials the data socket and starts the read loop.
func (t *FyersTicker) Connect(ctx context.Context) error {
	token, err := t.session.AccessToken()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	url := fmt.Sprintf("%s?access_token=%s:%s&user-agent=fyers-api&type=symbolUpdate",
		dataSocketURL, t.session.cfg.AppID, token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connecting data socket: %w", err)
	}

	t.conn = conn
	t.connected = true
	t.done = make(chan struct{})
	go t.readLoop(t.conn, t.done)

	return nil
}

// Disconnect closes the socket and stops the read loop.
func (t *FyersTicker) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	t.connected = false
	close(t.done)
	return t.conn.Close()
}

// subscribeMessage is the symbol subscription frame.
type subscribeMessage struct {
	T       string   `json:"T"`
	SymList []string `json:"L2LIST"`
	SubT    int      `json:"SUB_T"`
}

// Subscribe registers symbol tickers for streaming updates.
func (t *FyersTicker) Subscribe(symbols []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return fmt.Errorf("ticker not connected")
	}
	for _, s := range symbols {
		t.subscribed[s] = true
	}
	return t.conn.WriteJSON(subscribeMessage{T: "SUB_L2", SymList: symbols, SubT: 1})
}

// Unsubscribe removes symbols from the stream.
func (t *FyersTicker) Unsubscribe(symbols []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return fmt.Errorf("ticker not connected")
	}
	for _, s := range symbols {
		delete(t.subscribed, s)
	}
	return t.conn.WriteJSON(subscribeMessage{T: "SUB_L2", SymList: symbols, SubT: 0})
}

// OnTick registers the tick handler.
func (t *FyersTicker) OnTick(handler func(models.Tick)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tickHandler = handler
}

// OnError registers the error handler.
func (t *FyersTicker) OnError(handler func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// tickMessage is one symbol update frame from the data socket.
type tickMessage struct {
	Symbol string  `json:"symbol"`
	LTP    float64 `json:"ltp"`
	Volume int64   `json:"vol_traded_today"`
	TT     int64   `json:"last_traded_time"`
}

func (t *FyersTicker) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			t.dispatchError(err)
			return
		}

		var msg tickMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Symbol == "" {
			// Heartbeats and acks are not tick frames
			continue
		}

		t.dispatchTick(models.Tick{
			Symbol:    msg.Symbol,
			LTP:       msg.LTP,
			Volume:    msg.Volume,
			Timestamp: time.Unix(msg.TT, 0),
		})
	}
}

func (t *FyersTicker) dispatchTick(tick models.Tick) {
	t.mu.Lock()
	handler := t.tickHandler
	t.mu.Unlock()

	if handler != nil {
		handler(tick)
	}
}

func (t *FyersTicker) dispatchError(err error) {
	t.logger.Error().Err(err).Msg("Data socket read failed")

	t.mu.Lock()
	handler := t.errorHandler
	t.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}

// Ensure FyersTicker implements the Ticker interface
var _ Ticker = (*FyersTicker)(nil)
