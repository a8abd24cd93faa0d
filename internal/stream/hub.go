// Package stream fans out market data ticks to multiple consumers.
package stream

import (
	"context"
	"sync"
	"time"

	"fyers-trader/internal/broker"
	"fyers-trader/internal/models"
)

// HubConfig holds configuration for the tick hub.
type HubConfig struct {
	// BufferSize is the size of the internal tick channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           1000,
		SubscriberBufferSize: 100,
	}
}

// Hub distributes ticks from a single data-socket source to any number
// of per-symbol subscribers. Sends to subscribers never block; a slow
// consumer drops ticks rather than stalling the read loop.
type Hub struct {
	config HubConfig
	ticker broker.Ticker

	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	tickChan    chan models.Tick
	done        chan struct{}
	started     bool

	metricsMu      sync.RWMutex
	ticksReceived  uint64
	ticksBroadcast uint64
	ticksDropped   uint64
}

type subscriber struct {
	ch        chan models.Tick
	createdAt time.Time
}

// NewHub creates a hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{
		config:      config,
		subscribers: make(map[string][]*subscriber),
		tickChan:    make(chan models.Tick, config.BufferSize),
		done:        make(chan struct{}),
	}
}

// NewHubWithTicker creates a hub fed by a ticker.
func NewHubWithTicker(ticker broker.Ticker) *Hub {
	h := NewHub()
	h.ticker = ticker
	return h
}

// Start connects the ticker (when one is set) and begins distributing
// ticks to subscribers.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.mu.Unlock()

	go h.broadcastLoop(ctx)

	if h.ticker != nil {
		h.ticker.OnTick(h.Publish)
		if err := h.ticker.Connect(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops distribution and closes all subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}
	close(h.done)
	h.started = false

	for symbol, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.ch)
		}
		delete(h.subscribers, symbol)
	}

	if h.ticker != nil {
		h.ticker.Disconnect()
	}
}

func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case tick := <-h.tickChan:
			h.metricsMu.Lock()
			h.ticksReceived++
			h.metricsMu.Unlock()
			h.broadcast(tick)
		}
	}
}

// Subscribe registers for a symbol's ticks and returns the receiving
// channel. The ticker subscription is forwarded when a ticker is set.
func (h *Hub) Subscribe(symbol string) <-chan models.Tick {
	sub := &subscriber{
		ch:        make(chan models.Tick, h.config.SubscriberBufferSize),
		createdAt: time.Now(),
	}

	h.mu.Lock()
	h.subscribers[symbol] = append(h.subscribers[symbol], sub)
	h.mu.Unlock()

	if h.ticker != nil {
		h.ticker.Subscribe([]string{symbol})
	}
	return sub.ch
}

// Unsubscribe removes a subscriber channel for a symbol. The last
// subscriber leaving drops the ticker subscription too.
func (h *Hub) Unsubscribe(symbol string, ch <-chan models.Tick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[symbol]
	for i, sub := range subs {
		if sub.ch == ch {
			close(sub.ch)
			h.subscribers[symbol] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(h.subscribers[symbol]) == 0 {
		delete(h.subscribers, symbol)
		if h.ticker != nil {
			h.ticker.Unsubscribe([]string{symbol})
		}
	}
}

// Publish hands a tick to the hub. Non-blocking; a full internal buffer
// drops the tick.
func (h *Hub) Publish(tick models.Tick) {
	select {
	case h.tickChan <- tick:
	default:
		h.metricsMu.Lock()
		h.ticksDropped++
		h.metricsMu.Unlock()
	}
}

func (h *Hub) broadcast(tick models.Tick) {
	h.mu.RLock()
	subs := h.subscribers[tick.Symbol]
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- tick:
			h.metricsMu.Lock()
			h.ticksBroadcast++
			h.metricsMu.Unlock()
		default:
			h.metricsMu.Lock()
			h.ticksDropped++
			h.metricsMu.Unlock()
		}
	}
}

// SubscriberCount returns the number of subscribers for a symbol.
func (h *Hub) SubscriberCount(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[symbol])
}

// SubscribedSymbols returns all symbols with active subscribers.
func (h *Hub) SubscribedSymbols() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	symbols := make([]string, 0, len(h.subscribers))
	for symbol := range h.subscribers {
		symbols = append(symbols, symbol)
	}
	return symbols
}

// Metrics returns hub counters.
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()

	return HubMetrics{
		TicksReceived:  h.ticksReceived,
		TicksBroadcast: h.ticksBroadcast,
		TicksDropped:   h.ticksDropped,
	}
}

// HubMetrics contains hub counters.
type HubMetrics struct {
	TicksReceived  uint64
	TicksBroadcast uint64
	TicksDropped   uint64
}

// IsStarted returns whether the hub is running.
func (h *Hub) IsStarted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}
