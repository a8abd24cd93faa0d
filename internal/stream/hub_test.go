package stream

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"fyers-trader/internal/models"
)

func startedHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.Stop)
	return h
}

func TestSubscribeReceivesPublishedTicks(t *testing.T) {
	h := startedHub(t)
	ch := h.Subscribe("NSE:SBIN-EQ")

	tick := models.Tick{Symbol: "NSE:SBIN-EQ", LTP: 550.5, Timestamp: time.Now()}
	h.Publish(tick)

	select {
	case got := <-ch:
		if got.LTP != 550.5 {
			t.Errorf("got LTP %v, want 550.5", got.LTP)
		}
	case <-time.After(time.Second):
		t.Fatal("tick not delivered")
	}
}

func TestTicksRouteBySymbol(t *testing.T) {
	h := startedHub(t)
	sbin := h.Subscribe("NSE:SBIN-EQ")
	infy := h.Subscribe("NSE:INFY-EQ")

	h.Publish(models.Tick{Symbol: "NSE:SBIN-EQ", LTP: 550})

	select {
	case <-sbin:
	case <-time.After(time.Second):
		t.Fatal("tick not delivered to its symbol's subscriber")
	}

	select {
	case tick := <-infy:
		t.Errorf("unrelated subscriber received %+v", tick)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := startedHub(t)
	ch := h.Subscribe("NSE:SBIN-EQ")

	h.Unsubscribe("NSE:SBIN-EQ", ch)

	if _, open := <-ch; open {
		t.Error("unsubscribed channel should be closed")
	}
	if h.SubscriberCount("NSE:SBIN-EQ") != 0 {
		t.Error("subscriber should be removed")
	}
}

func TestStopClosesAllSubscribers(t *testing.T) {
	h := NewHub()
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch := h.Subscribe("NSE:SBIN-EQ")

	h.Stop()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("subscriber channel not closed on Stop")
		}
	}
}

// Property: publishing never blocks, regardless of subscriber count or
// buffer pressure, and every received tick was previously published.
func TestProperty_PublishNeverBlocks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("publish completes under buffer pressure", prop.ForAll(
		func(tickCount int, bufferSize int) bool {
			h := NewHubWithConfig(HubConfig{BufferSize: bufferSize, SubscriberBufferSize: 1})
			// Deliberately not started: the internal buffer fills and
			// Publish must still return immediately.
			done := make(chan struct{})
			go func() {
				for i := 0; i < tickCount; i++ {
					h.Publish(models.Tick{Symbol: "NSE:SBIN-EQ", LTP: float64(i)})
				}
				close(done)
			}()

			select {
			case <-done:
				return true
			case <-time.After(2 * time.Second):
				return false
			}
		},
		gen.IntRange(1, 500),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
