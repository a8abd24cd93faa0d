package utils

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}

	attempts := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, fmt.Errorf("attempt %d failed", attempts)
		}
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("RetryWithResult = %d/%v", got, err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return fmt.Errorf("attempt %d failed", attempts)
	})
	if err == nil || err.Error() != "attempt 2 failed" {
		t.Errorf("Retry = %v, want the final attempt's error", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Retry(ctx, RetryConfig{MaxAttempts: 10, InitialDelay: time.Millisecond}, func() error {
		attempts++
		cancel()
		return fmt.Errorf("boom")
	})
	if err != context.Canceled {
		t.Errorf("Retry = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
