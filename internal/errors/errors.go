// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors
var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrSessionExpired    = errors.New("session expired")
	ErrDataUnavailable   = errors.New("instrument data unavailable")
	ErrNotFound          = errors.New("instrument not found")
	ErrExpiryOutOfRange  = errors.New("expiry ordinal out of range")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderRejected     = errors.New("order rejected")
	ErrTimedOut          = errors.New("order timed out")
	ErrStatusUnavailable = errors.New("order status unavailable")
	ErrConfigInvalid     = errors.New("invalid configuration")
	ErrDatabaseError     = errors.New("database error")
)

// BrokerError represents a transport or service failure from the broker API.
type BrokerError struct {
	Op      string
	Message string
	Err     error
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("broker error [%s]: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("broker error [%s]: %s", e.Op, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new BrokerError.
func NewBrokerError(op, message string, err error) *BrokerError {
	return &BrokerError{
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// SubmissionError represents an order the broker refused or could not
// accept. Reason carries the broker-supplied message verbatim. When the
// message indicates a funds shortfall the error unwraps to
// ErrInsufficientFunds, otherwise to ErrOrderRejected.
type SubmissionError struct {
	Symbol string
	Reason string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("order submission failed [%s]: %s", e.Symbol, e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	if IsInsufficientFundsMessage(e.Reason) {
		return ErrInsufficientFunds
	}
	return ErrOrderRejected
}

// NewSubmissionError creates a new SubmissionError.
func NewSubmissionError(symbol, reason string) *SubmissionError {
	return &SubmissionError{Symbol: symbol, Reason: reason}
}

// IsInsufficientFundsMessage reports whether a broker rejection message
// indicates a funds shortfall. Matching is case-insensitive on the
// "insufficient" substring, per observed broker messages.
func IsInsufficientFundsMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "insufficient")
}

// LookupError represents a failed catalog lookup with its query context.
type LookupError struct {
	Exchange string
	Symbol   string
	Detail   string
	Err      error
}

func (e *LookupError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("lookup %s:%s: %s: %v", e.Exchange, e.Symbol, e.Detail, e.Err)
	}
	return fmt.Sprintf("lookup %s:%s: %v", e.Exchange, e.Symbol, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// NewLookupError creates a new LookupError.
func NewLookupError(exchange, symbol, detail string, err error) *LookupError {
	return &LookupError{Exchange: exchange, Symbol: symbol, Detail: detail, Err: err}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
