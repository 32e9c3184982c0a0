// Package errors provides error classification for outbound calls and
// storage access. Every error crossing a component boundary is sorted into
// the Transient / Permanent / Storage / Validation taxonomy so callers can
// decide between retrying, advancing to a fallback, or degrading.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// CallErrorType represents the class of a failed outbound call.
type CallErrorType int

const (
	// ErrorTypeTransient covers timeouts, 5xx responses and 429-style
	// throttling. The caller may rotate credentials or advance to the
	// next provider.
	ErrorTypeTransient CallErrorType = iota
	// ErrorTypePermanent covers other 4xx responses and malformed or
	// unexpected response shapes. Retrying the same provider is useless.
	ErrorTypePermanent
	// ErrorTypeStorage covers durable-store access failures. Consumers
	// fail open or degrade to a miss, never crash.
	ErrorTypeStorage
	// ErrorTypeValidation covers schema-constrained payloads that failed
	// validation. At most one repair attempt, then graceful degradation.
	ErrorTypeValidation
)

// CallError wraps an outbound call failure with its classification.
type CallError struct {
	Type       CallErrorType
	StatusCode int // HTTP status if the call got a response, 0 otherwise
	Provider   string
	Err        error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Err
}

// NewTransient creates a transient call error.
func NewTransient(provider string, status int, err error) *CallError {
	return &CallError{Type: ErrorTypeTransient, StatusCode: status, Provider: provider, Err: err}
}

// NewPermanent creates a permanent call error.
func NewPermanent(provider string, status int, err error) *CallError {
	return &CallError{Type: ErrorTypePermanent, StatusCode: status, Provider: provider, Err: err}
}

// NewStorage creates a storage error.
func NewStorage(err error) *CallError {
	return &CallError{Type: ErrorTypeStorage, Provider: "storage", Err: err}
}

// FromStatus classifies an HTTP response status for the given provider.
// 429 and all 5xx are transient; everything else non-2xx is permanent.
func FromStatus(provider string, status int, err error) *CallError {
	if status == 429 || status >= 500 {
		return NewTransient(provider, status, err)
	}
	return NewPermanent(provider, status, err)
}

// Classify sorts an arbitrary error into the taxonomy. Already-classified
// errors keep their type; context deadlines and network errors are
// transient; anything unrecognized is treated as permanent so a broken
// provider is abandoned rather than hammered.
func Classify(provider string, err error) *CallError {
	if err == nil {
		return nil
	}

	var ce *CallError
	if errors.As(err, &ce) {
		return ce
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewTransient(provider, 0, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewTransient(provider, 0, err)
	}

	if isConnectionError(err.Error()) {
		return NewTransient(provider, 0, err)
	}

	return NewPermanent(provider, 0, err)
}

// IsTransient checks whether the error is in the transient class.
func IsTransient(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Type == ErrorTypeTransient
}

// IsPermanent checks whether the error is in the permanent class.
func IsPermanent(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Type == ErrorTypePermanent
}

// IsStorage checks whether the error is a storage access failure.
func IsStorage(err error) bool {
	var ce *CallError
	return errors.As(err, &ce) && ce.Type == ErrorTypeStorage
}

// isConnectionError checks if the error message indicates a connection
// problem that did not surface as a net.Error.
func isConnectionError(errMsg string) bool {
	connectionKeywords := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"connection lost",
		"bad connection",
		"invalid connection",
		"dial tcp",
	}

	lower := strings.ToLower(errMsg)
	for _, keyword := range connectionKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
