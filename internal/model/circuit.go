package model

import "time"

// CircuitState represents the per-dependency circuit breaker state.
// It is created lazily on the first reported outcome for a dependency
// name and expires passively in storage when idle.
type CircuitState struct {
	Name                string    `json:"name"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	OpenUntil           int64     `json:"open_until"` // Unix millis, 0 = closed
	LastFailureAt       time.Time `json:"last_failure_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
}

// IsOpen reports whether the breaker is open at the given instant.
func (s *CircuitState) IsOpen(now time.Time) bool {
	return s.OpenUntil > now.UnixMilli()
}
