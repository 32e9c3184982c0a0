package data

import (
	"context"
	"errors"
	"time"

	"MarketPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitBreakerRepo persists per-dependency circuit state in the durable
// store. State is created lazily on the first reported outcome and expires
// passively when a dependency goes quiet.
type CircuitBreakerRepo struct {
	kv     KVStore
	logger *log.Helper
}

// NewCircuitBreakerRepo creates a new circuit breaker repository.
func NewCircuitBreakerRepo(kv KVStore, logger log.Logger) *CircuitBreakerRepo {
	return &CircuitBreakerRepo{
		kv:     kv,
		logger: log.NewHelper(logger),
	}
}

// GetState loads the circuit state for a dependency name. A missing key
// yields a fresh zero-valued state, not an error.
func (r *CircuitBreakerRepo) GetState(ctx context.Context, name string) (*model.CircuitState, error) {
	var state model.CircuitState
	err := r.kv.Get(ctx, BuildKey(KeyCircuit, name), &state)
	if errors.Is(err, ErrKVNotFound) {
		return &model.CircuitState{Name: name}, nil
	}
	if err != nil {
		return nil, err
	}
	state.Name = name
	return &state, nil
}

// PutState stores the circuit state with the idle TTL. Last write wins;
// concurrent reporters may lose an increment, which is acceptable for a
// soft guardrail.
func (r *CircuitBreakerRepo) PutState(ctx context.Context, state *model.CircuitState) error {
	return r.kv.Put(ctx, BuildKey(KeyCircuit, state.Name), state, TTLCircuitIdle)
}

// RecordFailure increments the consecutive failure count and opens the
// breaker once the threshold is reached. It returns the updated state.
func (r *CircuitBreakerRepo) RecordFailure(ctx context.Context, name string, threshold int, cooldown time.Duration) (*model.CircuitState, error) {
	state, err := r.GetState(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	state.ConsecutiveFailures++
	state.LastFailureAt = now

	if state.ConsecutiveFailures >= threshold && state.OpenUntil <= now.UnixMilli() {
		state.OpenUntil = now.Add(cooldown).UnixMilli()
		r.logger.Warnw("circuit opened",
			"name", name,
			"consecutive_failures", state.ConsecutiveFailures,
			"open_until", time.UnixMilli(state.OpenUntil).Format(time.RFC3339))
	}

	if err := r.PutState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// RecordSuccess resets the failure count and closes the breaker.
func (r *CircuitBreakerRepo) RecordSuccess(ctx context.Context, name string) (*model.CircuitState, error) {
	state, err := r.GetState(ctx, name)
	if err != nil {
		return nil, err
	}

	wasOpen := state.OpenUntil > 0
	state.ConsecutiveFailures = 0
	state.OpenUntil = 0
	state.LastSuccessAt = time.Now()

	if err := r.PutState(ctx, state); err != nil {
		return nil, err
	}

	if wasOpen {
		r.logger.Infow("circuit closed after success", "name", name)
	}
	return state, nil
}
