package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreakerRepo(t *testing.T) *CircuitBreakerRepo {
	rdb, _ := setupTestRedis(t)
	t.Cleanup(func() { rdb.Close() })

	logger := log.NewStdLogger(os.Stdout)
	return NewCircuitBreakerRepo(NewKVStore(rdb), logger)
}

func TestCircuitBreaker_MissingStateIsFresh(t *testing.T) {
	repo := newTestBreakerRepo(t)

	state, err := repo.GetState(context.Background(), "market:primary")
	require.NoError(t, err)
	assert.Equal(t, "market:primary", state.Name)
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.False(t, state.IsOpen(time.Now()))
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	repo := newTestBreakerRepo(t)
	ctx := context.Background()

	state, err := repo.RecordFailure(ctx, "ai:openai-main", 3, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, state.ConsecutiveFailures)
	assert.False(t, state.IsOpen(time.Now()))

	state, err = repo.RecordFailure(ctx, "ai:openai-main", 3, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, state.ConsecutiveFailures)
	assert.False(t, state.IsOpen(time.Now()))

	// Third consecutive failure opens the circuit.
	state, err = repo.RecordFailure(ctx, "ai:openai-main", 3, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, state.ConsecutiveFailures)
	assert.True(t, state.IsOpen(time.Now()))

	// Cooldown horizon is roughly now+5m.
	openUntil := time.UnixMilli(state.OpenUntil)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), openUntil, 5*time.Second)
}

func TestCircuitBreaker_CooldownElapses(t *testing.T) {
	repo := newTestBreakerRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.RecordFailure(ctx, "market:backup", 3, 5*time.Minute)
		require.NoError(t, err)
	}

	state, err := repo.GetState(ctx, "market:backup")
	require.NoError(t, err)
	assert.True(t, state.IsOpen(time.Now()))
	// After the cooldown instant the same persisted state reads closed.
	assert.False(t, state.IsOpen(time.Now().Add(6*time.Minute)))
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	repo := newTestBreakerRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.RecordFailure(ctx, "ai:fallback", 3, 5*time.Minute)
		require.NoError(t, err)
	}

	state, err := repo.RecordSuccess(ctx, "ai:fallback")
	require.NoError(t, err)
	assert.Equal(t, 0, state.ConsecutiveFailures)
	assert.False(t, state.IsOpen(time.Now()))
	assert.False(t, state.LastSuccessAt.IsZero())

	// A single new failure does not reopen immediately.
	state, err = repo.RecordFailure(ctx, "ai:fallback", 3, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, state.ConsecutiveFailures)
	assert.False(t, state.IsOpen(time.Now()))
}

func TestCircuitBreaker_FailuresPastThresholdKeepCounting(t *testing.T) {
	repo := newTestBreakerRepo(t)
	ctx := context.Background()

	var last int
	for i := 0; i < 5; i++ {
		state, err := repo.RecordFailure(ctx, "market:primary", 3, 5*time.Minute)
		require.NoError(t, err)
		last = state.ConsecutiveFailures
	}
	assert.Equal(t, 5, last)
}

func TestCircuitBreaker_StateIsolatedPerName(t *testing.T) {
	repo := newTestBreakerRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.RecordFailure(ctx, "market:primary", 3, 5*time.Minute)
		require.NoError(t, err)
	}

	other, err := repo.GetState(ctx, "market:backup")
	require.NoError(t, err)
	assert.False(t, other.IsOpen(time.Now()))
	assert.Equal(t, 0, other.ConsecutiveFailures)
}
