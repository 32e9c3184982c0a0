package biz

import (
	"context"
	"os"
	"testing"

	"MarketPulse/internal/data"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

func newTestBreakerUseCase(t *testing.T) (*BreakerUseCase, *miniredis.Miniredis) {
	kv, _, mr := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	config := NewConfigUseCase(data.NewConfigRepo(kv, logger), data.NewAuditLogger(nil, logger), logger)
	return NewBreakerUseCase(data.NewCircuitBreakerRepo(kv, logger), config, logger), mr
}

func TestBreaker_AllowsByDefault(t *testing.T) {
	uc, _ := newTestBreakerUseCase(t)

	assert.True(t, uc.Allows(context.Background(), "market:coingecko"))
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	uc, _ := newTestBreakerUseCase(t)
	ctx := context.Background()

	// Default threshold is 3 consecutive failures.
	uc.ReportOutcome(ctx, "market:coingecko", false)
	assert.True(t, uc.Allows(ctx, "market:coingecko"))
	uc.ReportOutcome(ctx, "market:coingecko", false)
	assert.True(t, uc.Allows(ctx, "market:coingecko"))
	uc.ReportOutcome(ctx, "market:coingecko", false)
	assert.False(t, uc.Allows(ctx, "market:coingecko"))
}

func TestBreaker_SuccessClosesImmediately(t *testing.T) {
	uc, _ := newTestBreakerUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		uc.ReportOutcome(ctx, "ai:openai:analysis", false)
	}
	assert.False(t, uc.Allows(ctx, "ai:openai:analysis"))

	uc.ReportOutcome(ctx, "ai:openai:analysis", true)
	assert.True(t, uc.Allows(ctx, "ai:openai:analysis"))

	// The failure count also reset: a single new failure does not reopen.
	uc.ReportOutcome(ctx, "ai:openai:analysis", false)
	assert.True(t, uc.Allows(ctx, "ai:openai:analysis"))
}

func TestBreaker_DependenciesIsolated(t *testing.T) {
	uc, _ := newTestBreakerUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		uc.ReportOutcome(ctx, "market:coincap", false)
	}
	assert.False(t, uc.Allows(ctx, "market:coincap"))
	assert.True(t, uc.Allows(ctx, "market:binance"))
}

func TestBreaker_FailsOpenOnStorageError(t *testing.T) {
	uc, mr := newTestBreakerUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		uc.ReportOutcome(ctx, "market:coingecko", false)
	}
	assert.False(t, uc.Allows(ctx, "market:coingecko"))

	mr.Close()

	// Unreadable state admits the call rather than blocking everything.
	assert.True(t, uc.Allows(ctx, "market:coingecko"))
}
