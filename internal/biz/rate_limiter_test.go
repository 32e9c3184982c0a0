package biz

import (
	"context"
	"os"
	"testing"

	"MarketPulse/internal/data"

	"github.com/alicebob/miniredis/v2"
	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiterUseCase(t *testing.T) (*RateLimiterUseCase, *miniredis.Miniredis) {
	_, rdb, mr := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	return NewRateLimiterUseCase(data.NewRateLimitRepo(rdb, logger), logger), mr
}

func TestRateLimiter_ExactBoundary(t *testing.T) {
	uc, _ := newTestRateLimiterUseCase(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res := uc.Acquire(ctx, "analyze", "user-1", 5)
		assert.True(t, res.Allowed, "call %d should be admitted", i)
		assert.Equal(t, i, res.Count)
	}

	res := uc.Acquire(ctx, "analyze", "user-1", 5)
	assert.False(t, res.Allowed)
	assert.Equal(t, 6, res.Count)
}

func TestRateLimiter_SubjectsIndependent(t *testing.T) {
	uc, _ := newTestRateLimiterUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		uc.Acquire(ctx, "analyze", "user-1", 2)
	}
	assert.False(t, uc.Acquire(ctx, "analyze", "user-1", 2).Allowed)
	assert.True(t, uc.Acquire(ctx, "analyze", "user-2", 2).Allowed)
}

func TestRateLimiter_ScopesIndependent(t *testing.T) {
	uc, _ := newTestRateLimiterUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		uc.Acquire(ctx, "analyze", "user-1", 2)
	}
	assert.False(t, uc.Acquire(ctx, "analyze", "user-1", 2).Allowed)
	assert.True(t, uc.Acquire(ctx, "events", "user-1", 2).Allowed)
}

func TestRateLimiter_NonPositiveLimitIsUnlimited(t *testing.T) {
	uc, _ := newTestRateLimiterUseCase(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		assert.True(t, uc.Acquire(ctx, "analyze", "user-1", 0).Allowed)
	}
	assert.True(t, uc.Acquire(ctx, "analyze", "user-1", -1).Allowed)
}

func TestRateLimiter_FailsOpenOnStorageError(t *testing.T) {
	uc, mr := newTestRateLimiterUseCase(t)
	ctx := context.Background()

	mr.Close()

	res := uc.Acquire(ctx, "analyze", "user-1", 1)
	assert.True(t, res.Allowed)
}

func TestRateLimiter_CheckReturns429(t *testing.T) {
	uc, _ := newTestRateLimiterUseCase(t)
	ctx := context.Background()

	require.NoError(t, uc.Check(ctx, "events", "user-1", 1))

	err := uc.Check(ctx, "events", "user-1", 1)
	require.Error(t, err)
	ke := kerrors.FromError(err)
	assert.Equal(t, int32(429), ke.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", ke.Reason)
}
