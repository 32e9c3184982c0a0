package biz

import (
	"context"
	"os"
	"testing"
	"time"

	"MarketPulse/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

func TestDedup_FirstSeenThenSuppressed(t *testing.T) {
	kv, _, _ := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	uc := NewDedupUseCase(data.NewDedupRepo(kv, logger), logger)
	ctx := context.Background()

	assert.True(t, uc.MarkIfNew(ctx, "evt-100", time.Minute))
	assert.False(t, uc.MarkIfNew(ctx, "evt-100", time.Minute))
	assert.True(t, uc.MarkIfNew(ctx, "evt-101", time.Minute))
}

func TestDedup_WindowExpiryAllowsReprocessing(t *testing.T) {
	kv, _, mr := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	uc := NewDedupUseCase(data.NewDedupRepo(kv, logger), logger)
	ctx := context.Background()

	assert.True(t, uc.MarkIfNew(ctx, "evt-100", 30*time.Second))
	mr.FastForward(31 * time.Second)
	assert.True(t, uc.MarkIfNew(ctx, "evt-100", 30*time.Second))
}

func TestDedup_ZeroTTLUsesDefault(t *testing.T) {
	kv, _, mr := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	uc := NewDedupUseCase(data.NewDedupRepo(kv, logger), logger)
	ctx := context.Background()

	assert.True(t, uc.MarkIfNew(ctx, "evt-100", 0))
	mr.FastForward(DefaultDedupTTL - time.Second)
	assert.False(t, uc.MarkIfNew(ctx, "evt-100", 0))
}

func TestDedup_FailsOpenOnStorageError(t *testing.T) {
	kv, _, mr := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	uc := NewDedupUseCase(data.NewDedupRepo(kv, logger), logger)

	mr.Close()

	// Unreachable store treats the event as new rather than dropping it.
	assert.True(t, uc.MarkIfNew(context.Background(), "evt-100", time.Minute))
}
