package biz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"MarketPulse/internal/data"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDigestTask(t *testing.T) (*DigestTask, data.KVStore, *ConfigUseCase) {
	kv, _, _ := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	config := NewConfigUseCase(data.NewConfigRepo(kv, logger), data.NewAuditLogger(nil, logger), logger)
	return NewDigestTask(kv, config, data.NewAuditLogger(nil, logger), logger), kv, config
}

func seedUsers(t *testing.T, kv data.KVStore, n int) map[string]bool {
	t.Helper()
	want := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		key := data.BuildKey(data.KeyUser, fmt.Sprintf("u%03d", i))
		require.NoError(t, kv.Put(context.Background(), key, map[string]string{"id": key}, 0))
		want[key] = true
	}
	return want
}

// drain runs RunOnce until the pass completes, with a safety bound.
func drain(t *testing.T, task *DigestTask) int {
	t.Helper()
	total := 0
	for i := 0; i < 100; i++ {
		n, done, err := task.RunOnce(context.Background())
		require.NoError(t, err)
		total += n
		if done {
			return total
		}
	}
	t.Fatal("digest pass never completed")
	return 0
}

func TestDigest_EmptyUserSetCompletesImmediately(t *testing.T) {
	task, kv, _ := newTestDigestTask(t)

	n, done, err := task.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, done)

	var state struct{}
	assert.ErrorIs(t, kv.Get(context.Background(), data.KeyDigestCursor, &state), data.ErrKVNotFound)
}

func TestDigest_NotifiesEveryUser(t *testing.T) {
	task, kv, config := newTestDigestTask(t)
	ctx := context.Background()

	cfg := config.GetCurrent(ctx)
	cfg.Limits.DigestPageSize = 3
	_, err := config.Save(ctx, "owner-1", cfg, "test page size")
	require.NoError(t, err)

	want := seedUsers(t, kv, 7)

	got := map[string]int{}
	task.SetNotifier(func(ctx context.Context, userKey string) error {
		got[userKey]++
		return nil
	})

	drain(t, task)

	// SCAN is at-least-once: every user is reached, rare duplicates are
	// tolerated by downstream delivery.
	assert.Len(t, got, len(want))
	for key := range want {
		assert.GreaterOrEqual(t, got[key], 1, "user %s", key)
	}

	// Completion clears the continuation.
	var state struct{}
	assert.ErrorIs(t, kv.Get(ctx, data.KeyDigestCursor, &state), data.ErrKVNotFound)
}

func TestDigest_DeliveryFailureDoesNotStallPass(t *testing.T) {
	task, kv, _ := newTestDigestTask(t)

	seedUsers(t, kv, 5)

	attempted := 0
	task.SetNotifier(func(ctx context.Context, userKey string) error {
		attempted++
		if attempted == 2 {
			return errors.New("chat delivery failed")
		}
		return nil
	})

	drain(t, task)
	assert.GreaterOrEqual(t, attempted, 5)
}

func TestDigest_CursorPersistsBetweenInvocations(t *testing.T) {
	task, kv, config := newTestDigestTask(t)
	ctx := context.Background()

	cfg := config.GetCurrent(ctx)
	cfg.Limits.DigestPageSize = 2
	_, err := config.Save(ctx, "owner-1", cfg, "test page size")
	require.NoError(t, err)

	seedUsers(t, kv, 6)

	var notified []string
	task.SetNotifier(func(ctx context.Context, userKey string) error {
		notified = append(notified, userKey)
		return nil
	})

	_, done, err := task.RunOnce(ctx)
	require.NoError(t, err)

	if !done {
		// Mid-pass the continuation is durable, so a restart resumes
		// instead of starting over.
		var state struct {
			Cursor uint64 `json:"cursor"`
			Sent   int    `json:"sent"`
		}
		require.NoError(t, kv.Get(ctx, data.KeyDigestCursor, &state))
		assert.NotZero(t, state.Cursor)
		assert.Equal(t, len(notified), state.Sent)
	}

	for i := 0; !done && i < 100; i++ {
		_, done, err = task.RunOnce(ctx)
		require.NoError(t, err)
	}
	require.True(t, done)

	distinct := map[string]bool{}
	for _, key := range notified {
		distinct[key] = true
	}
	assert.Len(t, distinct, 6)
}
