package biz

import (
	"context"
	"errors"
	"time"

	"MarketPulse/internal/data"
	"MarketPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// digestState is the persisted continuation of a digest fan-out: the
// scan cursor plus running counters. Persisting it makes the fan-out
// resumable after a restart and tolerant of overlapping runs. Counts
// are best-effort tallies, not transactionally exact.
type digestState struct {
	Cursor    uint64    `json:"cursor"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
}

// Notifier delivers one digest to one subject. The chat-platform wire
// format lives outside this core; the task only tracks outcomes.
type Notifier func(ctx context.Context, userKey string) error

// DigestTask pages through the user set one bounded page per invocation,
// persisting a cursor and counters between runs. Scheduled by cron; one
// invocation never runs unbounded.
type DigestTask struct {
	kv     data.KVStore
	config *ConfigUseCase
	audit  *data.AuditLogger
	notify Notifier
	logger *log.Helper
}

// NewDigestTask creates the digest fan-out task with a no-op notifier.
func NewDigestTask(kv data.KVStore, config *ConfigUseCase, audit *data.AuditLogger, logger log.Logger) *DigestTask {
	return &DigestTask{
		kv:     kv,
		config: config,
		audit:  audit,
		notify: func(ctx context.Context, userKey string) error { return nil },
		logger: log.NewHelper(logger),
	}
}

// SetNotifier installs the delivery callback.
func (t *DigestTask) SetNotifier(n Notifier) {
	if n != nil {
		t.notify = n
	}
}

// RunOnce processes one page of users and persists the continuation.
// Returns the number of users processed and whether the full pass
// completed with this page.
func (t *DigestTask) RunOnce(ctx context.Context) (int, bool, error) {
	cfg := t.config.GetCurrent(ctx)

	var state digestState
	err := t.kv.Get(ctx, data.KeyDigestCursor, &state)
	if errors.Is(err, data.ErrKVNotFound) {
		state = digestState{StartedAt: time.Now()}
	} else if err != nil {
		return 0, false, err
	}

	keys, next, err := t.kv.ListPrefix(ctx, data.KeyUser+":", state.Cursor, int64(cfg.Limits.DigestPageSize))
	if err != nil {
		return 0, false, err
	}

	for _, key := range keys {
		if err := t.notify(ctx, key); err != nil {
			state.Failed++
			t.logger.Warnw("digest delivery failed", "user_key", key, "error", err)
			continue
		}
		state.Sent++
	}
	state.Cursor = next

	if next == 0 {
		// Full pass complete: audit the totals and clear the continuation.
		t.audit.Append(ctx, "system", model.AuditActionDigestRun, "", "", map[string]interface{}{
			"sent":       state.Sent,
			"failed":     state.Failed,
			"started_at": state.StartedAt.Format(time.RFC3339),
		})
		if err := t.kv.Delete(ctx, data.KeyDigestCursor); err != nil {
			t.logger.Warnw("failed to clear digest cursor", "error", err)
		}
		t.logger.Infow("digest pass complete", "sent", state.Sent, "failed", state.Failed)
		return len(keys), true, nil
	}

	if err := t.kv.Put(ctx, data.KeyDigestCursor, state, 0); err != nil {
		return len(keys), false, err
	}

	return len(keys), false, nil
}
