package data

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// RateLimitRepo implements fixed-window admission counters.
// Following Kratos v2 DDD architecture, the interface is defined in the
// biz layer.
type RateLimitRepo struct {
	rdb    *redis.Client
	logger *log.Helper
}

// NewRateLimitRepo creates a new rate limit repository.
func NewRateLimitRepo(rdb *redis.Client, logger log.Logger) *RateLimitRepo {
	return &RateLimitRepo{
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// WindowKey returns the fixed 60-second window index for an instant.
func WindowKey(now time.Time) string {
	return strconv.FormatInt(now.Unix()/60, 10)
}

// IncrementWindow increments the counter for (scope, subject) in the
// current fixed window. Uses Redis INCR with expiration set on the first
// increment; counters for past windows are abandoned via TTL, never
// explicitly deleted. Returns the new count.
func (r *RateLimitRepo) IncrementWindow(ctx context.Context, scope, subject string, now time.Time) (int, error) {
	if r.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	key := BuildKey(KeyRate, scope, subject, WindowKey(now))

	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment rate window: %w", err)
	}

	// Set expiration on first increment
	if count == 1 {
		if err := r.rdb.Expire(ctx, key, TTLRateWindow).Err(); err != nil {
			r.logger.Warnf("Failed to set rate window expiration for %s:%s: %v", scope, subject, err)
			// Don't return error, counter is still incremented
		}
	}

	return int(count), nil
}

// GetWindowCount retrieves the current window count for (scope, subject).
// Returns 0 if the key doesn't exist.
func (r *RateLimitRepo) GetWindowCount(ctx context.Context, scope, subject string, now time.Time) (int, error) {
	if r.rdb == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	key := BuildKey(KeyRate, scope, subject, WindowKey(now))

	val, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get rate window count: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse rate window count: %w", err)
	}

	return count, nil
}
