package biz

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/data"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// RateLimiterUseCase implements best-effort fixed-window admission
// control per (scope, subject). Counters are incremented against an
// eventually-consistent store, so concurrent callers may transiently
// exceed a limit by a small margin; this is a soft guard against abuse,
// not a security boundary.
type RateLimiterUseCase struct {
	repo   *data.RateLimitRepo
	logger *log.Helper
}

// NewRateLimiterUseCase creates the rate limiter use case.
func NewRateLimiterUseCase(repo *data.RateLimitRepo, logger log.Logger) *RateLimiterUseCase {
	return &RateLimiterUseCase{
		repo:   repo,
		logger: log.NewHelper(logger),
	}
}

// AcquireResult is the outcome of one admission attempt.
type AcquireResult struct {
	Allowed bool
	Count   int
}

// newRateLimitExceededError creates an HTTP 429 error for the scope.
func newRateLimitExceededError(scope string, current, limit int) error {
	return errors.New(
		429,
		"RATE_LIMIT_EXCEEDED",
		fmt.Sprintf("rate limit exceeded: %s current=%d limit=%d retry_after=60s", scope, current, limit),
	)
}

// Acquire admits or rejects one call for (scope, subject) against
// limitPerMinute. A non-positive limit means unlimited. On a storage
// failure the call is allowed (fail open) so an unrelated storage
// incident cannot cascade into a full outage.
func (uc *RateLimiterUseCase) Acquire(ctx context.Context, scope, subject string, limitPerMinute int) AcquireResult {
	if limitPerMinute <= 0 {
		return AcquireResult{Allowed: true}
	}

	count, err := uc.repo.IncrementWindow(ctx, scope, subject, time.Now())
	if err != nil {
		uc.logger.Warnf("rate window increment failed for %s:%s: %v (request allowed)", scope, subject, err)
		return AcquireResult{Allowed: true}
	}

	if count > limitPerMinute {
		uc.logger.Warnw("rate limit exceeded",
			"scope", scope,
			"subject", subject,
			"current", count,
			"limit", limitPerMinute)
		return AcquireResult{Allowed: false, Count: count}
	}

	return AcquireResult{Allowed: true, Count: count}
}

// Check is Acquire plus a ready-to-return transport error on rejection.
func (uc *RateLimiterUseCase) Check(ctx context.Context, scope, subject string, limitPerMinute int) error {
	res := uc.Acquire(ctx, scope, subject, limitPerMinute)
	if !res.Allowed {
		return newRateLimitExceededError(scope, res.Count, limitPerMinute)
	}
	return nil
}
