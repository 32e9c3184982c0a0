package biz

import (
	"context"
	"time"

	"MarketPulse/internal/data"

	"github.com/go-kratos/kratos/v2/log"
)

// BreakerUseCase implements per-dependency circuit breaking. State is
// keyed by logical dependency name (one breaker per vendor, per AI
// provider+purpose pair, per feed URL) so failures in one dependency
// never throttle unrelated ones.
type BreakerUseCase struct {
	repo   *data.CircuitBreakerRepo
	config *ConfigUseCase
	logger *log.Helper
}

// NewBreakerUseCase creates the breaker use case.
func NewBreakerUseCase(repo *data.CircuitBreakerRepo, config *ConfigUseCase, logger log.Logger) *BreakerUseCase {
	return &BreakerUseCase{
		repo:   repo,
		config: config,
		logger: log.NewHelper(logger),
	}
}

// Allows reports whether calls to the named dependency are admitted.
// Non-blocking and never errors: on a storage failure it fails open so a
// store outage cannot take down every integration at once.
func (uc *BreakerUseCase) Allows(ctx context.Context, name string) bool {
	state, err := uc.repo.GetState(ctx, name)
	if err != nil {
		uc.logger.Warnf("breaker state read failed for %s: %v (failing open)", name, err)
		return true
	}
	return !state.IsOpen(time.Now())
}

// ReportOutcome records a call outcome for the named dependency. A
// failure increments the consecutive-failure count and opens the breaker
// for the configured cooldown once the threshold is reached; any success
// resets the count and closes the breaker immediately. Storage errors
// are logged and swallowed.
func (uc *BreakerUseCase) ReportOutcome(ctx context.Context, name string, ok bool) {
	if ok {
		if _, err := uc.repo.RecordSuccess(ctx, name); err != nil {
			uc.logger.Warnf("breaker success record failed for %s: %v", name, err)
		}
		return
	}

	cfg := uc.config.GetCurrent(ctx)
	if _, err := uc.repo.RecordFailure(ctx, name, cfg.Breaker.FailureThreshold, cfg.BreakerCooldown()); err != nil {
		uc.logger.Warnf("breaker failure record failed for %s: %v", name, err)
	}
}
