package biz

import (
	"context"
	"fmt"
	"time"

	pkgerrors "MarketPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Candidate is one provider invocation in an ordered fallback chain.
// Credentials is optional; when present, transient failures rotate to
// the next credential before the chain advances to the next candidate.
// Invoke receives an empty credential when none are configured.
type Candidate struct {
	Name        string
	Credentials []string
	Invoke      func(ctx context.Context, credential string) (interface{}, error)
}

// ChainResult carries the first successful value and the provider that
// produced it.
type ChainResult struct {
	Value    interface{}
	Provider string
}

// ChainUseCase tries an ordered list of capability providers, gated by
// the circuit breaker, until one succeeds.
type ChainUseCase struct {
	breaker *BreakerUseCase
	logger  *log.Helper
}

// NewChainUseCase creates the provider chain use case.
func NewChainUseCase(breaker *BreakerUseCase, logger log.Logger) *ChainUseCase {
	return &ChainUseCase{
		breaker: breaker,
		logger:  log.NewHelper(logger),
	}
}

// newAllProvidersFailedError builds the aggregate error returned when
// every candidate was skipped or failed, carrying the last failure.
func newAllProvidersFailedError(capability string, lastErr error) error {
	reason := "all candidates skipped (breakers open)"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return errors.New(
		503,
		"ALL_PROVIDERS_FAILED",
		fmt.Sprintf("capability %s unavailable: %s", capability, reason),
	)
}

// FetchFirstSuccess walks candidates in order, skipping any whose
// breaker is open, invoking the rest under the given timeout and
// classifying each outcome:
//
//   - Transient errors rotate to the candidate's next credential, then
//     advance to the next candidate; the breaker records one failure.
//   - Permanent errors abort the candidate immediately (no credential
//     rotation) and advance; the breaker records one failure.
//   - A result rejected by acceptable counts as a failure and advances.
//   - The first success reports to the breaker and returns immediately.
//
// When every candidate is exhausted the aggregate error carries the last
// observed failure reason. acceptable may be nil.
func (uc *ChainUseCase) FetchFirstSuccess(
	ctx context.Context,
	capability string,
	candidates []Candidate,
	acceptable func(interface{}) bool,
	timeout time.Duration,
) (*ChainResult, error) {
	var lastErr error

	for _, candidate := range candidates {
		breakerName := capability + ":" + candidate.Name

		if !uc.breaker.Allows(ctx, breakerName) {
			uc.logger.Debugw("candidate skipped, breaker open",
				"capability", capability,
				"provider", candidate.Name)
			continue
		}

		value, err := uc.tryCandidate(ctx, candidate, timeout)
		if err != nil {
			uc.breaker.ReportOutcome(ctx, breakerName, false)
			lastErr = err
			uc.logger.Warnw("candidate failed",
				"capability", capability,
				"provider", candidate.Name,
				"permanent", pkgerrors.IsPermanent(err),
				"error", err)
			continue
		}

		if acceptable != nil && !acceptable(value) {
			uc.breaker.ReportOutcome(ctx, breakerName, false)
			lastErr = fmt.Errorf("%s: result below acceptance threshold", candidate.Name)
			uc.logger.Warnw("candidate result unacceptable",
				"capability", capability,
				"provider", candidate.Name)
			continue
		}

		uc.breaker.ReportOutcome(ctx, breakerName, true)
		return &ChainResult{Value: value, Provider: candidate.Name}, nil
	}

	return nil, newAllProvidersFailedError(capability, lastErr)
}

// tryCandidate invokes one candidate, rotating credentials on transient
// errors. Any other error class aborts the candidate immediately.
func (uc *ChainUseCase) tryCandidate(ctx context.Context, candidate Candidate, timeout time.Duration) (interface{}, error) {
	credentials := candidate.Credentials
	if len(credentials) == 0 {
		credentials = []string{""}
	}

	var lastErr error
	for i, credential := range credentials {
		value, err := func() (interface{}, error) {
			callCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return candidate.Invoke(callCtx, credential)
		}()
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !pkgerrors.IsTransient(err) {
			return nil, err
		}
		if i < len(credentials)-1 {
			uc.logger.Debugw("rotating credential after transient error",
				"provider", candidate.Name,
				"credential_index", i+1)
		}
	}

	return nil, lastErr
}
