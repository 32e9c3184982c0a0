package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"MarketPulse/internal/data"
	pkgerrors "MarketPulse/pkg/errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChainUseCase(t *testing.T) (*ChainUseCase, *BreakerUseCase) {
	kv, _, _ := setupTestKV(t)
	logger := log.NewStdLogger(os.Stdout)
	config := NewConfigUseCase(data.NewConfigRepo(kv, logger), data.NewAuditLogger(nil, logger), logger)
	breaker := NewBreakerUseCase(data.NewCircuitBreakerRepo(kv, logger), config, logger)
	return NewChainUseCase(breaker, logger), breaker
}

func succeeding(name string, value interface{}, calls *int) Candidate {
	return Candidate{
		Name: name,
		Invoke: func(ctx context.Context, credential string) (interface{}, error) {
			*calls++
			return value, nil
		},
	}
}

func failing(name string, err error, calls *int) Candidate {
	return Candidate{
		Name: name,
		Invoke: func(ctx context.Context, credential string) (interface{}, error) {
			*calls++
			return nil, err
		},
	}
}

func TestChain_FirstSuccessShortCircuits(t *testing.T) {
	uc, _ := newTestChainUseCase(t)

	var aCalls, bCalls int
	res, err := uc.FetchFirstSuccess(context.Background(), "market",
		[]Candidate{
			succeeding("coingecko", "price-a", &aCalls),
			succeeding("coincap", "price-b", &bCalls),
		}, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "coingecko", res.Provider)
	assert.Equal(t, "price-a", res.Value)
	assert.Equal(t, 1, aCalls)
	assert.Zero(t, bCalls)
}

func TestChain_AdvancesPastFailure(t *testing.T) {
	uc, _ := newTestChainUseCase(t)

	var aCalls, bCalls int
	res, err := uc.FetchFirstSuccess(context.Background(), "market",
		[]Candidate{
			failing("coingecko", pkgerrors.NewTransient("coingecko", 503, errors.New("upstream down")), &aCalls),
			succeeding("coincap", "price-b", &bCalls),
		}, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "coincap", res.Provider)
	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 1, bCalls)
}

func TestChain_SkipsOpenBreaker(t *testing.T) {
	uc, breaker := newTestChainUseCase(t)
	ctx := context.Background()

	// Trip coingecko's breaker for the market capability.
	for i := 0; i < 3; i++ {
		breaker.ReportOutcome(ctx, "market:coingecko", false)
	}

	var aCalls, bCalls int
	res, err := uc.FetchFirstSuccess(ctx, "market",
		[]Candidate{
			succeeding("coingecko", "price-a", &aCalls),
			succeeding("coincap", "price-b", &bCalls),
		}, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "coincap", res.Provider)
	assert.Zero(t, aCalls, "open breaker must suppress the call entirely")
}

func TestChain_TransientErrorRotatesCredentials(t *testing.T) {
	uc, _ := newTestChainUseCase(t)

	var used []string
	candidate := Candidate{
		Name:        "openai",
		Credentials: []string{"key-1", "key-2", "key-3"},
		Invoke: func(ctx context.Context, credential string) (interface{}, error) {
			used = append(used, credential)
			if credential != "key-2" {
				return nil, pkgerrors.NewTransient("openai", 429, errors.New("throttled"))
			}
			return "analysis", nil
		},
	}

	res, err := uc.FetchFirstSuccess(context.Background(), "ai", []Candidate{candidate}, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "analysis", res.Value)
	assert.Equal(t, []string{"key-1", "key-2"}, used)
}

func TestChain_PermanentErrorDoesNotRotate(t *testing.T) {
	uc, _ := newTestChainUseCase(t)

	var used []string
	bad := Candidate{
		Name:        "openai",
		Credentials: []string{"key-1", "key-2"},
		Invoke: func(ctx context.Context, credential string) (interface{}, error) {
			used = append(used, credential)
			return nil, pkgerrors.NewPermanent("openai", 400, errors.New("bad request"))
		},
	}
	var gCalls int

	res, err := uc.FetchFirstSuccess(context.Background(), "ai",
		[]Candidate{bad, succeeding("gemini", "analysis", &gCalls)}, nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	// A permanent error burns no further credentials on that provider.
	assert.Equal(t, []string{"key-1"}, used)
}

func TestChain_UnacceptableResultAdvances(t *testing.T) {
	uc, _ := newTestChainUseCase(t)

	var aCalls, bCalls int
	acceptable := func(v interface{}) bool { return v == "good" }

	res, err := uc.FetchFirstSuccess(context.Background(), "ai",
		[]Candidate{
			succeeding("openai", "garbage", &aCalls),
			succeeding("gemini", "good", &bCalls),
		}, acceptable, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, 1, aCalls)
}

func TestChain_AllFailReturns503(t *testing.T) {
	uc, _ := newTestChainUseCase(t)

	var aCalls, bCalls int
	_, err := uc.FetchFirstSuccess(context.Background(), "market",
		[]Candidate{
			failing("coingecko", pkgerrors.NewTransient("coingecko", 500, errors.New("boom")), &aCalls),
			failing("coincap", pkgerrors.NewTransient("coincap", 502, errors.New("bang")), &bCalls),
		}, nil, time.Second)
	require.Error(t, err)
	ke := kerrors.FromError(err)
	assert.Equal(t, int32(503), ke.Code)
	assert.Equal(t, "ALL_PROVIDERS_FAILED", ke.Reason)
	// The aggregate carries the last observed failure.
	assert.Contains(t, ke.Message, "bang")
}

func TestChain_SkipThenRejectThenAccept(t *testing.T) {
	uc, breaker := newTestChainUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		breaker.ReportOutcome(ctx, "market:alpha", false)
	}

	acceptable := func(v interface{}) bool { return v.(int) >= 20 }
	var aCalls, bCalls, cCalls int

	res, err := uc.FetchFirstSuccess(ctx, "market",
		[]Candidate{
			succeeding("alpha", 50, &aCalls), // breaker open, never invoked
			succeeding("beta", 10, &bCalls),  // below threshold
			succeeding("gamma", 50, &cCalls),
		}, acceptable, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "gamma", res.Provider)
	assert.Equal(t, 50, res.Value)
	assert.Zero(t, aCalls)
	assert.Equal(t, 1, bCalls)
	assert.Equal(t, 1, cCalls)

	// beta's rejection fed its breaker; two more trips open it.
	for i := 0; i < 2; i++ {
		breaker.ReportOutcome(ctx, "market:beta", false)
	}
	assert.False(t, breaker.Allows(ctx, "market:beta"))
}

func TestChain_FailureFeedsBreaker(t *testing.T) {
	uc, breaker := newTestChainUseCase(t)
	ctx := context.Background()

	boom := pkgerrors.NewTransient("coingecko", 500, errors.New("boom"))
	var calls int
	for i := 0; i < 3; i++ {
		_, err := uc.FetchFirstSuccess(ctx, "market",
			[]Candidate{failing("coingecko", boom, &calls)}, nil, time.Second)
		require.Error(t, err)
	}

	assert.False(t, breaker.Allows(ctx, "market:coingecko"))

	// Subsequent chain runs skip the provider without invoking it.
	before := calls
	_, err := uc.FetchFirstSuccess(ctx, "market",
		[]Candidate{failing("coingecko", boom, &calls)}, nil, time.Second)
	require.Error(t, err)
	assert.Equal(t, before, calls)
}
