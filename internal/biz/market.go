package biz

import (
	"context"
	"encoding/json"

	"MarketPulse/internal/data"
	"MarketPulse/internal/model"
	"MarketPulse/internal/providers"
	"MarketPulse/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
)

// MinCandlePoints is the acceptance threshold for a vendor response: a
// chart with fewer points is useless for analysis, so the chain treats
// it as a failure and advances to the next vendor.
const MinCandlePoints = 20

// candleFetchLimit is how many candles are requested from vendors.
const candleFetchLimit = 200

// MarketUseCase fetches market data through the vendor fallback chain,
// with a short-TTL content-addressed cache in front.
type MarketUseCase struct {
	config   *ConfigUseCase
	chain    *ChainUseCase
	cache    *data.TieredCache
	registry *providers.Registry
	logger   *log.Helper
}

// NewMarketUseCase creates the market data use case.
func NewMarketUseCase(
	config *ConfigUseCase,
	chain *ChainUseCase,
	cache *data.TieredCache,
	registry *providers.Registry,
	logger log.Logger,
) *MarketUseCase {
	return &MarketUseCase{
		config:   config,
		chain:    chain,
		cache:    cache,
		registry: registry,
		logger:   log.NewHelper(logger),
	}
}

// CandleSet is the cached result of one candle fetch.
type CandleSet struct {
	Symbol   string         `json:"symbol"`
	Interval string         `json:"interval"`
	Candles  []model.Candle `json:"candles"`
	Provider string         `json:"provider"`
}

// Candles returns recent candles for a symbol, trying vendors in the
// configured order until one returns an acceptable series.
func (uc *MarketUseCase) Candles(ctx context.Context, symbol, interval string) (*CandleSet, error) {
	cfg := uc.config.GetCurrent(ctx)

	contentHash := hash.Input("candles", symbol, interval)
	if entry, ok := uc.cache.Get(ctx, contentHash, cfg.MarketTTL()); ok {
		var set CandleSet
		if err := json.Unmarshal(entry.Payload, &set); err == nil {
			return &set, nil
		}
	}

	res, err := uc.chain.FetchFirstSuccess(ctx, "market",
		uc.marketCandidates(cfg, symbol, interval),
		func(v interface{}) bool {
			candles, ok := v.([]model.Candle)
			return ok && len(candles) >= MinCandlePoints
		},
		providers.DefaultMarketTimeout)
	if err != nil {
		return nil, err
	}

	candles, _ := res.Value.([]model.Candle)
	set := &CandleSet{
		Symbol:   symbol,
		Interval: interval,
		Candles:  candles,
		Provider: res.Provider,
	}

	if payload, err := json.Marshal(set); err == nil {
		uc.cache.Put(ctx, contentHash, payload, cfg.MarketTTL())
	}

	return set, nil
}

// marketCandidates builds the ordered vendor chain from runtime config.
func (uc *MarketUseCase) marketCandidates(cfg model.Config, symbol, interval string) []Candidate {
	var candidates []Candidate
	for _, name := range cfg.Providers.MarketOrder {
		if cfg.Providers.Disabled[name] {
			continue
		}
		client := uc.registry.Market(name)
		if client == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Name: client.Name(),
			Invoke: func(ctx context.Context, _ string) (interface{}, error) {
				return client.Candles(ctx, symbol, interval, candleFetchLimit)
			},
		})
	}
	return candidates
}
