package biz

import (
	"context"
	"encoding/json"
	"fmt"

	"MarketPulse/internal/data"
	"MarketPulse/internal/model"
	"MarketPulse/internal/providers"
	"MarketPulse/pkg/hash"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// analyzeSystemPrompt instructs the model to finish its prose with one
// machine-readable JSON object matching the annex schema.
const analyzeSystemPrompt = `You are a market analyst. Answer the user's question in plain prose, ` +
	`then append exactly one JSON object on the final line with this shape: ` +
	`{"sentiment":"bullish|bearish|neutral","confidence":0.0-1.0,` +
	`"signals":[{"kind":"support|resistance|trend|volume|momentum","label":"...","value":0.0}]}`

// repairPrompt asks a model to rewrite malformed output into valid JSON.
const repairPrompt = `The following text was supposed to end with a single valid JSON object ` +
	`({"sentiment":...,"confidence":...,"signals":[...]}). Reply with ONLY that JSON object, repaired:`

// AnalysisUseCase is the request path that stitches the core together:
// admission control, content-addressed cache lookup, AI provider
// fallback, structured-output extraction, and write-through caching.
type AnalysisUseCase struct {
	config    *ConfigUseCase
	limiter   *RateLimiterUseCase
	chain     *ChainUseCase
	extractor *ExtractorUseCase
	cache     *data.TieredCache
	registry  *providers.Registry
	logger    *log.Helper
}

// NewAnalysisUseCase creates the analysis use case.
func NewAnalysisUseCase(
	config *ConfigUseCase,
	limiter *RateLimiterUseCase,
	chain *ChainUseCase,
	extractor *ExtractorUseCase,
	cache *data.TieredCache,
	registry *providers.Registry,
	logger log.Logger,
) *AnalysisUseCase {
	return &AnalysisUseCase{
		config:    config,
		limiter:   limiter,
		chain:     chain,
		extractor: extractor,
		cache:     cache,
		registry:  registry,
		logger:    log.NewHelper(logger),
	}
}

// newAnalysisUnavailableError is the feature-level degraded response for
// total provider failure. Never a panic, never a crash.
func newAnalysisUnavailableError(err error) error {
	return errors.New(503, "ANALYSIS_UNAVAILABLE",
		fmt.Sprintf("analysis unavailable: %v", err))
}

// Analyze produces a market analysis for the user's prompt. Identical
// normalized inputs hit the content-addressed cache; fresh computations
// are written through every tier with the configured TTL.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, userID, symbol, prompt string) (*model.AnalysisResult, error) {
	cfg := uc.config.GetCurrent(ctx)

	if err := uc.limiter.Check(ctx, "analyze", userID, cfg.Limits.AnalyzePerMinute); err != nil {
		return nil, err
	}

	contentHash := hash.Input("analysis", symbol, prompt)

	if entry, ok := uc.cache.Get(ctx, contentHash, cfg.AnalysisTTL()); ok {
		var result model.AnalysisResult
		if err := json.Unmarshal(entry.Payload, &result); err == nil {
			uc.logger.Debugw("analysis cache hit", "hash", contentHash)
			return &result, nil
		}
		uc.logger.Warnw("discarding undecodable cache entry", "hash", contentHash)
	}

	userPrompt := prompt
	if symbol != "" {
		userPrompt = fmt.Sprintf("Symbol: %s\n\n%s", symbol, prompt)
	}

	chainRes, err := uc.chain.FetchFirstSuccess(ctx, "ai",
		uc.aiCandidates(cfg, analyzeSystemPrompt, userPrompt), nil, providers.DefaultAITimeout)
	if err != nil {
		return nil, newAnalysisUnavailableError(err)
	}

	text, _ := chainRes.Value.(string)
	extracted := uc.extractor.Extract(ctx, text, uc.repairFunc(cfg))

	result := model.AnalysisResult{
		Text:     extracted.CleanedText,
		Annex:    extracted.Annex,
		Valid:    extracted.Valid,
		Provider: chainRes.Provider,
	}
	if !extracted.Valid && result.Text == "" {
		result.Text = text
	}

	if payload, err := json.Marshal(result); err == nil {
		uc.cache.Put(ctx, contentHash, payload, cfg.AnalysisTTL())
	}

	return &result, nil
}

// aiCandidates builds the ordered AI fallback chain from the runtime
// config, skipping disabled and unconfigured providers.
func (uc *AnalysisUseCase) aiCandidates(cfg model.Config, system, prompt string) []Candidate {
	var candidates []Candidate
	for _, name := range cfg.Providers.AIOrder {
		if cfg.Providers.Disabled[name] {
			continue
		}
		client := uc.registry.AI(name)
		if client == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			Name:        client.Name(),
			Credentials: client.Keys(),
			Invoke: func(ctx context.Context, credential string) (interface{}, error) {
				return client.Complete(ctx, credential, system, prompt)
			},
		})
	}
	return candidates
}

// repairFunc issues the single structured-output repair call through the
// same breaker-gated fallback chain.
func (uc *AnalysisUseCase) repairFunc(cfg model.Config) RepairFunc {
	return func(ctx context.Context, text string) (string, error) {
		res, err := uc.chain.FetchFirstSuccess(ctx, "ai:repair",
			uc.aiCandidates(cfg, "", repairPrompt+"\n\n"+text), nil, providers.DefaultAITimeout)
		if err != nil {
			return "", err
		}
		repaired, _ := res.Value.(string)
		return repaired, nil
	}
}
