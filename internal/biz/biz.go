// Package biz contains the business logic of the resilience core:
// circuit breaking, admission control, deduplication, provider fallback,
// tiered caching, structured-output extraction and audited configuration.
package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewConfigUseCase,
	NewBreakerUseCase,
	NewRateLimiterUseCase,
	NewDedupUseCase,
	NewChainUseCase,
	NewExtractorUseCase,
	NewAnalysisUseCase,
	NewMarketUseCase,
	NewDigestTask,
)
