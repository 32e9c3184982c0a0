// Package service implements the HTTP-facing operations of the
// resilience core: analysis requests, inbound event ingest, market data
// and the audited admin configuration surface.
package service

import "github.com/google/wire"

// ProviderSet is service providers.
var ProviderSet = wire.NewSet(
	NewAnalysisService,
	NewAdminService,
)
