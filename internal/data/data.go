// Package data provides data access layer implementations.
// It handles storage connections and data persistence.
package data

import (
	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewMySQLClient,
	NewKVStore,
	NewTieredCache,
	NewCircuitBreakerRepo,
	NewRateLimitRepo,
	NewDedupRepo,
	NewConfigRepo,
	NewAuditLogger,
)
