package model

import "time"

// Roles recognized by the config mutation path.
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

// LimitsConfig bounds user-facing request volume.
type LimitsConfig struct {
	FreeDaily        int `json:"free_daily"`
	AnalyzePerMinute int `json:"analyze_per_minute"`
	EventsPerMinute  int `json:"events_per_minute"`
	DigestPageSize   int `json:"digest_page_size"`
}

// CacheConfig holds TTLs for the tiered cache, in seconds.
type CacheConfig struct {
	AnalysisTTLSeconds int `json:"analysis_ttl_seconds"`
	MarketTTLSeconds   int `json:"market_ttl_seconds"`
}

// BreakerConfig controls circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int `json:"failure_threshold"`
	CooldownSeconds  int `json:"cooldown_seconds"`
}

// ProvidersConfig orders and toggles outbound providers.
type ProvidersConfig struct {
	MarketOrder []string        `json:"market_order"`
	AIOrder     []string        `json:"ai_order"`
	Disabled    map[string]bool `json:"disabled"`
}

// Config is the runtime business configuration. It lives in the durable
// store and is mutated only through the audited ConfigStore path. Every
// load and save passes through Normalize, so callers always see a fully
// populated, in-range value even if storage held partial or legacy data.
type Config struct {
	Limits       LimitsConfig    `json:"limits"`
	Cache        CacheConfig     `json:"cache"`
	Breaker      BreakerConfig   `json:"breaker"`
	Providers    ProvidersConfig `json:"providers"`
	WalletPublic string          `json:"wallet_public"`
	Announcement string          `json:"announcement"`
}

// ConfigPatch is a partial update to Config. Nil fields are "unchanged".
type ConfigPatch struct {
	Limits       *LimitsPatch    `json:"limits,omitempty"`
	Cache        *CachePatch     `json:"cache,omitempty"`
	Breaker      *BreakerPatch   `json:"breaker,omitempty"`
	Providers    *ProvidersPatch `json:"providers,omitempty"`
	WalletPublic *string         `json:"wallet_public,omitempty"`
	Announcement *string         `json:"announcement,omitempty"`
}

// LimitsPatch is a partial update to LimitsConfig.
type LimitsPatch struct {
	FreeDaily        *int `json:"free_daily,omitempty"`
	AnalyzePerMinute *int `json:"analyze_per_minute,omitempty"`
	EventsPerMinute  *int `json:"events_per_minute,omitempty"`
	DigestPageSize   *int `json:"digest_page_size,omitempty"`
}

// CachePatch is a partial update to CacheConfig.
type CachePatch struct {
	AnalysisTTLSeconds *int `json:"analysis_ttl_seconds,omitempty"`
	MarketTTLSeconds   *int `json:"market_ttl_seconds,omitempty"`
}

// BreakerPatch is a partial update to BreakerConfig.
type BreakerPatch struct {
	FailureThreshold *int `json:"failure_threshold,omitempty"`
	CooldownSeconds  *int `json:"cooldown_seconds,omitempty"`
}

// ProvidersPatch is a partial update to ProvidersConfig.
type ProvidersPatch struct {
	MarketOrder []string        `json:"market_order,omitempty"`
	AIOrder     []string        `json:"ai_order,omitempty"`
	Disabled    map[string]bool `json:"disabled,omitempty"`
}

// ConfigSnapshot is an append-only capture of a prior current config.
type ConfigSnapshot struct {
	VersionKey string    `json:"version_key"`
	CapturedAt time.Time `json:"captured_at"`
	Payload    Config    `json:"payload"`
}

// DefaultConfig returns a fully populated default configuration.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.Normalize()
	return cfg
}

// Normalize applies defaults and clamps every field into its valid range.
// It is applied unconditionally on every load and save.
func (c *Config) Normalize() {
	c.Limits.normalize()
	c.Cache.normalize()
	c.Breaker.normalize()
	c.Providers.normalize()
}

func (l *LimitsConfig) normalize() {
	l.FreeDaily = clampInt(l.FreeDaily, 1, 1000, 3)
	l.AnalyzePerMinute = clampInt(l.AnalyzePerMinute, 1, 600, 5)
	l.EventsPerMinute = clampInt(l.EventsPerMinute, 1, 6000, 30)
	l.DigestPageSize = clampInt(l.DigestPageSize, 1, 500, 50)
}

func (cc *CacheConfig) normalize() {
	cc.AnalysisTTLSeconds = clampInt(cc.AnalysisTTLSeconds, 60, 86400, 21600)
	cc.MarketTTLSeconds = clampInt(cc.MarketTTLSeconds, 5, 3600, 60)
}

func (b *BreakerConfig) normalize() {
	b.FailureThreshold = clampInt(b.FailureThreshold, 1, 20, 3)
	b.CooldownSeconds = clampInt(b.CooldownSeconds, 10, 3600, 300)
}

func (p *ProvidersConfig) normalize() {
	if len(p.MarketOrder) == 0 {
		p.MarketOrder = []string{"coingecko", "coincap", "binance"}
	}
	if len(p.AIOrder) == 0 {
		p.AIOrder = []string{"openai", "gemini", "compat"}
	}
	if p.Disabled == nil {
		p.Disabled = map[string]bool{}
	}
}

// AnalysisTTL returns the analysis cache TTL as a duration.
func (c *Config) AnalysisTTL() time.Duration {
	return time.Duration(c.Cache.AnalysisTTLSeconds) * time.Second
}

// MarketTTL returns the market cache TTL as a duration.
func (c *Config) MarketTTL() time.Duration {
	return time.Duration(c.Cache.MarketTTLSeconds) * time.Second
}

// BreakerCooldown returns the breaker cooldown as a duration.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Breaker.CooldownSeconds) * time.Second
}

// clampInt coerces v into [min, max]; zero or negative means "unset" and
// falls back to def.
func clampInt(v, min, max, def int) int {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
