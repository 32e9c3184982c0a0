package model

import (
	"encoding/json"
	"time"
)

// CacheEntry is one content-addressed cached computation result. The key
// is a cryptographic hash of the exact input that produced Payload, so
// identical inputs always map to the same entry. Entries are never
// invalidated, only ignored once older than the active TTL.
type CacheEntry struct {
	ContentHash string          `json:"content_hash"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Expired reports whether the entry is older than ttl at the given instant.
func (e *CacheEntry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}

// Sentiment values accepted in the structured annex.
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Signal kinds accepted in the structured annex.
var SignalKinds = map[string]bool{
	"support":    true,
	"resistance": true,
	"trend":      true,
	"volume":     true,
	"momentum":   true,
}

// MaxSignals caps the signals array in a structured annex.
const MaxSignals = 8

// Signal is one machine-readable observation inside an analysis annex.
type Signal struct {
	Kind  string  `json:"kind"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AnalysisAnnex is the schema-constrained payload embedded at the tail of
// free-form model output. Sentiment is the required discriminator.
type AnalysisAnnex struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Signals    []Signal `json:"signals,omitempty"`
}

// Empty reports whether the annex carries no data.
func (a *AnalysisAnnex) Empty() bool {
	return a.Sentiment == "" && len(a.Signals) == 0
}

// AnalysisResult is the pair stored in the tiered cache for one analysis.
type AnalysisResult struct {
	Text     string        `json:"text"`
	Annex    AnalysisAnnex `json:"annex"`
	Valid    bool          `json:"valid"`
	Provider string        `json:"provider"`
}

// Candle is one OHLCV market data point.
type Candle struct {
	OpenTime int64   `json:"t"`
	Open     float64 `json:"o"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
}
