// Package data provides data access layer implementations.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key prefixes for the durable key-value store.
const (
	KeyCircuit       = "circuit"        // circuit:{name}
	KeyRate          = "rate"           // rate:{scope}:{subject}:{window}
	KeyDedup         = "dedup"          // dedup:{event_id}
	KeyAnalysis      = "analysis"       // analysis:{content_hash}
	KeyConfigCurrent = "config:current" // single distinguished key
	KeyConfigVersion = "config:version" // config:version:{version_key}
	KeyDigestCursor  = "digest:cursor"
	KeyUser          = "user" // user:{id}, written by the conversation layer
)

// TTLCircuitIdle is how long idle circuit state is retained.
const TTLCircuitIdle = 1 * time.Hour

// TTLRateWindow covers the current fixed window plus clock skew; stale
// windows are abandoned, never explicitly deleted.
const TTLRateWindow = 2 * time.Minute

// ErrKVNotFound is returned when a key does not exist.
var ErrKVNotFound = errors.New("kv: key not found")

// KVStore is the durable key-value primitive this core consumes: get,
// put with optional TTL, delete, and prefix listing. The store is
// eventually consistent; nothing here assumes transactions.
// Implementations must be safe for concurrent use.
type KVStore interface {
	// Get retrieves a value and deserializes it into dest.
	// Returns ErrKVNotFound if the key does not exist.
	Get(ctx context.Context, key string, dest interface{}) error

	// Put stores a value serialized as JSON. A zero TTL means the key
	// persists indefinitely.
	Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// ListPrefix returns one page of keys under prefix starting at
	// cursor. A returned cursor of 0 means the listing is complete.
	ListPrefix(ctx context.Context, prefix string, cursor uint64, count int64) ([]string, uint64, error)
}

// redisKV is the Redis-based implementation of KVStore.
type redisKV struct {
	client *redis.Client
}

// NewKVStore creates a Redis-backed durable key-value store.
func NewKVStore(rdb *redis.Client) KVStore {
	return &redisKV{client: rdb}
}

// Get retrieves a value and deserializes it into dest.
func (s *redisKV) Get(ctx context.Context, key string, dest interface{}) error {
	if s.client == nil {
		return errors.New("kv: redis client is nil")
	}

	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrKVNotFound
		}
		return fmt.Errorf("kv: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("kv: failed to unmarshal value for key %s: %w", key, err)
	}

	return nil
}

// Put stores a value serialized as JSON with the given TTL.
func (s *redisKV) Put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("kv: redis client is nil")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv: failed to marshal value for key %s: %w", key, err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("kv: failed to set key %s: %w", key, err)
	}

	return nil
}

// Delete removes a key.
func (s *redisKV) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return errors.New("kv: redis client is nil")
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv: failed to delete key %s: %w", key, err)
	}

	return nil
}

// ListPrefix returns one SCAN page of keys under prefix.
func (s *redisKV) ListPrefix(ctx context.Context, prefix string, cursor uint64, count int64) ([]string, uint64, error) {
	if s.client == nil {
		return nil, 0, errors.New("kv: redis client is nil")
	}

	keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", count).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("kv: failed to scan prefix %s: %w", prefix, err)
	}

	return keys, next, nil
}

// BuildKey constructs a store key with the appropriate prefix.
// Examples:
//   - BuildKey(KeyCircuit, "market:coingecko") -> "circuit:market:coingecko"
//   - BuildKey(KeyRate, "analyze", "u1", "29384") -> "rate:analyze:u1:29384"
func BuildKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
