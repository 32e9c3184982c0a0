package data

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"MarketPulse/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ErrVersionNotFound is returned when a rollback targets an unknown
// snapshot version.
var ErrVersionNotFound = errors.New("config: version_not_found")

// ConfigRepo persists the current runtime configuration and its
// append-only snapshot history in the durable store. Snapshots and the
// current key are written without TTL; they persist indefinitely.
type ConfigRepo struct {
	kv     KVStore
	logger *log.Helper
}

// NewConfigRepo creates a new config repository.
func NewConfigRepo(kv KVStore, logger log.Logger) *ConfigRepo {
	return &ConfigRepo{
		kv:     kv,
		logger: log.NewHelper(logger),
	}
}

// NewVersionKey mints a monotonic-timestamp version key with a random
// suffix so concurrent writers never collide.
func NewVersionKey(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// GetCurrent loads the current configuration. A missing key returns
// ErrKVNotFound; the caller decides whether that means defaults.
func (r *ConfigRepo) GetCurrent(ctx context.Context) (model.Config, error) {
	var cfg model.Config
	if err := r.kv.Get(ctx, KeyConfigCurrent, &cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

// PutCurrent writes the current configuration without TTL.
func (r *ConfigRepo) PutCurrent(ctx context.Context, cfg model.Config) error {
	return r.kv.Put(ctx, KeyConfigCurrent, cfg, 0)
}

// PutSnapshot appends one immutable snapshot under its version key.
func (r *ConfigRepo) PutSnapshot(ctx context.Context, snap model.ConfigSnapshot) error {
	return r.kv.Put(ctx, BuildKey(KeyConfigVersion, snap.VersionKey), snap, 0)
}

// GetSnapshot loads a snapshot by version key.
func (r *ConfigRepo) GetSnapshot(ctx context.Context, versionKey string) (model.ConfigSnapshot, error) {
	var snap model.ConfigSnapshot
	err := r.kv.Get(ctx, BuildKey(KeyConfigVersion, versionKey), &snap)
	if errors.Is(err, ErrKVNotFound) {
		return model.ConfigSnapshot{}, ErrVersionNotFound
	}
	if err != nil {
		return model.ConfigSnapshot{}, err
	}
	return snap, nil
}

// ListVersions returns up to limit snapshot version keys, newest first.
// The listing pages through the store's prefix scan; history has no
// retention bound yet, so callers should always pass a limit.
func (r *ConfigRepo) ListVersions(ctx context.Context, limit int) ([]string, error) {
	prefix := KeyConfigVersion + ":"

	var keys []string
	var cursor uint64
	for {
		page, next, err := r.kv.ListPrefix(ctx, prefix, cursor, 100)
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	versions := make([]string, 0, len(keys))
	for _, k := range keys {
		versions = append(versions, strings.TrimPrefix(k, prefix))
	}

	// Version keys start with a millisecond timestamp, so a reverse
	// lexicographic sort is newest-first for same-length prefixes.
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))

	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}
	return versions, nil
}
