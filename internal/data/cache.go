package data

import (
	"context"
	"encoding/json"
	"time"

	"MarketPulse/internal/model"
	pkgerrors "MarketPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memoryCacheSize bounds the in-process tier. Entries age out lazily at
// read time, the LRU bound only caps memory.
const memoryCacheSize = 2048

// CacheRow is the GORM model for the analysis_cache table, the optional
// secondary durable tier.
type CacheRow struct {
	ContentHash string    `gorm:"primaryKey;column:content_hash;type:varchar(64)"`
	Payload     string    `gorm:"column:payload;type:json"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for GORM.
func (CacheRow) TableName() string {
	return "analysis_cache"
}

// TieredCache is a multi-level content-addressed cache: in-process LRU,
// then the durable key-value store, then a relational cache table. Every
// tier enforces expiry lazily at read time by comparing entry age against
// the active TTL; a hit on a slower tier backfills the faster tiers. The
// in-process tier is instance-local; the durable tiers are the only ones
// relied upon across instances.
type TieredCache struct {
	mem    *lru.Cache[string, model.CacheEntry]
	kv     KVStore
	db     *gorm.DB
	logger *log.Helper
}

// NewTieredCache creates the tiered cache. The relational tier is
// optional; a nil db disables it.
func NewTieredCache(kv KVStore, db *gorm.DB, logger log.Logger) (*TieredCache, error) {
	mem, err := lru.New[string, model.CacheEntry](memoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &TieredCache{
		mem:    mem,
		kv:     kv,
		db:     db,
		logger: log.NewHelper(logger),
	}, nil
}

// Get looks up an entry by content hash, trying tiers cheapest-first.
// Any storage error is treated as a miss on that tier. Returns false on
// a full miss or when every copy is older than ttl.
func (c *TieredCache) Get(ctx context.Context, hash string, ttl time.Duration) (model.CacheEntry, bool) {
	now := time.Now()

	if entry, ok := c.mem.Get(hash); ok {
		if !entry.Expired(now, ttl) {
			return entry, true
		}
		// Stale in memory; fall through in case a fresher copy exists below.
	}

	var entry model.CacheEntry
	if err := c.kv.Get(ctx, BuildKey(KeyAnalysis, hash), &entry); err == nil {
		if !entry.Expired(now, ttl) {
			c.mem.Add(hash, entry)
			return entry, true
		}
	} else if err != ErrKVNotFound {
		c.logger.Warnw("cache kv read failed, treating as miss", "hash", hash, "error", err)
	}

	if c.db != nil {
		var row CacheRow
		err := c.db.WithContext(ctx).Where("content_hash = ?", hash).First(&row).Error
		if err == nil {
			entry = model.CacheEntry{
				ContentHash: row.ContentHash,
				Payload:     json.RawMessage(row.Payload),
				CreatedAt:   row.CreatedAt,
			}
			if !entry.Expired(now, ttl) {
				// Backfill the faster tiers before returning.
				if kvErr := c.kv.Put(ctx, BuildKey(KeyAnalysis, hash), entry, ttl); kvErr != nil {
					c.logger.Warnw("cache kv backfill failed", "hash", hash, "error", kvErr)
				}
				c.mem.Add(hash, entry)
				return entry, true
			}
		} else if !pkgerrors.IsNotFound(err) {
			if pkgerrors.IsDBUnavailable(err) {
				err = pkgerrors.NewStorage(err)
			}
			c.logger.Warnw("cache db read failed, treating as miss", "hash", hash, "error", err)
		}
	}

	return model.CacheEntry{}, false
}

// Put writes the entry through all available tiers synchronously with the
// same TTL. Tier write failures are best-effort and swallowed; the caller
// already holds the computed value.
func (c *TieredCache) Put(ctx context.Context, hash string, payload json.RawMessage, ttl time.Duration) {
	entry := model.CacheEntry{
		ContentHash: hash,
		Payload:     payload,
		CreatedAt:   time.Now(),
	}

	c.mem.Add(hash, entry)

	if err := c.kv.Put(ctx, BuildKey(KeyAnalysis, hash), entry, ttl); err != nil {
		c.logger.Warnw("cache kv write failed (best effort)", "hash", hash, "error", err)
	}

	if c.db != nil {
		row := CacheRow{
			ContentHash: hash,
			Payload:     string(payload),
			CreatedAt:   entry.CreatedAt,
		}
		switch err := c.db.WithContext(ctx).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&row).Error; {
		case err == nil:
		case pkgerrors.IsDuplicateKey(err):
			// Concurrent write of the same content; the row is already there.
		default:
			if pkgerrors.IsDBUnavailable(err) {
				err = pkgerrors.NewStorage(err)
			}
			c.logger.Warnw("cache db write failed (best effort)", "hash", hash, "error", err)
		}
	}
}

// Reset clears the in-process tier. Used by tests; durable tiers expire
// on their own.
func (c *TieredCache) Reset() {
	c.mem.Purge()
}
