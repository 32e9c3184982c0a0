package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// dedupMarker is the stored at-most-once record for an event id.
type dedupMarker struct {
	EventID   string    `json:"event_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DedupRepo stores short-TTL markers that suppress duplicate deliveries
// of recently-seen event ids. This is a short-horizon redelivery filter,
// not a durability guarantee: once the TTL elapses the id may be
// reprocessed.
type DedupRepo struct {
	kv     KVStore
	logger *log.Helper
}

// NewDedupRepo creates a new dedup repository.
func NewDedupRepo(kv KVStore, logger log.Logger) *DedupRepo {
	return &DedupRepo{
		kv:     kv,
		logger: log.NewHelper(logger),
	}
}

// MarkIfNew records the event id if it has not been seen within the TTL
// window. Returns true on first sight, false on a repeat. The check and
// the set are separate store operations; two near-simultaneous deliveries
// of the same id can both be admitted, and downstream handlers must
// tolerate that rare double-processing.
func (r *DedupRepo) MarkIfNew(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	key := BuildKey(KeyDedup, eventID)

	var existing dedupMarker
	err := r.kv.Get(ctx, key, &existing)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrKVNotFound) {
		return false, err
	}

	marker := dedupMarker{
		EventID:   eventID,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := r.kv.Put(ctx, key, marker, ttl); err != nil {
		return false, err
	}

	return true, nil
}
