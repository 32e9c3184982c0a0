package biz

import (
	"context"
	"time"

	"MarketPulse/internal/data"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultDedupTTL is the redelivery-suppression horizon for inbound
// events. It filters rapid duplicate deliveries, it is not long-term
// deduplication.
const DefaultDedupTTL = 60 * time.Second

// DedupUseCase provides at-most-once markers for inbound events.
type DedupUseCase struct {
	repo   *data.DedupRepo
	logger *log.Helper
}

// NewDedupUseCase creates the dedup use case.
func NewDedupUseCase(repo *data.DedupRepo, logger log.Logger) *DedupUseCase {
	return &DedupUseCase{
		repo:   repo,
		logger: log.NewHelper(logger),
	}
}

// MarkIfNew returns true the first time an event id is seen within the
// TTL window and false on any repeat. On a storage failure the event is
// treated as new so event processing keeps working through a store
// outage; downstream handlers already tolerate rare double-processing.
func (uc *DedupUseCase) MarkIfNew(ctx context.Context, eventID string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}

	fresh, err := uc.repo.MarkIfNew(ctx, eventID, ttl)
	if err != nil {
		uc.logger.Warnf("dedup marker failed for %s: %v (treating as new)", eventID, err)
		return true
	}
	return fresh
}
