package biz

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"MarketPulse/internal/data"
	"MarketPulse/internal/model"
	"MarketPulse/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
)

// ConfigUseCase manages the versioned, audited runtime configuration.
// Every mutation snapshots the pre-mutation value first, so history is
// unbroken and every change, including a rollback, is itself
// reversible.
type ConfigUseCase struct {
	repo   *data.ConfigRepo
	audit  *data.AuditLogger
	logger *log.Helper

	// lastKnownGood serves reads when the durable store is unreachable.
	lastKnownGood atomic.Pointer[model.Config]
}

// NewConfigUseCase creates the config use case.
func NewConfigUseCase(repo *data.ConfigRepo, audit *data.AuditLogger, logger log.Logger) *ConfigUseCase {
	return &ConfigUseCase{
		repo:   repo,
		audit:  audit,
		logger: log.NewHelper(logger),
	}
}

// GetCurrent loads the current configuration. A missing key yields
// defaults; a storage error falls back to the last known-good in-process
// copy (or defaults before the first successful load). The result is
// always fully normalized.
func (uc *ConfigUseCase) GetCurrent(ctx context.Context) model.Config {
	cfg, err := uc.repo.GetCurrent(ctx)
	if err != nil {
		if !errors.Is(err, data.ErrKVNotFound) {
			uc.logger.Warnw("config read failed, using last known-good copy", "error", err)
			if cached := uc.lastKnownGood.Load(); cached != nil {
				return *cached
			}
		}
		cfg = model.DefaultConfig()
	}

	cfg.Normalize()
	uc.lastKnownGood.Store(&cfg)
	return cfg
}

// ProposePatch merges a patch into cfg, filtered by the actor's role.
// Pure, no I/O. Owner-only fields are dropped for non-owner roles; all
// other recognized fields merge. The result is normalized but not saved.
func (uc *ConfigUseCase) ProposePatch(role string, cfg model.Config, patch model.ConfigPatch) model.Config {
	merged := cfg

	if patch.Limits != nil {
		applyInt(&merged.Limits.FreeDaily, patch.Limits.FreeDaily)
		applyInt(&merged.Limits.AnalyzePerMinute, patch.Limits.AnalyzePerMinute)
		applyInt(&merged.Limits.EventsPerMinute, patch.Limits.EventsPerMinute)
		applyInt(&merged.Limits.DigestPageSize, patch.Limits.DigestPageSize)
	}
	if patch.Cache != nil {
		applyInt(&merged.Cache.AnalysisTTLSeconds, patch.Cache.AnalysisTTLSeconds)
		applyInt(&merged.Cache.MarketTTLSeconds, patch.Cache.MarketTTLSeconds)
	}
	if patch.Breaker != nil {
		applyInt(&merged.Breaker.FailureThreshold, patch.Breaker.FailureThreshold)
		applyInt(&merged.Breaker.CooldownSeconds, patch.Breaker.CooldownSeconds)
	}
	if patch.Announcement != nil {
		merged.Announcement = *patch.Announcement
	}

	// Owner-only fields: payout wallet and provider toggles/ordering.
	if role == model.RoleOwner {
		if patch.WalletPublic != nil {
			merged.WalletPublic = *patch.WalletPublic
		}
		if patch.Providers != nil {
			if len(patch.Providers.MarketOrder) > 0 {
				merged.Providers.MarketOrder = patch.Providers.MarketOrder
			}
			if len(patch.Providers.AIOrder) > 0 {
				merged.Providers.AIOrder = patch.Providers.AIOrder
			}
			if patch.Providers.Disabled != nil {
				merged.Providers.Disabled = patch.Providers.Disabled
			}
		}
	}

	merged.Normalize()
	return merged
}

// Save snapshots the existing current config under a fresh version key,
// writes the normalized new config as current, and appends one audit
// entry carrying before/after content hashes and the snapshot's version
// key. Returns the saved config.
func (uc *ConfigUseCase) Save(ctx context.Context, actorID string, newCfg model.Config, reason string) (model.Config, error) {
	newCfg.Normalize()

	before := uc.GetCurrent(ctx)
	now := time.Now()

	snap := model.ConfigSnapshot{
		VersionKey: data.NewVersionKey(now),
		CapturedAt: now,
		Payload:    before,
	}
	if err := uc.repo.PutSnapshot(ctx, snap); err != nil {
		return model.Config{}, err
	}

	if err := uc.repo.PutCurrent(ctx, newCfg); err != nil {
		return model.Config{}, err
	}
	uc.lastKnownGood.Store(&newCfg)

	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(newCfg)
	action := model.AuditActionConfigSaved
	if reason != "" && len(reason) >= 8 && reason[:8] == "rollback" {
		action = model.AuditActionConfigRollback
	}
	uc.audit.Append(ctx, actorID, action, hash.Content(beforeJSON), hash.Content(afterJSON), map[string]interface{}{
		"reason":      reason,
		"version_key": snap.VersionKey,
	})

	uc.logger.Infow("config saved",
		"actor_id", actorID,
		"reason", reason,
		"version_key", snap.VersionKey)

	return newCfg, nil
}

// Rollback restores the snapshot identified by versionKey as the new
// current config. Per the save algorithm this snapshots the pre-rollback
// current config too, so a rollback can itself be rolled back.
// Returns data.ErrVersionNotFound for an unknown version key.
func (uc *ConfigUseCase) Rollback(ctx context.Context, actorID, versionKey string) (model.Config, error) {
	snap, err := uc.repo.GetSnapshot(ctx, versionKey)
	if err != nil {
		return model.Config{}, err
	}

	return uc.Save(ctx, actorID, snap.Payload, "rollback:"+versionKey)
}

// History returns up to limit snapshot version keys, newest first.
// Retention is unbounded today; pruning hangs off the cron seam.
func (uc *ConfigUseCase) History(ctx context.Context, limit int) ([]string, error) {
	return uc.repo.ListVersions(ctx, limit)
}

func applyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
