package data

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pkgerrors "MarketPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// AuditLog is the GORM model for the config_audit_logs table. Entries
// store before/after content hashes rather than full payloads to bound
// log size, and are immutable once written.
type AuditLog struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	ActorID    string    `gorm:"column:actor_id;type:varchar(64);not null;index"`
	Action     string    `gorm:"column:action;type:varchar(50);not null"`
	BeforeHash string    `gorm:"column:before_hash;type:varchar(64)"`
	AfterHash  string    `gorm:"column:after_hash;type:varchar(64)"`
	Metadata   string    `gorm:"column:metadata;type:json"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (AuditLog) TableName() string {
	return "config_audit_logs"
}

// AuditLogger writes audit entries asynchronously so a slow or down
// database never blocks the mutation path. Entries are queued on a
// bounded channel and dropped with a warning when it is full.
type AuditLogger struct {
	db      *gorm.DB
	logChan chan *AuditLog
	logger  *log.Helper
}

// NewAuditLogger creates a new audit logger with an async channel.
func NewAuditLogger(db *gorm.DB, logger log.Logger) *AuditLogger {
	al := &AuditLogger{
		db:      db,
		logChan: make(chan *AuditLog, 1000), // Buffer size 1000 to prevent blocking
		logger:  log.NewHelper(logger),
	}

	go al.start()

	return al
}

// start processes audit entries from the channel.
func (a *AuditLogger) start() {
	for entry := range a.logChan {
		if a.db == nil {
			a.logger.Debugw("audit database unavailable, entry dropped",
				"actor_id", entry.ActorID,
				"action", entry.Action)
			continue
		}
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(entry).Error; err != nil {
			if pkgerrors.IsDBUnavailable(err) {
				err = pkgerrors.NewStorage(err)
			}
			if pkgerrors.IsStorage(err) {
				// The database is unreachable, not rejecting the row; the
				// entry is lost but the mutation path stays unaffected.
				a.logger.Warnw("audit write skipped, database unreachable",
					"actor_id", entry.ActorID,
					"action", entry.Action,
					"error", err)
			} else {
				a.logger.Errorw("failed to write audit log",
					"actor_id", entry.ActorID,
					"action", entry.Action,
					"error", err)
			}
		} else {
			a.logger.Debugw("audit log written",
				"actor_id", entry.ActorID,
				"action", entry.Action)
		}
	}
}

// Append queues one audit entry. Non-blocking: if the channel is full the
// entry is dropped and a warning logged.
func (a *AuditLogger) Append(ctx context.Context, actorID, action, beforeHash, afterHash string, metadata map[string]interface{}) {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		a.logger.Errorw("failed to marshal audit metadata", "error", err)
		metadataJSON = []byte("{}")
	}

	entry := &AuditLog{
		ActorID:    actorID,
		Action:     action,
		BeforeHash: beforeHash,
		AfterHash:  afterHash,
		Metadata:   string(metadataJSON),
	}

	select {
	case a.logChan <- entry:
		// Successfully queued
	default:
		a.logger.Warnw("audit log channel full, dropping entry",
			"actor_id", actorID,
			"action", action)
	}
}

// Recent returns the most recent audit entries, newest first.
func (a *AuditLogger) Recent(ctx context.Context, limit int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if a.db == nil {
		return nil, errors.New("audit database unavailable")
	}
	var entries []AuditLog
	err := a.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
