package service

import (
	"MarketPulse/internal/biz"
	"MarketPulse/internal/data"
	"MarketPulse/internal/model"
	"MarketPulse/internal/server/middleware"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// AdminService exposes the audited configuration surface. Every
// mutation goes through propose-patch role filtering and the snapshot-
// then-save path; there is no unaudited write.
type AdminService struct {
	config *biz.ConfigUseCase
	audit  *data.AuditLogger
	logger *log.Helper
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(config *biz.ConfigUseCase, audit *data.AuditLogger, logger log.Logger) *AdminService {
	return &AdminService{
		config: config,
		audit:  audit,
		logger: log.NewHelper(logger),
	}
}

// RollbackRequest identifies the snapshot to restore.
type RollbackRequest struct {
	VersionKey string `json:"version_key"`
	Reason     string `json:"reason"`
}

// RegisterRoutes attaches the admin routes to the HTTP server.
func (s *AdminService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/v1/admin")
	r.GET("/config", s.handleGetConfig)
	r.PATCH("/config", s.handlePatchConfig)
	r.POST("/config/rollback", s.handleRollback)
	r.GET("/config/history", s.handleHistory)
	r.GET("/audit", s.handleAudit)
}

func (s *AdminService) handleGetConfig(ctx http.Context) error {
	if _, _, err := s.actor(ctx); err != nil {
		return err
	}
	cfg := s.config.GetCurrent(ctx)
	return ctx.Result(200, cfg)
}

func (s *AdminService) handlePatchConfig(ctx http.Context) error {
	actorID, role, err := s.actor(ctx)
	if err != nil {
		return err
	}

	var patch model.ConfigPatch
	if err := ctx.Bind(&patch); err != nil {
		return kerrors.BadRequest("INVALID_REQUEST", "malformed config patch")
	}

	current := s.config.GetCurrent(ctx)
	proposed := s.config.ProposePatch(role, current, patch)

	saved, err := s.config.Save(ctx, actorID, proposed, "patch")
	if err != nil {
		s.logger.Errorw("config save failed", "actor_id", actorID, "error", err)
		return kerrors.InternalServer("CONFIG_SAVE_FAILED", "failed to save configuration")
	}

	return ctx.Result(200, saved)
}

func (s *AdminService) handleRollback(ctx http.Context) error {
	actorID, _, err := s.actor(ctx)
	if err != nil {
		return err
	}

	var req RollbackRequest
	if err := ctx.Bind(&req); err != nil || req.VersionKey == "" {
		return kerrors.BadRequest("INVALID_REQUEST", "version_key is required")
	}

	restored, err := s.config.Rollback(ctx, actorID, req.VersionKey)
	if err != nil {
		if err == data.ErrVersionNotFound {
			return kerrors.NotFound("VERSION_NOT_FOUND", "no snapshot for version key "+req.VersionKey)
		}
		s.logger.Errorw("rollback failed", "actor_id", actorID, "version_key", req.VersionKey, "error", err)
		return kerrors.InternalServer("ROLLBACK_FAILED", "failed to roll back configuration")
	}

	return ctx.Result(200, restored)
}

func (s *AdminService) handleHistory(ctx http.Context) error {
	if _, _, err := s.actor(ctx); err != nil {
		return err
	}

	versions, err := s.config.History(ctx, 50)
	if err != nil {
		return kerrors.InternalServer("HISTORY_FAILED", "failed to list configuration history")
	}
	return ctx.Result(200, map[string]interface{}{"versions": versions})
}

func (s *AdminService) handleAudit(ctx http.Context) error {
	if _, _, err := s.actor(ctx); err != nil {
		return err
	}

	entries, err := s.audit.Recent(ctx, 50)
	if err != nil {
		return kerrors.InternalServer("AUDIT_READ_FAILED", "failed to read audit log")
	}
	return ctx.Result(200, map[string]interface{}{"entries": entries})
}

// actor resolves the authenticated actor and role from the request
// context; unauthenticated requests are rejected here, not in the
// middleware, so public routes stay open.
func (s *AdminService) actor(ctx http.Context) (string, string, error) {
	actorID, role := middleware.ActorFromContext(ctx)
	if role == "" {
		return "", "", kerrors.Unauthorized("UNAUTHORIZED", "admin API key required")
	}
	return actorID, role, nil
}
