package service

import (
	"time"

	"MarketPulse/internal/biz"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// AnalysisService exposes the analysis and event-ingest operations.
type AnalysisService struct {
	analysis *biz.AnalysisUseCase
	market   *biz.MarketUseCase
	dedup    *biz.DedupUseCase
	limiter  *biz.RateLimiterUseCase
	config   *biz.ConfigUseCase
	logger   *log.Helper
}

// NewAnalysisService creates a new AnalysisService instance.
func NewAnalysisService(
	analysis *biz.AnalysisUseCase,
	market *biz.MarketUseCase,
	dedup *biz.DedupUseCase,
	limiter *biz.RateLimiterUseCase,
	config *biz.ConfigUseCase,
	logger log.Logger,
) *AnalysisService {
	return &AnalysisService{
		analysis: analysis,
		market:   market,
		dedup:    dedup,
		limiter:  limiter,
		config:   config,
		logger:   log.NewHelper(logger),
	}
}

// AnalyzeRequest is the analysis request payload.
type AnalyzeRequest struct {
	UserID string `json:"user_id"`
	Symbol string `json:"symbol"`
	Prompt string `json:"prompt"`
}

// AnalyzeResponse is the analysis response payload.
type AnalyzeResponse struct {
	Text      string      `json:"text"`
	Annex     interface{} `json:"annex"`
	Valid     bool        `json:"valid"`
	Provider  string      `json:"provider"`
	Sentiment string      `json:"sentiment,omitempty"`
}

// EventRequest is one inbound platform event.
type EventRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	Symbol  string `json:"symbol"`
	Prompt  string `json:"prompt"`
}

// RegisterRoutes attaches the analysis routes to the HTTP server.
func (s *AnalysisService) RegisterRoutes(srv *http.Server) {
	r := srv.Route("/v1")
	r.POST("/analyze", s.handleAnalyze)
	r.POST("/events", s.handleEvent)
	r.GET("/markets/{symbol}/candles", s.handleCandles)
}

func (s *AnalysisService) handleAnalyze(ctx http.Context) error {
	var req AnalyzeRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_REQUEST", "malformed analyze request")
	}
	if req.UserID == "" || req.Prompt == "" {
		return errors.BadRequest("INVALID_REQUEST", "user_id and prompt are required")
	}

	result, err := s.analysis.Analyze(ctx, req.UserID, req.Symbol, req.Prompt)
	if err != nil {
		return err
	}

	return ctx.Result(200, &AnalyzeResponse{
		Text:      result.Text,
		Annex:     result.Annex,
		Valid:     result.Valid,
		Provider:  result.Provider,
		Sentiment: result.Annex.Sentiment,
	})
}

// handleEvent ingests one platform event. The dedup guard runs before
// any handler so rapid duplicate deliveries collapse to one analysis.
func (s *AnalysisService) handleEvent(ctx http.Context) error {
	var req EventRequest
	if err := ctx.Bind(&req); err != nil {
		return errors.BadRequest("INVALID_REQUEST", "malformed event")
	}
	if req.EventID == "" {
		return errors.BadRequest("INVALID_REQUEST", "event_id is required")
	}

	if !s.dedup.MarkIfNew(ctx, req.EventID, biz.DefaultDedupTTL) {
		s.logger.Debugw("duplicate event suppressed", "event_id", req.EventID)
		return ctx.Result(200, map[string]interface{}{"status": "duplicate"})
	}

	cfg := s.config.GetCurrent(ctx)
	if err := s.limiter.Check(ctx, "events", req.UserID, cfg.Limits.EventsPerMinute); err != nil {
		return err
	}

	if req.Prompt == "" {
		return ctx.Result(200, map[string]interface{}{"status": "accepted"})
	}

	result, err := s.analysis.Analyze(ctx, req.UserID, req.Symbol, req.Prompt)
	if err != nil {
		return err
	}

	return ctx.Result(200, &AnalyzeResponse{
		Text:      result.Text,
		Annex:     result.Annex,
		Valid:     result.Valid,
		Provider:  result.Provider,
		Sentiment: result.Annex.Sentiment,
	})
}

func (s *AnalysisService) handleCandles(ctx http.Context) error {
	symbol := ctx.Vars().Get("symbol")
	if symbol == "" {
		return errors.BadRequest("INVALID_REQUEST", "symbol is required")
	}
	interval := ctx.Query().Get("interval")
	if interval == "" {
		interval = "1h"
	}

	started := time.Now()
	set, err := s.market.Candles(ctx, symbol, interval)
	if err != nil {
		return err
	}

	s.logger.Debugw("candles served",
		"symbol", symbol,
		"interval", interval,
		"provider", set.Provider,
		"points", len(set.Candles),
		"duration_ms", time.Since(started).Milliseconds())

	return ctx.Result(200, set)
}
