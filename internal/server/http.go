// Package server wires the HTTP transport.
package server

import (
	"MarketPulse/internal/conf"
	"MarketPulse/internal/server/middleware"
	"MarketPulse/internal/service"
	pkglog "MarketPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Server,
	authCfg *conf.Auth,
	analysisService *service.AnalysisService,
	adminService *service.AdminService,
	logger log.Logger,
) *http.Server {
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Auth(authCfg, logHelper),
			middleware.Logging(logHelper),
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)

	analysisService.RegisterRoutes(srv)
	adminService.RegisterRoutes(srv)

	return srv
}
