// Package middleware provides HTTP middleware for authentication and
// request logging.
package middleware

import (
	"context"
	"strings"
	"time"

	"MarketPulse/internal/conf"
	"MarketPulse/internal/model"
	pkglog "MarketPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	actorContextKey contextKey = "actor_id"
	roleContextKey  contextKey = "role"
)

// Auth extracts the caller's API key, resolves it to a config-mutation
// role against the bootstrap key lists, and stashes the masked actor ID
// and role in the request context. Unauthenticated requests pass
// through with no role; route handlers decide whether a role is
// required.
func Auth(authCfg *conf.Auth, logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			startTime := time.Now()

			var apiKey string
			if tr, ok := transport.FromServerContext(ctx); ok {
				if ht, ok := tr.(http.Transporter); ok {
					httpReq := ht.Request()

					authHeader := httpReq.Header.Get("Authorization")
					if authHeader != "" {
						apiKey = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
					}
					if apiKey == "" {
						apiKey = httpReq.Header.Get("X-API-Key")
					}
				}
			}

			if apiKey != "" {
				role := resolveRole(authCfg, apiKey)
				maskedKey := maskAPIKey(apiKey)

				if role == "" {
					logger.Security("Rejected unknown API key",
						"api_key_masked", maskedKey,
					)
				} else {
					logger.Auth(
						"Authenticated request from key "+maskedKey+" ("+role+") in "+formatDuration(time.Since(startTime).Milliseconds()),
						"api_key_masked", maskedKey,
						"role", role,
						"duration_ms", time.Since(startTime).Milliseconds(),
					)
					ctx = context.WithValue(ctx, actorContextKey, maskedKey)
					ctx = context.WithValue(ctx, roleContextKey, role)
				}
			}

			return handler(ctx, req)
		}
	}
}

// ActorFromContext returns the masked actor ID and role stored by the
// Auth middleware. Both are empty for unauthenticated callers.
func ActorFromContext(ctx context.Context) (actorID, role string) {
	if v, ok := ctx.Value(actorContextKey).(string); ok {
		actorID = v
	}
	if v, ok := ctx.Value(roleContextKey).(string); ok {
		role = v
	}
	return actorID, role
}

// resolveRole maps an API key to its role. Owner keys win when a key
// appears in both lists.
func resolveRole(authCfg *conf.Auth, apiKey string) string {
	if authCfg == nil {
		return ""
	}
	for _, k := range authCfg.OwnerKeys {
		if k == apiKey {
			return model.RoleOwner
		}
	}
	for _, k := range authCfg.AdminKeys {
		if k == apiKey {
			return model.RoleAdmin
		}
	}
	return ""
}

// maskAPIKey shows only the first 8 characters of a key.
// Example: "mp-1234567890abcdef" -> "mp-12345***"
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + "***"
}
