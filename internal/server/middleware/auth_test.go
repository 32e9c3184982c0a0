package middleware

import (
	"context"
	"testing"

	"MarketPulse/internal/conf"
	"MarketPulse/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	authCfg := &conf.Auth{
		OwnerKeys: []string{"mp-owner-key-0001", "shared-key"},
		AdminKeys: []string{"mp-admin-key-0001", "shared-key"},
	}

	assert.Equal(t, model.RoleOwner, resolveRole(authCfg, "mp-owner-key-0001"))
	assert.Equal(t, model.RoleAdmin, resolveRole(authCfg, "mp-admin-key-0001"))
	assert.Empty(t, resolveRole(authCfg, "mp-unknown-key"))
	assert.Empty(t, resolveRole(nil, "mp-owner-key-0001"))

	// Owner wins when a key is in both lists.
	assert.Equal(t, model.RoleOwner, resolveRole(authCfg, "shared-key"))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "mp-12345***", maskAPIKey("mp-1234567890abcdef"))
	assert.Equal(t, "********", maskAPIKey("short-12"))
	assert.Equal(t, "***", maskAPIKey("abc"))
	assert.Equal(t, "", maskAPIKey(""))
}

func TestActorFromContext(t *testing.T) {
	ctx := context.Background()

	actor, role := ActorFromContext(ctx)
	assert.Empty(t, actor)
	assert.Empty(t, role)

	ctx = context.WithValue(ctx, actorContextKey, "mp-12345***")
	ctx = context.WithValue(ctx, roleContextKey, model.RoleAdmin)

	actor, role = ActorFromContext(ctx)
	assert.Equal(t, "mp-12345***", actor)
	assert.Equal(t, model.RoleAdmin, role)
}
