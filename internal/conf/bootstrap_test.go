package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
data:
  database:
    source: "user:pass@tcp(127.0.0.1:3306)/marketpulse"
auth:
  owner_keys: "owner-key-1"
`

func TestNewBootstrap_Defaults(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	bc, err := NewBootstrap(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", bc.Server.Http.Addr)
	assert.Equal(t, 30*time.Second, bc.Server.Http.Timeout.AsDuration())
	assert.Equal(t, "mysql", bc.Data.Database.Driver)
	assert.Equal(t, "127.0.0.1:6379", bc.Data.Redis.Addr)
	assert.Equal(t, "info", bc.Log.Level)
	assert.Equal(t, "json", bc.Log.Format)
}

func TestNewBootstrap_FullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: ":9000"
    timeout: 10s
data:
  database:
    source: "user:pass@tcp(127.0.0.1:3306)/marketpulse"
  redis:
    addr: "10.0.0.5:6379"
auth:
  owner_keys: "owner-1, owner-2"
  admin_keys: "admin-1"
providers:
  proxy: "socks5://127.0.0.1:1080"
  market:
    - name: coingecko
      base_url: "https://api.coingecko.example"
      timeout: 5s
  ai:
    - name: openai
      base_url: "https://api.openai.example"
      model: gpt-4o-mini
      keys:
        - key-1
        - key-2
`)

	bc, err := NewBootstrap(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", bc.Server.Http.Addr)
	assert.Equal(t, "10.0.0.5:6379", bc.Data.Redis.Addr)
	assert.Equal(t, []string{"owner-1", "owner-2"}, bc.Auth.OwnerKeys)
	assert.Equal(t, []string{"admin-1"}, bc.Auth.AdminKeys)
	assert.Equal(t, "socks5://127.0.0.1:1080", bc.Providers.Proxy)

	require.Len(t, bc.Providers.Market, 1)
	assert.Equal(t, "coingecko", bc.Providers.Market[0].Name)
	assert.Equal(t, 5*time.Second, bc.Providers.Market[0].Timeout.AsDuration())

	require.Len(t, bc.Providers.AI, 1)
	assert.Equal(t, "gpt-4o-mini", bc.Providers.AI[0].Model)
	assert.Equal(t, []string{"key-1", "key-2"}, bc.Providers.AI[0].Keys)
	// Unset AI timeout falls back to the default.
	assert.Equal(t, 20*time.Second, bc.Providers.AI[0].Timeout.AsDuration())
}

func TestNewBootstrap_MissingRequiredFields(t *testing.T) {
	path := writeConfig(t, `
server:
  http:
    addr: ":9000"
`)

	_, err := NewBootstrap(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.database.source")
	assert.Contains(t, err.Error(), "auth.owner_keys or auth.admin_keys")
}

func TestNewBootstrap_EnvOverrides(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	t.Setenv("MARKETPULSE_DATA_REDIS_ADDR", "redis.internal:6379")
	t.Setenv("ADMIN_API_KEYS", "env-admin-1,env-admin-2")

	bc, err := NewBootstrap(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", bc.Data.Redis.Addr)
	assert.Equal(t, []string{"env-admin-1", "env-admin-2"}, bc.Auth.AdminKeys)
}

func TestSplitKeys(t *testing.T) {
	assert.Nil(t, splitKeys(""))
	assert.Equal(t, []string{"a", "b"}, splitKeys(" a , b ,"))
}

func TestValidate_MissingDatabase(t *testing.T) {
	err := Validate(&Bootstrap{Auth: &Auth{OwnerKeys: []string{"k"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MYSQL_DSN")
}
