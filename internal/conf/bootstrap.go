package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"google.golang.org/protobuf/types/known/durationpb"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies
// defaults, and allows overrides from environment variables prefixed
// with MARKETPULSE_.
//
// Configuration priority: CLI flags > Environment variables > Config file > Defaults
//
// Required environment variables:
//   - MYSQL_DSN or MARKETPULSE_DATA_DATABASE_SOURCE: MySQL connection string
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable support with MARKETPULSE_ prefix
	v.SetEnvPrefix("MARKETPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names for required fields
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "MARKETPULSE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "MARKETPULSE_DATA_REDIS_ADDR")
	_ = v.BindEnv("auth.owner_keys", "OWNER_API_KEYS", "MARKETPULSE_AUTH_OWNER_KEYS")
	_ = v.BindEnv("auth.admin_keys", "ADMIN_API_KEYS", "MARKETPULSE_AUTH_ADMIN_KEYS")
	_ = v.BindEnv("providers.proxy", "MARKETPULSE_PROVIDERS_PROXY")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	bc := &Bootstrap{
		Server: &Server{
			Http: &Server_HTTP{
				Network: v.GetString("server.http.network"),
				Addr:    v.GetString("server.http.addr"),
				Timeout: durationpb.New(v.GetDuration("server.http.timeout")),
			},
		},
		Data: &Data{
			Database: &Data_Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Data_Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  durationpb.New(v.GetDuration("data.redis.read_timeout")),
				WriteTimeout: durationpb.New(v.GetDuration("data.redis.write_timeout")),
			},
		},
		Auth: &Auth{
			OwnerKeys: splitKeys(v.GetString("auth.owner_keys")),
			AdminKeys: splitKeys(v.GetString("auth.admin_keys")),
		},
		Providers: loadProviders(v),
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
	}

	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// loadProviders parses the providers section. Vendors are listed as maps
// so operators can reorder or remove them without code changes.
func loadProviders(v *viper.Viper) *Providers {
	p := &Providers{
		Proxy: v.GetString("providers.proxy"),
	}

	var markets []map[string]interface{}
	if err := v.UnmarshalKey("providers.market", &markets); err == nil {
		for _, m := range markets {
			p.Market = append(p.Market, &Providers_Market{
				Name:    asString(m["name"]),
				BaseURL: asString(m["base_url"]),
				Timeout: durationpb.New(asDuration(m["timeout"], 8*time.Second)),
			})
		}
	}

	var ais []map[string]interface{}
	if err := v.UnmarshalKey("providers.ai", &ais); err == nil {
		for _, m := range ais {
			p.AI = append(p.AI, &Providers_AI{
				Name:    asString(m["name"]),
				BaseURL: asString(m["base_url"]),
				Model:   asString(m["model"]),
				Keys:    asStrings(m["keys"]),
				Timeout: durationpb.New(asDuration(m["timeout"], 20*time.Second)),
			})
		}
	}

	return p
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.network", "tcp")
	v.SetDefault("server.http.addr", ":8080")
	v.SetDefault("server.http.timeout", 30*time.Second)

	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is required from environment

	v.SetDefault("data.redis.network", "tcp")
	v.SetDefault("data.redis.addr", "127.0.0.1:6379")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration fields are present.
// It returns an error listing all missing required fields.
func Validate(bc *Bootstrap) error {
	var missingFields []string

	if bc.Data == nil || bc.Data.Database == nil || bc.Data.Database.Source == "" {
		missingFields = append(missingFields, "data.database.source (MYSQL_DSN)")
	}

	if bc.Auth == nil || (len(bc.Auth.OwnerKeys) == 0 && len(bc.Auth.AdminKeys) == 0) {
		missingFields = append(missingFields, "auth.owner_keys or auth.admin_keys")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStrings(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		var out []string
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return splitKeys(vv)
	}
	return nil
}

func asDuration(v interface{}, def time.Duration) time.Duration {
	switch vv := v.(type) {
	case string:
		if d, err := time.ParseDuration(vv); err == nil {
			return d
		}
	case time.Duration:
		return vv
	case int:
		return time.Duration(vv) * time.Second
	}
	return def
}
