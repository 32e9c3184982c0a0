// Package conf provides bootstrap configuration management using Viper.
// It covers process-level settings only (listeners, storage endpoints,
// provider credentials, logging). Runtime business configuration lives in
// the durable store behind the audited config path.
package conf

import (
	"google.golang.org/protobuf/types/known/durationpb"
)

// Bootstrap is the root configuration structure.
type Bootstrap struct {
	Server    *Server
	Data      *Data
	Auth      *Auth
	Providers *Providers
	Log       *Log
}

// Server holds transport listener configuration.
type Server struct {
	Http *Server_HTTP
}

// Server_HTTP holds the HTTP listener configuration.
type Server_HTTP struct {
	Network string
	Addr    string
	Timeout *durationpb.Duration
}

// Data holds storage backend configuration.
type Data struct {
	Database *Data_Database
	Redis    *Data_Redis
}

// Data_Database holds the MySQL connection configuration.
type Data_Database struct {
	Driver string
	Source string
}

// Data_Redis holds the Redis connection configuration.
type Data_Redis struct {
	Network      string
	Addr         string
	ReadTimeout  *durationpb.Duration
	WriteTimeout *durationpb.Duration
}

// Auth maps API keys to config-mutation roles.
type Auth struct {
	OwnerKeys []string
	AdminKeys []string
}

// Providers holds outbound provider endpoints and credentials.
type Providers struct {
	Market []*Providers_Market
	AI     []*Providers_AI
	Proxy  string // optional socks5:// or http:// proxy for AI calls
}

// Providers_Market is one market-data vendor endpoint.
type Providers_Market struct {
	Name    string
	BaseURL string
	Timeout *durationpb.Duration
}

// Providers_AI is one AI inference provider with its credential pool.
type Providers_AI struct {
	Name    string
	BaseURL string
	Model   string
	Keys    []string
	Timeout *durationpb.Duration
}

// Log holds logging configuration.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}
