// Package config defines the top-level configuration for the dexiq backend
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DEXIQ_* environment variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Sources  SourcesConfig  `toml:"sources"`
	Analysis AnalysisConfig `toml:"analysis"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// SourcesConfig holds the external market-data source parameters.
type SourcesConfig struct {
	DexScreenerHost   string `toml:"dexscreener_host"`
	GeckoTerminalHost string `toml:"geckoterminal_host"`
	StalenessMinutes  int    `toml:"staleness_minutes"`
	CandlePageLimit   int    `toml:"candle_page_limit"`
	ConnectTimeoutSec int    `toml:"connect_timeout_sec"`
	RequestTimeoutSec int    `toml:"request_timeout_sec"`
	RetryCount        int    `toml:"retry_count"`
}

// Staleness returns the refetch threshold for ticker and metadata sources.
func (s SourcesConfig) Staleness() time.Duration {
	return time.Duration(s.StalenessMinutes) * time.Minute
}

// ConnectTimeout returns the per-dial timeout for source calls.
func (s SourcesConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSec) * time.Second
}

// RequestTimeout returns the total per-request timeout for source calls.
func (s SourcesConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSec) * time.Second
}

// AnalysisConfig holds parameters for the AI analysis collaborator.
type AnalysisConfig struct {
	Host            string `toml:"host"`
	APIKey          string `toml:"api_key"`
	Model           string `toml:"model"`
	MaxInsights     int    `toml:"max_insights"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
	TimeoutSec      int    `toml:"timeout_sec"`
}

// CacheTTL returns the analysis result cache expiry.
func (a AnalysisConfig) CacheTTL() time.Duration {
	return time.Duration(a.CacheTTLMinutes) * time.Minute
}

// Timeout returns the per-request timeout for collaborator calls.
func (a AnalysisConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// PipelineConfig holds job-queue sizing for the ingest/analyze pipeline.
type PipelineConfig struct {
	IngestWorkers   int `toml:"ingest_workers"`
	AnalysisWorkers int `toml:"analysis_workers"`
	QueueSize       int `toml:"queue_size"`
}

// ServerConfig holds the HTTP API server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// DefaultUserID stands in for the authentication collaborator, which is
	// out of scope for this service.
	DefaultUserID int64 `toml:"default_user_id"`
}

// Defaults returns a Config populated with sensible development defaults.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "dexiq",
			User:          "dexiq",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Sources: SourcesConfig{
			DexScreenerHost:   "https://api.dexscreener.com/latest/dex",
			GeckoTerminalHost: "https://api.geckoterminal.com/api/v2",
			StalenessMinutes:  5,
			CandlePageLimit:   1000,
			ConnectTimeoutSec: 10,
			RequestTimeoutSec: 30,
			RetryCount:        2,
		},
		Analysis: AnalysisConfig{
			Host:            "https://api.openai.com/v1",
			Model:           "gpt-4o",
			MaxInsights:     5,
			CacheTTLMinutes: 15,
			TimeoutSec:      60,
		},
		Pipeline: PipelineConfig{
			IngestWorkers:   4,
			AnalysisWorkers: 2,
			QueueSize:       256,
		},
		Server: ServerConfig{
			Port:          8080,
			DefaultUserID: 1,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for fields that would make the service
// unable to start.
func (c *Config) Validate() error {
	var problems []string

	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
		problems = append(problems, "postgres: dsn or host/database/user required")
	}
	if c.Redis.Addr == "" {
		problems = append(problems, "redis: addr required")
	}
	if c.Sources.DexScreenerHost == "" {
		problems = append(problems, "sources: dexscreener_host required")
	}
	if c.Sources.GeckoTerminalHost == "" {
		problems = append(problems, "sources: geckoterminal_host required")
	}
	if c.Sources.StalenessMinutes <= 0 {
		problems = append(problems, "sources: staleness_minutes must be positive")
	}
	if c.Sources.CandlePageLimit <= 0 || c.Sources.CandlePageLimit > 1000 {
		problems = append(problems, "sources: candle_page_limit must be in (0, 1000]")
	}
	if c.Pipeline.IngestWorkers <= 0 {
		problems = append(problems, "pipeline: ingest_workers must be positive")
	}
	if c.Pipeline.AnalysisWorkers <= 0 {
		problems = append(problems, "pipeline: analysis_workers must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server: port out of range")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
