package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEXIQ_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEXIQ_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Postgres.DSN, "DEXIQ_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DEXIQ_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DEXIQ_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DEXIQ_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DEXIQ_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DEXIQ_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DEXIQ_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "DEXIQ_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "DEXIQ_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEXIQ_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEXIQ_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "DEXIQ_REDIS_TLS_ENABLED")

	setStr(&cfg.Sources.DexScreenerHost, "DEXIQ_SOURCES_DEXSCREENER_HOST")
	setStr(&cfg.Sources.GeckoTerminalHost, "DEXIQ_SOURCES_GECKOTERMINAL_HOST")
	setInt(&cfg.Sources.StalenessMinutes, "DEXIQ_SOURCES_STALENESS_MINUTES")
	setInt(&cfg.Sources.CandlePageLimit, "DEXIQ_SOURCES_CANDLE_PAGE_LIMIT")

	setStr(&cfg.Analysis.Host, "DEXIQ_ANALYSIS_HOST")
	setStr(&cfg.Analysis.APIKey, "DEXIQ_ANALYSIS_API_KEY")
	setStr(&cfg.Analysis.APIKey, "OPENAI_API_KEY") // compatibility alias
	setStr(&cfg.Analysis.Model, "DEXIQ_ANALYSIS_MODEL")
	setInt(&cfg.Analysis.CacheTTLMinutes, "DEXIQ_ANALYSIS_CACHE_TTL_MINUTES")

	setInt(&cfg.Pipeline.IngestWorkers, "DEXIQ_PIPELINE_INGEST_WORKERS")
	setInt(&cfg.Pipeline.AnalysisWorkers, "DEXIQ_PIPELINE_ANALYSIS_WORKERS")

	setInt(&cfg.Server.Port, "DEXIQ_SERVER_PORT")
	setInt64(&cfg.Server.DefaultUserID, "DEXIQ_SERVER_DEFAULT_USER_ID")

	setStr(&cfg.LogLevel, "DEXIQ_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
