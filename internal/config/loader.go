package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CONSTELLATE_* environment variable overrides,
// and returns the final Config. An empty path skips the file and uses
// defaults plus environment only. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known CONSTELLATE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "CONSTELLATE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "CONSTELLATE_SERVER_CORS_ORIGINS")

	// ── Gateway ──
	setStr(&cfg.Gateway.BaseURL, "CONSTELLATE_GATEWAY_BASE_URL")
	setStr(&cfg.Gateway.PolymarketGammaURL, "CONSTELLATE_GATEWAY_POLYMARKET_GAMMA_URL")
	setStr(&cfg.Gateway.PolymarketDataURL, "CONSTELLATE_GATEWAY_POLYMARKET_DATA_URL")
	setStr(&cfg.Gateway.PolymarketClobURL, "CONSTELLATE_GATEWAY_POLYMARKET_CLOB_URL")
	setStr(&cfg.Gateway.KalshiURL, "CONSTELLATE_GATEWAY_KALSHI_URL")
	setStr(&cfg.Gateway.OpinionPublicURL, "CONSTELLATE_GATEWAY_OPINION_PUBLIC_URL")
	setStr(&cfg.Gateway.OpinionOpenURL, "CONSTELLATE_GATEWAY_OPINION_OPEN_URL")
	setStr(&cfg.Gateway.OpinionAPIKey, "CONSTELLATE_GATEWAY_OPINION_API_KEY")
	setStr(&cfg.Gateway.OpinionAPIKey, "OPINION_API_KEY") // compatibility alias

	// ── Venues ──
	setBool(&cfg.Venues.Polymarket.Enabled, "CONSTELLATE_VENUES_POLYMARKET_ENABLED")
	setInt(&cfg.Venues.Polymarket.Limit, "CONSTELLATE_VENUES_POLYMARKET_LIMIT")
	setInt(&cfg.Venues.Polymarket.Pages, "CONSTELLATE_VENUES_POLYMARKET_PAGES")
	setBool(&cfg.Venues.Kalshi.Enabled, "CONSTELLATE_VENUES_KALSHI_ENABLED")
	setInt(&cfg.Venues.Kalshi.Limit, "CONSTELLATE_VENUES_KALSHI_LIMIT")
	setInt(&cfg.Venues.Kalshi.Pages, "CONSTELLATE_VENUES_KALSHI_PAGES")
	setBool(&cfg.Venues.Opinion.Enabled, "CONSTELLATE_VENUES_OPINION_ENABLED")
	setInt(&cfg.Venues.Opinion.Limit, "CONSTELLATE_VENUES_OPINION_LIMIT")
	setInt(&cfg.Venues.Opinion.Pages, "CONSTELLATE_VENUES_OPINION_PAGES")

	// ── Aggregate ──
	setDuration(&cfg.Aggregate.RefreshInterval, "CONSTELLATE_AGGREGATE_REFRESH_INTERVAL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CONSTELLATE_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CONSTELLATE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CONSTELLATE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CONSTELLATE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CONSTELLATE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CONSTELLATE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CONSTELLATE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CONSTELLATE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CONSTELLATE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CONSTELLATE_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CONSTELLATE_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CONSTELLATE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CONSTELLATE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CONSTELLATE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CONSTELLATE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CONSTELLATE_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "CONSTELLATE_REDIS_TLS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CONSTELLATE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CONSTELLATE_NOTIFY_TELEGRAM_CHAT_ID")
	setStringSlice(&cfg.Notify.Events, "CONSTELLATE_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CONSTELLATE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
