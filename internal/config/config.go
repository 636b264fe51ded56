// Package config defines the service configuration and provides validation
// helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CONSTELLATE_* environment
// variables.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Venues    VenuesConfig    `toml:"venues"`
	Aggregate AggregateConfig `toml:"aggregate"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	Notify    NotifyConfig    `toml:"notify"`
	LogLevel  string          `toml:"log_level"`
}

// ServerConfig holds the HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// GatewayConfig holds the venue proxy's upstream hosts and the Opinion
// credential. Empty URL fields fall back to the production upstreams.
type GatewayConfig struct {
	// BaseURL is where the adapters reach the gateway. Empty means the
	// service's own server ("http://localhost:{server.port}").
	BaseURL string `toml:"base_url"`

	PolymarketGammaURL string `toml:"polymarket_gamma_url"`
	PolymarketDataURL  string `toml:"polymarket_data_url"`
	PolymarketClobURL  string `toml:"polymarket_clob_url"`
	KalshiURL          string `toml:"kalshi_url"`
	OpinionPublicURL   string `toml:"opinion_public_url"`
	OpinionOpenURL     string `toml:"opinion_open_url"`
	OpinionAPIKey      string `toml:"opinion_api_key"`
}

// VenueConfig holds one venue's fetch parameters.
type VenueConfig struct {
	Enabled bool `toml:"enabled"`
	Limit   int  `toml:"limit"`
	Pages   int  `toml:"pages"`
}

// VenuesConfig holds the per-venue fetch parameters.
type VenuesConfig struct {
	Polymarket VenueConfig `toml:"polymarket"`
	Kalshi     VenueConfig `toml:"kalshi"`
	Opinion    VenueConfig `toml:"opinion"`
}

// AggregateConfig holds the refresh pipeline parameters.
type AggregateConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
}

// PostgresConfig holds the optional snapshot persistence parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

// RedisConfig holds the optional gateway cache parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds operator alert parameters. Telegram is disabled when
// the token is empty.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	Events         []string `toml:"events"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "60s" or "5m".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration: all venues enabled with the
// record limits and page budgets the upstreams tolerate, a 60-second refresh
// cadence, and persistence layers disabled.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Venues: VenuesConfig{
			Polymarket: VenueConfig{Enabled: true, Limit: 50, Pages: 2},
			Kalshi:     VenueConfig{Enabled: true, Limit: 50, Pages: 2},
			Opinion:    VenueConfig{Enabled: true, Limit: 20, Pages: 3},
		},
		Aggregate: AggregateConfig{
			RefreshInterval: duration{60 * time.Second},
		},
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  0,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Notify: NotifyConfig{
			Events: []string{"refresh_failed", "refresh_recovered"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	for _, v := range []struct {
		name string
		cfg  VenueConfig
	}{
		{"polymarket", c.Venues.Polymarket},
		{"kalshi", c.Venues.Kalshi},
		{"opinion", c.Venues.Opinion},
	} {
		if !v.cfg.Enabled {
			continue
		}
		if v.cfg.Limit < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: limit must be >= 1, got %d", v.name, v.cfg.Limit))
		}
		if v.cfg.Pages < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: pages must be >= 1, got %d", v.name, v.cfg.Pages))
		}
	}
	if !c.Venues.Polymarket.Enabled && !c.Venues.Kalshi.Enabled && !c.Venues.Opinion.Enabled {
		errs = append(errs, "venues: at least one venue must be enabled")
	}

	if c.Aggregate.RefreshInterval.Duration < time.Second {
		errs = append(errs, "aggregate: refresh_interval must be at least 1s")
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
