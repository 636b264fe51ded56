package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/constellate/internal/aggregate"
	"github.com/alanyoungcy/constellate/internal/cache/redis"
	"github.com/alanyoungcy/constellate/internal/config"
	"github.com/alanyoungcy/constellate/internal/domain"
	"github.com/alanyoungcy/constellate/internal/gateway"
	"github.com/alanyoungcy/constellate/internal/notify"
	"github.com/alanyoungcy/constellate/internal/server"
	"github.com/alanyoungcy/constellate/internal/server/handler"
	"github.com/alanyoungcy/constellate/internal/server/ws"
	"github.com/alanyoungcy/constellate/internal/store/postgres"
	"github.com/alanyoungcy/constellate/internal/venue"
	"github.com/alanyoungcy/constellate/internal/venue/kalshi"
	"github.com/alanyoungcy/constellate/internal/venue/opinion"
	"github.com/alanyoungcy/constellate/internal/venue/polymarket"
)

// Dependencies bundles everything Run needs to operate. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Gateway  *gateway.Gateway
	Adapters []venue.Adapter
	Store    *aggregate.Store
	Persist  domain.SnapshotStore // nil when postgres is disabled
	Hub      *ws.Hub
	Server   *server.Server
	Alerter  *notify.Alerter // nil when no notification channel is configured
}

// Wire constructs all concrete dependencies from the given configuration and
// returns them together with a cleanup function to be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis (optional gateway cache) ---
	var respCache gateway.ResponseCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		respCache = redis.NewResponseCache(redisClient)
		logger.Info("gateway cache backed by redis", slog.String("addr", cfg.Redis.Addr))
	}

	// --- Gateway ---
	deps.Gateway = gateway.New(gateway.Config{
		PolymarketGammaURL: cfg.Gateway.PolymarketGammaURL,
		PolymarketDataURL:  cfg.Gateway.PolymarketDataURL,
		PolymarketClobURL:  cfg.Gateway.PolymarketClobURL,
		KalshiURL:          cfg.Gateway.KalshiURL,
		OpinionPublicURL:   cfg.Gateway.OpinionPublicURL,
		OpinionOpenURL:     cfg.Gateway.OpinionOpenURL,
		OpinionAPIKey:      cfg.Gateway.OpinionAPIKey,
	}, respCache, logger)

	// --- Venue adapters, fetching through the gateway ---
	gatewayURL := cfg.Gateway.BaseURL
	if gatewayURL == "" {
		gatewayURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Venues.Polymarket.Enabled {
		deps.Adapters = append(deps.Adapters,
			polymarket.New(gatewayURL, cfg.Venues.Polymarket.Limit, cfg.Venues.Polymarket.Pages, logger))
	}
	if cfg.Venues.Kalshi.Enabled {
		deps.Adapters = append(deps.Adapters,
			kalshi.New(gatewayURL, cfg.Venues.Kalshi.Limit, cfg.Venues.Kalshi.Pages, logger))
	}
	if cfg.Venues.Opinion.Enabled {
		deps.Adapters = append(deps.Adapters,
			opinion.New(gatewayURL, cfg.Venues.Opinion.Limit, cfg.Venues.Opinion.Pages, logger))
	}

	// --- PostgreSQL (optional snapshot persistence) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("app: run migrations: %w", err)
			}
		}
		deps.Persist = postgres.NewSnapshotStore(pgClient.Pool())
	}

	// --- Refresh pipeline ---
	orchestrator := aggregate.NewOrchestrator(deps.Adapters, logger)
	deps.Store = aggregate.NewStore(orchestrator, deps.Persist, cfg.Aggregate.RefreshInterval.Duration, logger)

	// Warm start from the persisted snapshot so the API serves the last
	// known collection before the first cycle lands.
	if deps.Persist != nil {
		seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		markets, err := deps.Persist.LoadAll(seedCtx)
		cancel()
		if err != nil {
			logger.Warn("snapshot warm start failed", slog.String("error", err.Error()))
		} else if len(markets) > 0 {
			deps.Store.Seed(markets, time.Now().UTC())
			logger.Info("seeded from persisted snapshot", slog.Int("markets", len(markets)))
		}
	}

	// --- Notifications ---
	if cfg.Notify.TelegramToken != "" {
		senders := []notify.Sender{
			notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID),
		}
		notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
		deps.Alerter = notify.NewAlerter(notifier)
	}

	// --- HTTP surface ---
	deps.Hub = ws.NewHub(logger)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Store, logger),
		Markets: handler.NewMarketHandler(deps.Store, logger),
		Stars:   handler.NewStarHandler(deps.Store, logger),
		Refresh: handler.NewRefreshHandler(deps.Store, logger),
	}
	deps.Server = server.New(server.Config{
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, handlers, deps.Gateway, deps.Hub, logger)

	return deps, cleanup, nil
}
