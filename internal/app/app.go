// Package app provides the top-level application lifecycle: it wires the
// gateway, venue adapters, refresh pipeline, persistence, and the HTTP
// surface together and supervises their goroutines.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/constellate/internal/config"
)

// shutdownTimeout bounds graceful HTTP shutdown on teardown.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and blocks until the context is cancelled or a
// supervised goroutine fails. On return the HTTP server has drained and all
// resources are released.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.Int("port", a.cfg.Server.Port),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	// Refresh pipeline.
	g.Go(func() error {
		return deps.Store.Run(ctx)
	})

	// WebSocket hub.
	g.Go(func() error {
		return deps.Hub.Run(ctx)
	})

	// Bridge store transitions to the hub and the operator alerts.
	g.Go(func() error {
		snaps, cancel := deps.Store.Subscribe()
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case snap, ok := <-snaps:
				if !ok {
					return nil
				}
				deps.Hub.BroadcastSnapshot(snap)
				if deps.Alerter == nil || snap.Loading {
					continue
				}
				if snap.LastError != "" {
					deps.Alerter.CycleFailed(ctx, snap.LastError)
				} else if !snap.UpdatedAt.IsZero() {
					deps.Alerter.CycleRecovered(ctx, len(snap.Markets))
				}
			}
		}
	})

	// HTTP server plus its shutdown watcher.
	g.Go(func() error {
		return deps.Server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return deps.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
