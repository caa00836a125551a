package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upb/orders-backend/app"
	"github.com/upb/orders-backend/config"
	"github.com/upb/orders-backend/internal/observability"
	"github.com/upb/orders-backend/routes"
	"go.uber.org/zap"
)

// rateLimitRetention covers the longest throttle window
const rateLimitRetention = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "orders-api: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := deps.Close(closeCtx); err != nil {
			logger.Error("failed to close dependencies", zap.Error(err))
		}
	}()

	go deps.RateLimiter.StartCleanupWorker(ctx, cfg.RateLimit.CleanupInterval, rateLimitRetention)

	return serve(ctx, newServers(deps), cfg.Server.ShutdownTimeout, logger)
}

// newServers builds the API server and, when enabled, the metrics server
func newServers(deps *app.Dependencies) []*http.Server {
	cfg := deps.Config
	servers := []*http.Server{{
		Addr:              cfg.Server.Address(),
		Handler:           routes.SetupRoutes(deps),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}}

	if cfg.Observability.MetricsEnabled {
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Observability.MetricsPort),
			Handler:           routes.MetricsHandler(deps),
			ReadHeaderTimeout: 5 * time.Second,
		})
	}
	return servers
}

// serve runs every server until ctx is done or one of them fails, then
// shuts all of them down
func serve(ctx context.Context, servers []*http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
			serveErr = errors.Join(serveErr, err)
		}
	}

	logger.Info("servers stopped")
	return serveErr
}
