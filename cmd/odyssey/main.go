// Command odyssey serves the rentals HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-rentals/internal/app"
	"github.com/odyssey-erp/odyssey-rentals/internal/observability"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
)

const shutdownGrace = 10 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnLifetime: time.Hour})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "redis", redisClient.Close)

	queueOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	queue, err := jobs.NewClient(queueOpts)
	if err != nil {
		return fmt.Errorf("job client: %w", err)
	}
	defer closeQuietly(logger, "job client", queue.Close)

	inspector := asynq.NewInspector(queueOpts)
	defer closeQuietly(logger, "inspector", inspector.Close)

	services := app.NewServices(app.ServiceDeps{
		Config: cfg,
		Pool:   pool,
		Redis:  redisClient,
		Mail:   queue,
		Logger: logger,
	})
	params := services.Handlers(logger, rbac.Middleware{Service: services.RBAC, Logger: logger})
	params.Config = cfg
	params.JobHandler = jobs.NewHandler(inspector, logger)
	params.Metrics = observability.NewMetrics()

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           app.NewRouter(params),
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: cfg.AppReadTimeout,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", cfg.AppTimezone))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func closeQuietly(logger *slog.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close "+what, slog.Any("error", err))
	}
}
