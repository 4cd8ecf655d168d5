// Command worker runs the scheduled rentals tasks and delivers queued mail.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-rentals/internal/app"
	jobmetrics "github.com/odyssey-erp/odyssey-rentals/internal/jobs"
	"github.com/odyssey-erp/odyssey-rentals/internal/notify"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
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
	defer func() { _ = redisClient.Close() }()

	queueOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	queue, err := jobs.NewClient(queueOpts)
	if err != nil {
		return fmt.Errorf("job client: %w", err)
	}
	defer func() { _ = queue.Close() }()

	services := app.NewServices(app.ServiceDeps{
		Config: cfg,
		Pool:   pool,
		Redis:  redisClient,
		Mail:   queue,
		Logger: logger,
	})
	daily := &jobs.DailyJobs{
		Invoicer:     services.Invoicing,
		Payments:     services.Payments,
		Customers:    services.Invoicing,
		Risk:         services.Risk,
		Mailer:       notify.NewSMTPMailer(cfg.SMTP()),
		Clock:        services.Clock,
		ReminderDays: cfg.ReminderWindowDays,
		Logger:       logger,
		Metrics:      jobmetrics.NewMetrics(nil),
	}

	cron, err := dailySchedule(cfg.ReminderWindowDays)
	if err != nil {
		return err
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   queueOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers:    daily.Handlers(),
		Cron:        cron,
	})
	if err != nil {
		return err
	}

	logger.Info("starting worker", slog.String("timezone", cfg.AppTimezone), slog.Int("concurrency", cfg.WorkerConcurrency))
	return worker.Run(ctx)
}

// dailySchedule lists the cron entries: statuses and reminders first, then
// risk scores on the synced statuses, then invoicing.
func dailySchedule(reminderWindow int) ([]jobs.CronRegistration, error) {
	payments, err := jobs.NewPaymentsSyncTask("", reminderWindow)
	if err != nil {
		return nil, err
	}
	risk, err := jobs.NewRiskAssessTask()
	if err != nil {
		return nil, err
	}
	invoicing, err := jobs.NewInvoicingCreateDueTask("")
	if err != nil {
		return nil, err
	}
	retry := []asynq.Option{asynq.MaxRetry(jobs.DailyMaxRetry)}
	return []jobs.CronRegistration{
		{Spec: jobs.CronPaymentsSyncStatus, Task: payments, Options: retry},
		{Spec: jobs.CronRiskAssessAll, Task: risk, Options: retry},
		{Spec: jobs.CronInvoicingCreateDue, Task: invoicing, Options: retry},
	}, nil
}
