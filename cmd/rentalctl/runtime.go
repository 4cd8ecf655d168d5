package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-rentals/internal/app"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rentals/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rentals/internal/setup"
	"github.com/odyssey-erp/odyssey-rentals/jobs"
)

// Provisioner runs the installation steps.
type Provisioner interface {
	Run(ctx context.Context) setup.Report
}

// JobQueue triggers and inspects queued jobs.
type JobQueue interface {
	Trigger(ctx context.Context, name string, windowDays int) (*asynq.TaskInfo, error)
	InspectQueue(ctx context.Context) (QueueStats, error)
	Close() error
}

// Runtime opens the backends a command needs. The returned close func
// releases them.
type Runtime interface {
	Provisioner(ctx context.Context, withSample bool) (Provisioner, func(), error)
	Jobs(ctx context.Context) (JobQueue, error)
}

type defaultRuntime struct{}

func (defaultRuntime) Provisioner(ctx context.Context, withSample bool) (Provisioner, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 4, MaxConnLifetime: time.Hour})
	if err != nil {
		return nil, nil, err
	}
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		// The dashboard cache is optional during setup.
		logger.Warn("redis unavailable, cache bumps skipped", slog.Any("error", err))
	}
	services := app.NewServices(app.ServiceDeps{Config: cfg, Pool: pool, Redis: redisClient, Logger: logger})
	closeFn := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		pool.Close()
	}
	return services.NewProvisioner(pool, withSample, logger), closeFn, nil
}

func (defaultRuntime) Jobs(ctx context.Context) (JobQueue, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	return newAsynqQueue(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

type asynqQueue struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

func newAsynqQueue(opts asynq.RedisClientOpt) (*asynqQueue, error) {
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &asynqQueue{client: client, inspector: asynq.NewInspector(opts)}, nil
}

func (q *asynqQueue) Trigger(ctx context.Context, name string, windowDays int) (*asynq.TaskInfo, error) {
	return q.client.Trigger(ctx, name, windowDays)
}

func (q *asynqQueue) InspectQueue(ctx context.Context) (QueueStats, error) {
	info, err := q.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

func (q *asynqQueue) Close() error {
	return errors.Join(q.inspector.Close(), q.client.Close())
}
