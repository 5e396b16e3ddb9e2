package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/helmdeck/helmdeck/internal/app"
	jobmetrics "github.com/helmdeck/helmdeck/internal/jobs"
	"github.com/helmdeck/helmdeck/internal/platform/cache"
	"github.com/helmdeck/helmdeck/internal/platform/db"
	"github.com/helmdeck/helmdeck/internal/shared"
	"github.com/helmdeck/helmdeck/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "helmdeck_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	metrics := jobmetrics.NewMetrics(nil)

	purgeTask, err := jobs.NewSessionsPurgeTask(jobs.SessionsPurgePayload{Limit: 500})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	revokeTask, err := jobs.NewSessionsRevokeInactiveTask()
	if err != nil {
		logger.Error("build revoke task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSessionsPurge, Handler: jobs.NewSessionsPurgeHandler(pool, sessionManager, logger, metrics)},
			{Type: jobs.TaskSessionsRevokeInactive, Handler: jobs.NewSessionsRevokeInactiveHandler(pool, sessionManager, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "10 * * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/15 * * * *", Task: revokeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
