package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/martdesk/martdesk/internal/app"
	"github.com/martdesk/martdesk/internal/platform/cache"
	"github.com/martdesk/martdesk/internal/platform/db"
	"github.com/martdesk/martdesk/internal/producthistory"
	"github.com/martdesk/martdesk/internal/query"
	"github.com/martdesk/martdesk/internal/upstream"
	"github.com/martdesk/martdesk/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
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

	api := upstream.NewClient(cfg.APIBaseURL)
	queryCache := query.NewCache(redisClient, cfg.CacheTTL)
	repo := producthistory.NewRepository(pool)
	processor := jobs.NewProcessor(logger, repo, api, queryCache)

	retention := cfg.UploadRetention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:       asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:          logger,
		Processor:       processor,
		CleanupSpec:     "45 2 * * *",
		UploadRetention: retention,
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
