package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lifereview/internal/app"
	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/database"
	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/metrics"
	"github.com/nikhilbhutani/lifereview/internal/queue"
	"github.com/nikhilbhutani/lifereview/internal/queue/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	if err := config.Require("REDIS_ADDR", cfg.Redis.Addr); err != nil {
		slog.Error("worker needs redis", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database, "life-review-worker")
		if err != nil {
			slog.Warn("database unavailable, remote tier limited to supabase or none", "error", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	svc, err := app.Build(cfg, db, rdb, metrics.New(), logger)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 2,
			Logger:      asynqLogger{logger.With("component", "asynq")},
		},
	)

	registry := queue.NewHandlersRegistry()

	warmWorker := workers.NewWarmWorker(svc.Warmer, interview.WarmItems)
	registry.Register(queue.TypeTTSWarm, asynq.HandlerFunc(warmWorker.ProcessTask))

	slog.Info("starting worker", "concurrency", 2)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

// asynqLogger routes asynq's own logging through slog.
type asynqLogger struct{ l *slog.Logger }

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
