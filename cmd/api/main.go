package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lifereview/internal/api"
	"github.com/nikhilbhutani/lifereview/internal/app"
	"github.com/nikhilbhutani/lifereview/internal/cache"
	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/database"
	"github.com/nikhilbhutani/lifereview/internal/metrics"
	"github.com/nikhilbhutani/lifereview/internal/queue"
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

	ctx := context.Background()

	// Database connection (optional; the remote tier falls back to Supabase REST or none)
	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database, "life-review-api")
		if err != nil {
			slog.Warn("database unavailable, running without DB", "error", err)
			db = nil
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
		}
	}

	// Redis connection (optional; enables the shared warm lease and background jobs)
	var rdb *redis.Client
	var queueClient *queue.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx, rdb); err != nil {
			slog.Warn("redis unavailable, pre-warming runs in-process", "error", err)
			rdb.Close()
			rdb = nil
		} else {
			defer rdb.Close()
			queueClient = queue.NewClient(cfg.Redis, cfg.Cache.WarmLeaseTTL)
			defer queueClient.Close()
		}
	}

	m := metrics.New()
	svc, err := app.Build(cfg, db, rdb, m, logger)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(cfg, svc, db, rdb, queueClient, m)
	defer router.Close()
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
