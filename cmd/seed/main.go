// Command seed pre-generates the intro, outro and every interview question
// for each voice so sessions never wait on synthesis for static audio.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/lifereview/internal/app"
	"github.com/nikhilbhutani/lifereview/internal/cache"
	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/database"
	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		voices      []string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Pre-generate static interview audio into both cache tiers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, voices, concurrency)
		},
	}
	cmd.Flags().StringSliceVar(&voices, "voices", []string{"nova", "onyx"}, "voices to seed")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "items generated at once (default TTS_WARM_CONCURRENCY)")
	return cmd
}

func run(ctx context.Context, voices []string, concurrency int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if concurrency > 0 {
		cfg.Cache.WarmConcurrency = concurrency
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	var db *pgxpool.Pool
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database, "life-review-seed")
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	speech, err := app.NewSpeechCache(cfg, db, nil, logger)
	if err != nil {
		return err
	}
	if !speech.Stats(ctx).RemoteEnabled {
		slog.Warn("no remote tier configured, seeded audio is local to this machine only")
	}

	var guard ttscache.Guard
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := cache.Ping(ctx, rdb); err != nil {
			slog.Warn("redis unavailable, not coordinating with other warm runs", "error", err)
		} else {
			guard = ttscache.NewRedisGuard(cache.NewLeases(rdb, "lifereview:"), cfg.Cache.WarmLeaseTTL, logger)
		}
	}
	warmer := ttscache.NewWarmer(speech, guard)

	items := interview.WarmItems()
	slog.Info("seeding tts cache", "items", len(items), "voices", voices)

	var s summary
	start := time.Now()
	for _, voice := range voices {
		report, err := warmer.Run(ctx, items, voice)
		if err != nil {
			return fmt.Errorf("seed voice %s: %w", voice, err)
		}
		for _, res := range report.Items {
			s.add(res)
		}
	}

	stats := speech.Stats(ctx)
	slog.Info("seeding finished",
		"total", s.total,
		"already_cached", s.cached,
		"generated", s.generated,
		"failed", s.failed,
		"generated_bytes", humanize.Bytes(uint64(s.bytes)),
		"took", time.Since(start).Round(time.Millisecond),
		"remote_entries", stats.RemoteEntries,
		"local_files", stats.LocalFiles,
		"remote_backend", stats.RemoteBackend,
	)

	if s.failed > 0 {
		return fmt.Errorf("%d of %d items failed", s.failed, s.total)
	}
	return nil
}

type summary struct {
	total, cached, generated, failed int
	bytes                            int64
}

func (s *summary) add(res ttscache.WarmResult) {
	s.total++
	text := res.Text
	if r := []rune(text); len(r) > 60 {
		text = string(r[:60]) + "..."
	}

	switch {
	case !res.OK:
		s.failed++
		slog.Error("seed item failed", "voice", res.Voice, "text", text, "error", res.Error)
	case res.Source == ttscache.SourceGenerated:
		s.generated++
		s.bytes += res.Size
		slog.Info("seed item generated", "voice", res.Voice, "text", text, "bytes", res.Size)
	default:
		s.cached++
		slog.Info("seed item already cached", "voice", res.Voice, "text", text, "tier", res.Source)
	}
}
