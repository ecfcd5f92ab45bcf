// Package app assembles the services shared by the API server, the worker
// and the seeder from configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lifereview/internal/assemblyai"
	"github.com/nikhilbhutani/lifereview/internal/cache"
	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/llm"
	"github.com/nikhilbhutani/lifereview/internal/metrics"
	"github.com/nikhilbhutani/lifereview/internal/multimodal/stt"
	"github.com/nikhilbhutani/lifereview/internal/multimodal/tts"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

// Services holds the wired components. Optional collaborators are nil when
// their credentials are absent; the routes using them answer accordingly.
type Services struct {
	Cache  *ttscache.Cache
	Warmer *ttscache.Warmer

	Analyzer *interview.Analyzer
	STT      stt.STTProvider
	Tokens   *assemblyai.TokenClient
}

// Build wires the speech cache and everything around it. db and rdb may be
// nil. Only the speech cache is mandatory.
func Build(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, m *metrics.Metrics, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	speech, err := NewSpeechCache(cfg, db, m, logger)
	if err != nil {
		return nil, err
	}

	var guard ttscache.Guard
	if rdb != nil {
		guard = ttscache.NewRedisGuard(cache.NewLeases(rdb, "lifereview:"), cfg.Cache.WarmLeaseTTL, logger)
	}

	svc := &Services{
		Cache:  speech,
		Warmer: ttscache.NewWarmer(speech, guard),
	}

	gw, err := llm.NewGateway(cfg.LLM)
	switch {
	case err == nil:
		svc.Analyzer = interview.NewAnalyzer(gw, speech,
			interview.WithTemperature(cfg.Interview.Temperature),
			interview.WithPipelineTimeout(cfg.Interview.PipelineTimeout),
			interview.WithMetrics(m),
			interview.WithLogger(logger),
		)
	case isConfigErr(err):
		logger.Warn("chat model not configured, analysis routes disabled", "error", err)
	default:
		return nil, fmt.Errorf("create llm gateway: %w", err)
	}

	svc.STT, err = stt.New(cfg.STT)
	switch {
	case err == nil:
	case isConfigErr(err):
		logger.Warn("speech-to-text not configured, transcription disabled", "error", err)
	default:
		return nil, fmt.Errorf("create stt provider: %w", err)
	}

	svc.Tokens, err = assemblyai.NewTokenClient(cfg.AssemblyAI)
	if err != nil {
		logger.Warn("assemblyai not configured, streaming tokens unavailable", "error", err)
	}

	return svc, nil
}

// NewSpeechCache builds the two-tier cache over the configured synthesis
// backend and remote tier.
func NewSpeechCache(cfg *config.Config, db *pgxpool.Pool, m *metrics.Metrics, logger *slog.Logger) (*ttscache.Cache, error) {
	provider, err := tts.NewOpenAITTS(tts.OpenAITTSConfig{
		APIKey:  cfg.TTS.OpenAIKey,
		BaseURL: cfg.TTS.OpenAIBaseURL,
		Model:   cfg.TTS.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("create tts provider: %w", err)
	}

	local, err := ttscache.NewLocalStore(cfg.Cache.LocalDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create local tts cache: %w", err)
	}

	remote, err := ttscache.NewRemote(cfg.Cache.RemoteBackend, db, cfg.Supabase, logger)
	if err != nil {
		return nil, fmt.Errorf("create remote tts cache: %w", err)
	}

	return ttscache.New(local, remote, ttscache.NewProviderGenerator(provider, cfg.TTS.Timeout),
		ttscache.WithLogger(logger),
		ttscache.WithMetrics(m),
		ttscache.WithDefaultVoice(cfg.TTS.DefaultVoice),
		ttscache.WithWarmConcurrency(cfg.Cache.WarmConcurrency),
		ttscache.WithRemoteTimeout(cfg.Cache.RemoteTimeout),
	), nil
}

func isConfigErr(err error) bool {
	var cfgErr *config.ConfigurationError
	return errors.As(err, &cfgErr)
}
