package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/lifereview/internal/api/handlers"
	"github.com/nikhilbhutani/lifereview/internal/api/middleware"
	"github.com/nikhilbhutani/lifereview/internal/app"
	"github.com/nikhilbhutani/lifereview/internal/auth"
	"github.com/nikhilbhutani/lifereview/internal/cache"
	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/document"
	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/metrics"
	"github.com/nikhilbhutani/lifereview/internal/queue"
)

type Router struct {
	mux     *chi.Mux
	db      *pgxpool.Pool
	redis   *redis.Client
	cfg     *config.Config
	svc     *app.Services
	queue   *queue.Client
	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
}

// NewRouter wires the HTTP surface. db, rdb, q and m may be nil.
func NewRouter(cfg *config.Config, svc *app.Services, db *pgxpool.Pool, rdb *redis.Client, q *queue.Client, m *metrics.Metrics) *Router {
	return &Router{
		mux:     chi.NewRouter(),
		db:      db,
		redis:   rdb,
		cfg:     cfg,
		svc:     svc,
		queue:   q,
		metrics: m,
		limiter: middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
	}
}

// Close stops background work owned by the router.
func (rt *Router) Close() {
	rt.limiter.Stop()
}

func (rt *Router) readinessChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"audio_cache": handlers.DirCheck(rt.svc.Cache.Local().Dir()),
	}
	if rt.db != nil {
		checks["database"] = func(ctx context.Context) error { return rt.db.Ping(ctx) }
	}
	if rt.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, rt.redis) }
	}
	return checks
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.Server.CORSOrigins))

	// Probes and metrics (no rate limit)
	health := handlers.NewHealthHandler(rt.readinessChecks())
	r.Get("/", health.Index)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics.Handler())
	}

	var analyzer handlers.Analyzer
	if rt.svc.Analyzer != nil {
		analyzer = rt.svc.Analyzer
	}
	var transcriber handlers.Transcriber
	if rt.svc.STT != nil {
		transcriber = rt.svc.STT
	}
	var tokens handlers.TokenSource
	if rt.svc.Tokens != nil {
		tokens = rt.svc.Tokens
	}
	var enqueuer handlers.WarmEnqueuer
	if rt.queue != nil {
		enqueuer = rt.queue
	}

	speechH := handlers.NewSpeechHandler(rt.svc.Cache, rt.svc.Warmer, enqueuer, interview.WarmItems)
	interviewH := handlers.NewInterviewHandler(analyzer, rt.svc.Cache)
	mediaH := handlers.NewMediaHandler(transcriber, tokens, document.ExtractQuestions,
		rt.cfg.Server.UploadDir, rt.cfg.Server.MaxUploadBytes)

	r.Route("/api", func(r chi.Router) {
		r.Use(rt.limiter.Limit)

		r.Get("/health", health.Health)
		r.Get("/questions", interviewH.Questions)
		r.Get("/assemblyai-token", mediaH.AssemblyAIToken)

		// Uploads
		r.Post("/extract-questions", mediaH.ExtractQuestions)
		r.Post("/transcribe", mediaH.Transcribe)

		// Speech
		r.Post("/text-to-speech", speechH.TextToSpeech)
		r.Get("/audio/{key}", speechH.Audio)
		r.Get("/cache-stats", speechH.CacheStats)
		r.Post("/pre-cache-narratives", speechH.PreCache)

		// Interview analysis
		r.Post("/analyze", interviewH.Analyze)
		r.Post("/analyze-and-tts", interviewH.AnalyzeAndTTS)
		r.Post("/analyze-followup", interviewH.AnalyzeFollowup)
		r.Post("/analyze-session", interviewH.AnalyzeSession)
		r.Post("/process-question", interviewH.ProcessQuestion)

		// Admin routes exist only when tokens can be verified.
		if rt.cfg.Auth.JWTSecret != "" {
			jwt := auth.NewJWTMiddleware(rt.cfg.Auth.JWTSecret)
			r.Route("/admin", func(r chi.Router) {
				r.Use(jwt.Authenticate)
				r.Use(auth.RequireRole(rt.cfg.Auth.AdminRole))
				r.Delete("/cache/local", speechH.ClearLocal)
			})
		}
	})

	return r
}
