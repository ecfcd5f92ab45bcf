package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	LLM        LLMConfig
	Supabase   SupabaseConfig
	STT        STTConfig
	TTS        TTSConfig
	Cache      CacheConfig
	AssemblyAI AssemblyAIConfig
	Interview  InterviewConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	CORSOrigins    []string
	UploadDir      string
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
}

type LogConfig struct {
	Level string // debug, info, warn, error
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string // default: the schema embedded in the binary
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	AdminRole string
}

type LLMConfig struct {
	OpenAIKey        string
	AnthropicKey     string
	DefaultProvider  string
	DefaultModel     string
	FallbackProvider string
	FallbackModel    string
	MaxRetries       int
}

type SupabaseConfig struct {
	URL        string
	ServiceKey string
}

// Enabled reports whether both the project URL and the service key are set.
func (s SupabaseConfig) Enabled() bool {
	return s.URL != "" && s.ServiceKey != ""
}

type STTConfig struct {
	Backend       string // "openai" or "local"
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	LocalBaseURL  string // default: "http://localhost:8178"
	Language      string // default: "en"
}

type TTSConfig struct {
	OpenAIKey     string
	OpenAIBaseURL string
	Model         string // default: "tts-1-hd"
	DefaultVoice  string // default: "nova"
	Timeout       time.Duration
}

type CacheConfig struct {
	LocalDir        string
	RemoteBackend   string // auto, postgres, supabase, none
	WarmConcurrency int
	WarmLeaseTTL    time.Duration
	RemoteTimeout   time.Duration // bound on the write-through after a generation
}

type AssemblyAIConfig struct {
	APIKey   string
	TokenURL string
}

type InterviewConfig struct {
	PipelineTimeout time.Duration
	Temperature     float64
}

// ConfigurationError is returned by constructors whose required credentials are absent.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// Require returns a ConfigurationError naming every key whose value is empty, or nil.
func Require(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}

func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 5001)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 16*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	rateRPS, err := getEnvFloat("RATE_LIMIT_RPS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	rateBurst, err := getEnvInt("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxRetries, err := getEnvInt("LLM_MAX_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_RETRIES: %w", err)
	}

	ttsTimeout, err := getEnvDuration("TTS_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_TIMEOUT: %w", err)
	}

	warmConcurrency, err := getEnvInt("TTS_WARM_CONCURRENCY", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_WARM_CONCURRENCY: %w", err)
	}

	warmLease, err := getEnvDuration("TTS_WARM_LEASE_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_WARM_LEASE_TTL: %w", err)
	}

	remoteTimeout, err := getEnvDuration("TTS_REMOTE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid TTS_REMOTE_TIMEOUT: %w", err)
	}

	pipelineTimeout, err := getEnvDuration("INTERVIEW_PIPELINE_TIMEOUT", 45*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid INTERVIEW_PIPELINE_TIMEOUT: %w", err)
	}

	temperature, err := getEnvFloat("INTERVIEW_TEMPERATURE", 0.8)
	if err != nil {
		return nil, fmt.Errorf("invalid INTERVIEW_TEMPERATURE: %w", err)
	}

	openAIKey := getEnv("OPENAI_API_KEY", "")

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("HOST", "0.0.0.0"),
			Port:           port,
			CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000", "https://*.vercel.app"}),
			UploadDir:      getEnv("UPLOAD_DIR", "/tmp/uploads"),
			MaxUploadBytes: int64(maxUpload),
			RateLimitRPS:   rateRPS,
			RateLimitBurst: rateBurst,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", ""), // empty: embedded schema
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("SUPABASE_JWT_SECRET", ""),
			AdminRole: getEnv("ADMIN_ROLE", "service_role"),
		},
		LLM: LLMConfig{
			OpenAIKey:        openAIKey,
			AnthropicKey:     getEnv("ANTHROPIC_API_KEY", ""),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "openai"),
			DefaultModel:     getEnv("CHAT_MODEL", "gpt-4o-mini"),
			FallbackProvider: getEnv("LLM_FALLBACK_PROVIDER", ""),
			FallbackModel:    getEnv("LLM_FALLBACK_MODEL", "claude-3-haiku-20240307"),
			MaxRetries:       maxRetries,
		},
		Supabase: SupabaseConfig{
			URL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			ServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		},
		STT: STTConfig{
			Backend:       getEnv("STT_BACKEND", "openai"),
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("STT_OPENAI_BASE_URL", ""),
			OpenAIModel:   getEnv("WHISPER_MODEL", "whisper-1"),
			LocalBaseURL:  getEnv("STT_LOCAL_BASE_URL", "http://localhost:8178"),
			Language:      getEnv("STT_LANGUAGE", "en"),
		},
		TTS: TTSConfig{
			OpenAIKey:     openAIKey,
			OpenAIBaseURL: getEnv("TTS_OPENAI_BASE_URL", ""),
			Model:         getEnv("TTS_MODEL", "tts-1-hd"),
			DefaultVoice:  getEnv("TTS_VOICE", "nova"),
			Timeout:       ttsTimeout,
		},
		Cache: CacheConfig{
			LocalDir:        getEnv("TTS_CACHE_DIR", "/tmp/tts_cache"),
			RemoteBackend:   strings.ToLower(getEnv("TTS_REMOTE_BACKEND", "auto")),
			WarmConcurrency: warmConcurrency,
			WarmLeaseTTL:    warmLease,
			RemoteTimeout:   remoteTimeout,
		},
		AssemblyAI: AssemblyAIConfig{
			APIKey:   getEnv("ASSEMBLYAI_API_KEY", ""),
			TokenURL: getEnv("ASSEMBLYAI_TOKEN_URL", "https://streaming.assemblyai.com/v3/token"),
		},
		Interview: InterviewConfig{
			PipelineTimeout: pipelineTimeout,
			Temperature:     temperature,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SlogLevel maps the configured log level onto slog, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	var problems []string
	switch c.Cache.RemoteBackend {
	case "auto", "postgres", "supabase", "none":
	default:
		problems = append(problems, fmt.Sprintf("TTS_REMOTE_BACKEND=%q (want auto, postgres, supabase or none)", c.Cache.RemoteBackend))
	}
	switch c.STT.Backend {
	case "openai", "local":
	default:
		problems = append(problems, fmt.Sprintf("STT_BACKEND=%q (want openai or local)", c.STT.Backend))
	}
	if c.Cache.WarmConcurrency < 1 {
		problems = append(problems, "TTS_WARM_CONCURRENCY must be >= 1")
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		problems = append(problems, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.TTS.Timeout <= 0 {
		problems = append(problems, "TTS_TIMEOUT must be positive")
	}
	if c.Cache.RemoteTimeout <= 0 {
		problems = append(problems, "TTS_REMOTE_TIMEOUT must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
