package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/lifereview/internal/llm"
	"github.com/nikhilbhutani/lifereview/internal/metrics"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

var (
	ErrAnalysis        = errors.New("analysis failed")
	ErrPipelineTimeout = errors.New("analysis pipeline timed out")
	ErrEmptySession    = errors.New("session_data must be a non-empty list")
)

// SpeechResolver turns text into cached audio.
type SpeechResolver interface {
	Resolve(ctx context.Context, req ttscache.Request) (*ttscache.Result, error)
}

// Turn is one question and the answer given to it.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type SessionMetrics struct {
	EmotionalExpressiveness int `json:"emotional_expressiveness"`
	LifeSatisfaction        int `json:"life_satisfaction"`
	SocialConnectedness     int `json:"social_connectedness"`
	Resilience              int `json:"resilience"`
	Optimism                int `json:"optimism"`
	Introspection           int `json:"introspection"`
}

type SessionAnalysis struct {
	CoreThemes          []string       `json:"core_themes"`
	PersonalityInsights string         `json:"personality_insights"`
	EmotionalLandscape  string         `json:"emotional_landscape"`
	KeyRelationships    string         `json:"key_relationships"`
	ValuesAndBeliefs    string         `json:"values_and_beliefs"`
	LifeTrajectory      string         `json:"life_trajectory"`
	Strengths           string         `json:"strengths"`
	CareRecommendations string         `json:"care_recommendations"`
	Metrics             SessionMetrics `json:"metrics"`
}

// Spoken is an analysis together with its audio.
type Spoken struct {
	Analysis string
	Audio    *ttscache.Result
}

type Option func(*Analyzer)

func WithTemperature(t float64) Option { return func(a *Analyzer) { a.temperature = t } }

func WithPipelineTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option { return func(a *Analyzer) { a.metrics = m } }

func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// Analyzer produces the interviewer's spoken replies and the end-of-session profile.
type Analyzer struct {
	gw          llm.Gateway
	speech      SpeechResolver
	temperature float64
	timeout     time.Duration
	metrics     *metrics.Metrics
	log         *slog.Logger
}

func NewAnalyzer(gw llm.Gateway, speech SpeechResolver, opts ...Option) *Analyzer {
	a := &Analyzer{
		gw:          gw,
		speech:      speech,
		temperature: 0.8,
		timeout:     45 * time.Second,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "interview")
	return a
}

// Respond returns a warm two or three sentence reply to answer, ending in a follow-up question.
func (a *Analyzer) Respond(ctx context.Context, question, answer string) (string, error) {
	return a.chat(ctx, "respond", responderPrompt, respondMessage(question, answer))
}

// Followup replies to an elaboration on an earlier answer.
func (a *Analyzer) Followup(ctx context.Context, question, answer, followup string) (string, error) {
	return a.chat(ctx, "followup", followupPrompt, followupMessage(question, answer, followup))
}

func (a *Analyzer) chat(ctx context.Context, kind, system, user string) (string, error) {
	start := time.Now()
	resp, err := a.gw.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: a.temperature,
		MaxTokens:   300,
	})
	text := ""
	if err == nil {
		a.recordUsage(kind, resp)
		text = strings.TrimSpace(resp.Content)
		if text == "" {
			err = errors.New("empty completion")
		}
	}
	a.metrics.Analysis(kind, err == nil, time.Since(start))
	if err != nil {
		a.log.Error("analysis failed", "kind", kind, "error", err)
		return "", fmt.Errorf("%w: %s: %w", ErrAnalysis, kind, err)
	}
	return text, nil
}

func (a *Analyzer) recordUsage(kind string, resp *llm.ChatResponse) {
	u := resp.Usage
	a.metrics.LLMUsage(resp.Provider, u.InputTokens, u.OutputTokens, u.CostUSD)
	a.log.Debug("analysis usage",
		"kind", kind,
		"provider", resp.Provider,
		"model", resp.Model,
		"input_tokens", u.InputTokens,
		"output_tokens", u.OutputTokens,
		"cost_usd", u.CostUSD,
		"latency", resp.Latency,
	)
	if resp.Truncated {
		a.log.Warn("analysis reply hit the token limit", "kind", kind, "model", resp.Model)
	}
}

// Session builds a structured profile from every turn of an interview.
func (a *Analyzer) Session(ctx context.Context, turns []Turn) (*SessionAnalysis, error) {
	if len(turns) == 0 {
		return nil, ErrEmptySession
	}

	start := time.Now()
	resp, err := a.gw.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: sessionPrompt},
			{Role: "user", Content: sessionMessage(turns)},
		},
		Temperature: 0.4,
		MaxTokens:   1500,
		JSONMode:    true,
	})
	var out *SessionAnalysis
	if err == nil {
		a.recordUsage("session", resp)
		out, err = parseSessionAnalysis(resp.Content)
	}
	a.metrics.Analysis("session", err == nil, time.Since(start))
	if err != nil {
		a.log.Error("session analysis failed", "turns", len(turns), "error", err)
		return nil, fmt.Errorf("%w: session: %w", ErrAnalysis, err)
	}
	return out, nil
}

func parseSessionAnalysis(raw string) (*SessionAnalysis, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		raw = raw[i : j+1]
	}

	var out SessionAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse session analysis: %w", err)
	}
	if out.CoreThemes == nil {
		out.CoreThemes = []string{}
	}
	m := &out.Metrics
	for _, v := range []*int{&m.EmotionalExpressiveness, &m.LifeSatisfaction, &m.SocialConnectedness, &m.Resilience, &m.Optimism, &m.Introspection} {
		*v = max(0, min(100, *v))
	}
	return &out, nil
}

// RespondAndSpeak runs Respond and then synthesizes its reply, under one
// pipeline timeout. Speech starts only once the reply text exists.
func (a *Analyzer) RespondAndSpeak(ctx context.Context, question, answer, voice string) (*Spoken, error) {
	return a.speak(ctx, voice, func(ctx context.Context) (string, error) {
		return a.Respond(ctx, question, answer)
	})
}

func (a *Analyzer) FollowupAndSpeak(ctx context.Context, question, answer, followup, voice string) (*Spoken, error) {
	return a.speak(ctx, voice, func(ctx context.Context) (string, error) {
		return a.Followup(ctx, question, answer, followup)
	})
}

func (a *Analyzer) speak(ctx context.Context, voice string, analyze func(context.Context) (string, error)) (*Spoken, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := analyze(ctx)
	if err != nil {
		return nil, a.pipelineErr(ctx, err)
	}

	audio, err := a.speech.Resolve(ctx, ttscache.Request{Text: text, Voice: voice, ContentType: ttscache.ContentOther})
	if err != nil {
		return nil, a.pipelineErr(ctx, err)
	}
	return &Spoken{Analysis: text, Audio: audio}, nil
}

func (a *Analyzer) pipelineErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrPipelineTimeout, a.timeout, err)
	}
	return err
}
