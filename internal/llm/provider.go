package llm

import (
	"context"
	"time"
)

// Provider is one chat completion backend (OpenAI, Anthropic).
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// Gateway routes chat calls to a provider with retry and fallback.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

type ChatRequest struct {
	// Provider and Model fall back to the gateway defaults when empty.
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	// JSONMode asks the provider for a single JSON object where supported.
	JSONMode bool `json:"json_mode,omitempty"`
}

// Usage is what one completion cost.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

func newUsage(model string, in, out int) Usage {
	return Usage{InputTokens: in, OutputTokens: out, CostUSD: CalculateCost(model, in, out)}
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

type ChatResponse struct {
	ID       string        `json:"id"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Content  string        `json:"content"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency"`
	// Truncated is set when the reply stopped at MaxTokens.
	Truncated bool `json:"truncated,omitempty"`
}
