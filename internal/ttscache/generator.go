package ttscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikhilbhutani/lifereview/internal/multimodal/tts"
)

// Generator turns text into encoded audio. Every implementation produces the
// same audio format for every call.
type Generator interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, text, voice string) ([]byte, error)

func (f GeneratorFunc) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return f(ctx, text, voice)
}

// ProviderGenerator drives a tts.TTSProvider with a fixed speed and a per-call
// timeout. It does not retry.
type ProviderGenerator struct {
	provider tts.TTSProvider
	timeout  time.Duration
}

func NewProviderGenerator(provider tts.TTSProvider, timeout time.Duration) *ProviderGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProviderGenerator{provider: provider, timeout: timeout}
}

func (g *ProviderGenerator) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.provider.Synthesize(ctx, tts.SynthesisRequest{Input: text, Voice: voice, Speed: 1.0})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s: %w", g.provider.Name(), g.timeout, err)
		}
		return nil, fmt.Errorf("%s: %w", g.provider.Name(), err)
	}
	if res == nil || len(res.Audio) == 0 {
		return nil, fmt.Errorf("%s returned no audio", g.provider.Name())
	}
	return res.Audio, nil
}
