package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/lifereview/internal/config"
)

// OpenAITTSConfig holds configuration for the OpenAI TTS backend.
type OpenAITTSConfig struct {
	APIKey  string
	BaseURL string // default: the go-openai default
	Model   string // default: "tts-1-hd"
}

// OpenAITTS synthesizes MP3 speech using OpenAI's speech endpoint.
type OpenAITTS struct {
	client *openai.Client
	model  string
}

// NewOpenAITTS returns a ConfigurationError when no API key is set.
func NewOpenAITTS(cfg OpenAITTSConfig) (*OpenAITTS, error) {
	if err := config.Require("OPENAI_API_KEY", cfg.APIKey); err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1-hd"
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &OpenAITTS{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
	}, nil
}

func (o *OpenAITTS) Name() string { return "openai-tts" }

// Synthesize converts text to audio and returns the audio bytes as MP3.
func (o *OpenAITTS) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	voice := req.Voice
	if voice == "" {
		voice = "nova"
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          req.Input,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	return &SynthesisResult{
		Audio:       audio,
		ContentType: "audio/mpeg",
	}, nil
}
