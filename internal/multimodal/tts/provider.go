package tts

import (
	"context"
	"errors"
	"slices"
	"unicode/utf8"
)

// MaxInputChars is the longest input the speech endpoint accepts.
const MaxInputChars = 4096

var (
	ErrUnknownVoice   = errors.New("unsupported voice")
	ErrInputTooLong   = errors.New("text exceeds the synthesis limit")
	ErrEmptySynthesis = errors.New("text is empty")
)

// Voices are the narrator voices the interview frontend offers.
var Voices = []string{"alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"}

func ValidVoice(v string) bool {
	return slices.Contains(Voices, v)
}

// SynthesisRequest holds the parameters for text-to-speech generation.
type SynthesisRequest struct {
	Input string  `json:"input"`
	Voice string  `json:"voice,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// Validate checks the request against the provider limits.
// An empty voice is allowed and means the provider default.
func (r SynthesisRequest) Validate() error {
	switch {
	case r.Input == "":
		return ErrEmptySynthesis
	case utf8.RuneCountInString(r.Input) > MaxInputChars:
		return ErrInputTooLong
	case r.Voice != "" && !ValidVoice(r.Voice):
		return ErrUnknownVoice
	}
	return nil
}

// SynthesisResult holds the generated audio and its content type.
type SynthesisResult struct {
	Audio       []byte
	ContentType string
}

// TTSProvider is the interface for text-to-speech backends.
type TTSProvider interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}
