package ttscache

import (
	"errors"
	"fmt"
)

var (
	// ErrGeneration matches every GenerationError via errors.Is.
	ErrGeneration = errors.New("speech generation failed")

	// ErrNotFound is the remote tier's miss signal. It never reaches Resolve callers.
	ErrNotFound = errors.New("tts cache entry not found")

	ErrEmptyText = errors.New("text is required")

	// ErrWarmInProgress is returned by Warmer.Run while another run holds the guard.
	ErrWarmInProgress = errors.New("pre-caching already in progress")
)

// GenerationError reports that audio for Key could not be produced or stored locally.
// No cache tier is mutated when it is returned.
type GenerationError struct {
	Key string
	Err error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return ErrGeneration.Error()
	}
	return fmt.Sprintf("%s: %v", ErrGeneration.Error(), e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }
