package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/lifereview/internal/config"
	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/multimodal/tts"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps a service error onto a status code and a message safe to
// show the browser. fallback is used for anything unclassified.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, msg := http.StatusInternalServerError, fallback

	var cfgErr *config.ConfigurationError
	switch {
	case errors.Is(err, ttscache.ErrEmptyText):
		status, msg = http.StatusBadRequest, "Text is required"
	case errors.Is(err, interview.ErrEmptySession):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, interview.ErrPipelineTimeout):
		status, msg = http.StatusGatewayTimeout, "analysis timed out"
	case errors.Is(err, tts.ErrUnknownVoice):
		status, msg = http.StatusBadRequest, "Unsupported voice"
	case errors.Is(err, tts.ErrInputTooLong):
		status, msg = http.StatusBadRequest, "Text is too long"
	case errors.Is(err, ttscache.ErrGeneration):
		msg = "speech generation failed"
	case errors.As(err, &cfgErr):
		status, msg = http.StatusServiceUnavailable, cfgErr.Error()
	}

	slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, errorBody(msg))
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		return nil
	}
	return err
}

func notConfigured(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusServiceUnavailable, errorBody(what+" not configured"))
}
