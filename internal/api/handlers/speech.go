package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/lifereview/internal/queue"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

// SpeechCache is the part of *ttscache.Cache the speech routes use.
type SpeechCache interface {
	Resolve(ctx context.Context, req ttscache.Request) (*ttscache.Result, error)
	LocalPath(key string) (string, bool)
	Stats(ctx context.Context) ttscache.Stats
	ClearLocal() error
}

type WarmRunner interface {
	Run(ctx context.Context, items []ttscache.WarmItem, voice string) (*ttscache.WarmReport, error)
	InProgress(ctx context.Context, items []ttscache.WarmItem, voice string) (bool, error)
}

type WarmEnqueuer interface {
	EnqueueTTSWarm(ctx context.Context, payload queue.TTSWarmPayload) (string, error)
}

const warmInProgressMsg = "Pre-caching already in progress"

type SpeechHandler struct {
	cache     SpeechCache
	warmer    WarmRunner
	queue     WarmEnqueuer
	warmItems func() []ttscache.WarmItem
}

// NewSpeechHandler builds the speech routes. q may be nil, in which case
// pre-warming always runs inline.
func NewSpeechHandler(c SpeechCache, warmer WarmRunner, q WarmEnqueuer, warmItems func() []ttscache.WarmItem) *SpeechHandler {
	return &SpeechHandler{cache: c, warmer: warmer, queue: q, warmItems: warmItems}
}

func audioURL(key string) string {
	return "/api/audio/" + key
}

type ttsRequest struct {
	Text        string `json:"text"`
	Voice       string `json:"voice"`
	ContentType string `json:"content_type"`
}

// TextToSpeech returns MP3 audio for the text, generating it only on a full cache miss.
func (h *SpeechHandler) TextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	if req.ContentType == "" {
		req.ContentType = string(ttscache.ContentNarrative)
	}

	speech := ttscache.Request{
		Text:        req.Text,
		Voice:       req.Voice,
		ContentType: ttscache.ParseContentType(req.ContentType),
	}
	res, err := h.cache.Resolve(r.Context(), speech)
	if err != nil {
		writeError(w, r, err, "Failed to generate speech")
		return
	}

	f, err := os.Open(res.Path)
	if errors.Is(err, os.ErrNotExist) {
		// The local tier was cleared between resolve and open.
		if res, err = h.cache.Resolve(r.Context(), speech); err == nil {
			f, err = os.Open(res.Path)
		}
	}
	if err != nil {
		writeError(w, r, err, "Failed to generate speech")
		return
	}
	defer f.Close()

	w.Header().Set("X-TTS-Cache", string(res.Source))
	w.Header().Set("X-TTS-Key", res.Key)
	w.Header().Set("Content-Disposition", `attachment; filename="speech.mp3"`)
	serveAudio(w, r, f)
}

// Audio serves a previously generated file by its content key.
func (h *SpeechHandler) Audio(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	path, ok := h.cache.LocalPath(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("audio not found"))
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("audio not found"))
		return
	}
	defer f.Close()

	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	serveAudio(w, r, f)
}

func serveAudio(w http.ResponseWriter, r *http.Request, f *os.File) {
	info, err := f.Stat()
	if err != nil {
		writeError(w, r, err, "Failed to read audio")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, "speech.mp3", info.ModTime(), f)
}

func (h *SpeechHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   h.cache.Stats(r.Context()),
	})
}

type preCacheRequest struct {
	Voice string `json:"voice"`
	Async bool   `json:"async"`
}

// PreCache generates the intro, outro and every question for a voice. With
// async set and a queue available it hands the work to the worker instead.
func (h *SpeechHandler) PreCache(w http.ResponseWriter, r *http.Request) {
	var req preCacheRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	if req.Async && h.queue != nil {
		// A task queued behind a running warm would only be skipped by the worker.
		busy, err := h.warmer.InProgress(r.Context(), h.warmItems(), req.Voice)
		if err != nil {
			slog.WarnContext(r.Context(), "check warm guard", "error", err)
		}
		if busy {
			writeWarmInProgress(w)
			return
		}

		taskID, err := h.queue.EnqueueTTSWarm(r.Context(), queue.TTSWarmPayload{Voice: req.Voice})
		if errors.Is(err, queue.ErrAlreadyQueued) {
			writeWarmInProgress(w)
			return
		}
		if err != nil {
			writeError(w, r, err, "Failed to queue pre-caching")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{"success": true, "task_id": taskID})
		return
	}

	// Finish the run even if the browser goes away; the guard is held meanwhile.
	report, err := h.warmer.Run(context.WithoutCancel(r.Context()), h.warmItems(), req.Voice)
	if errors.Is(err, ttscache.ErrWarmInProgress) {
		writeWarmInProgress(w)
		return
	}
	if err != nil {
		writeError(w, r, err, "Pre-caching failed")
		return
	}

	results := report.ByText()
	cached := 0
	for _, ok := range results {
		if ok {
			cached++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"cached_count": cached,
		"total_count":  len(results),
		"results":      results,
	})
}

func writeWarmInProgress(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      warmInProgressMsg,
		"cached_count": 0,
		"total_count":  0,
	})
}

// ClearLocal empties the local audio tier. The remote tier is untouched.
func (h *SpeechHandler) ClearLocal(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.ClearLocal(); err != nil {
		writeError(w, r, err, "Failed to clear local cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
