package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/lifereview/internal/assemblyai"
	"github.com/nikhilbhutani/lifereview/internal/multimodal/stt"
)

type Transcriber interface {
	Transcribe(ctx context.Context, req stt.TranscriptionRequest) (*stt.TranscriptionResponse, error)
}

type TokenSource interface {
	Token(ctx context.Context, expiresInSeconds int) (json.RawMessage, error)
}

// QuestionExtractor pulls question lines out of a document on disk.
type QuestionExtractor func(ctx context.Context, path string) ([]string, error)

type MediaHandler struct {
	stt       Transcriber
	tokens    TokenSource
	extract   QuestionExtractor
	uploadDir string
	maxBytes  int64
}

// NewMediaHandler builds the upload and streaming-token routes. stt and
// tokens may be nil when their backends are not configured.
func NewMediaHandler(transcriber Transcriber, tokens TokenSource, extract QuestionExtractor, uploadDir string, maxBytes int64) *MediaHandler {
	return &MediaHandler{stt: transcriber, tokens: tokens, extract: extract, uploadDir: uploadDir, maxBytes: maxBytes}
}

// AssemblyAIToken mints a short-lived streaming token for the browser.
func (h *MediaHandler) AssemblyAIToken(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("AssemblyAI API key not configured"))
		return
	}

	expires := assemblyai.DefaultExpiry
	if v := r.URL.Query().Get("expires_in_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("expires_in_seconds must be an integer"))
			return
		}
		expires = n
	}

	token, err := h.tokens.Token(r.Context(), expires)
	var apiErr *assemblyai.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Status, map[string]string{
			"error":   "Failed to get token from AssemblyAI",
			"details": apiErr.Body,
		})
		return
	}
	if err != nil {
		writeError(w, r, err, "Failed to get token from AssemblyAI")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(token)
}

func (h *MediaHandler) ExtractQuestions(w http.ResponseWriter, r *http.Request) {
	path, status, msg := h.saveUpload(w, r, "pdf", ".pdf")
	if status != 0 {
		writeJSON(w, status, errorBody(msg))
		return
	}
	defer removeUpload(path)

	questions, err := h.extract(r.Context(), path)
	if err != nil {
		writeError(w, r, err, "Failed to extract questions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"questions": questions,
		"count":     len(questions),
	})
}

func (h *MediaHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.stt == nil {
		notConfigured(w, "speech-to-text")
		return
	}

	path, status, msg := h.saveUpload(w, r, "audio", "")
	if status != 0 {
		writeJSON(w, status, errorBody(msg))
		return
	}
	defer removeUpload(path)

	result, err := h.stt.Transcribe(r.Context(), stt.TranscriptionRequest{FilePath: path})
	if err != nil {
		writeError(w, r, err, "Failed to transcribe audio")
		return
	}
	if strings.TrimSpace(result.Text) == "" {
		writeJSON(w, http.StatusInternalServerError, errorBody("Failed to transcribe audio"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "transcript": result.Text})
}

// saveUpload copies the multipart file field into the upload directory under
// a random name that keeps the original extension. A non-zero status means
// the request was rejected with msg. requireExt, when set, is the only
// extension accepted.
func (h *MediaHandler) saveUpload(w http.ResponseWriter, r *http.Request, field, requireExt string) (string, int, string) {
	if r.ContentLength > h.maxBytes {
		return "", http.StatusRequestEntityTooLarge, "file too large"
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", http.StatusRequestEntityTooLarge, "file too large"
		}
		return "", http.StatusBadRequest, "invalid multipart form"
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if requireExt == ".pdf" {
			return "", http.StatusBadRequest, "No PDF file provided"
		}
		return "", http.StatusBadRequest, fmt.Sprintf("No %s file provided", field)
	}
	defer file.Close()

	if header.Filename == "" {
		return "", http.StatusBadRequest, "No file selected"
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if requireExt != "" && ext != requireExt {
		return "", http.StatusBadRequest, "Invalid file type. Only PDF allowed"
	}
	if ext == "" {
		ext = ".webm"
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		slog.Error("create upload dir", "dir", h.uploadDir, "error", err)
		return "", http.StatusInternalServerError, "Failed to save file"
	}
	path := filepath.Join(h.uploadDir, uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		slog.Error("create upload", "path", path, "error", err)
		return "", http.StatusInternalServerError, "Failed to save file"
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		removeUpload(path)
		slog.Error("write upload", "path", path, "error", err)
		return "", http.StatusInternalServerError, "Failed to save file"
	}
	if err := dst.Close(); err != nil {
		removeUpload(path)
		return "", http.StatusInternalServerError, "Failed to save file"
	}
	return path, 0, ""
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove upload", "path", path, "error", err)
	}
}
