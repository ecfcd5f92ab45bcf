package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalSTTConfig holds configuration for the local whisper.cpp STT backend.
type LocalSTTConfig struct {
	BaseURL  string // default: "http://localhost:8178"
	Language string // default: "en"
}

// LocalSTT posts recordings to a whisper.cpp server's /inference endpoint.
// Start the server with: ./server -m models/ggml-base.en.bin --port 8178
type LocalSTT struct {
	baseURL  string
	language string
	http     *http.Client
}

func NewLocalSTT(cfg LocalSTTConfig) *LocalSTT {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8178"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	return &LocalSTT{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		language: cfg.Language,
		http:     &http.Client{Timeout: 300 * time.Second},
	}
}

func (l *LocalSTT) Name() string { return "local-whisper" }

type inferenceResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

func (l *LocalSTT) Transcribe(ctx context.Context, req TranscriptionRequest) (*TranscriptionResponse, error) {
	body, contentType, err := inferenceForm(req, l.language)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/inference", body)
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := l.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("whisper server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if out.Language == "" {
		out.Language = req.Language
	}
	if out.Language == "" {
		out.Language = l.language
	}

	// whisper.cpp prefixes segments with a space
	return &TranscriptionResponse{
		Text:     strings.TrimSpace(out.Text),
		Language: out.Language,
		Duration: out.Duration,
	}, nil
}

func inferenceForm(req TranscriptionRequest, defaultLang string) (io.Reader, string, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read recording: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = defaultLang
	}
	fields := map[string]string{
		"response_format": "verbose_json",
		"temperature":     "0.0",
		"language":        lang,
	}
	if req.Prompt != "" {
		fields["prompt"] = req.Prompt
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("build form: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}
