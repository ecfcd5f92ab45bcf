package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/lifereview/internal/assemblyai"
	"github.com/nikhilbhutani/lifereview/internal/multimodal/stt"
)

type fakeTranscriber struct {
	text string
	path string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req stt.TranscriptionRequest) (*stt.TranscriptionResponse, error) {
	f.path = req.FilePath
	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, err
	}
	return &stt.TranscriptionResponse{Text: f.text + string(data)}, nil
}

type fakeTokens struct {
	seconds int
	err     error
}

func (f *fakeTokens) Token(_ context.Context, seconds int) (json.RawMessage, error) {
	f.seconds = seconds
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"token":"tmp-123"}`), nil
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestExtractQuestions(t *testing.T) {
	dir := t.TempDir()
	var seen string
	extract := func(_ context.Context, path string) ([]string, error) {
		seen = path
		return []string{"Where did you grow up?"}, nil
	}
	h := NewMediaHandler(nil, nil, extract, dir, 1<<20)

	rec := serve(h.ExtractQuestions, multipartRequest(t, "/api/extract-questions", "pdf", "questions.PDF", []byte("%PDF-1.4")))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, ".pdf", filepath.Ext(seen))
	assert.NoFileExists(t, seen)
}

func TestExtractQuestionsRejects(t *testing.T) {
	h := NewMediaHandler(nil, nil, nil, t.TempDir(), 1<<20)

	rec := serve(h.ExtractQuestions, multipartRequest(t, "/api/extract-questions", "pdf", "notes.txt", []byte("hi")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid file type. Only PDF allowed", decodeBody(t, rec)["error"])

	rec = serve(h.ExtractQuestions, multipartRequest(t, "/api/extract-questions", "file", "a.pdf", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No PDF file provided", decodeBody(t, rec)["error"])
}

func TestUploadTooLarge(t *testing.T) {
	h := NewMediaHandler(&fakeTranscriber{}, nil, nil, t.TempDir(), 16)

	rec := serve(h.Transcribe, multipartRequest(t, "/api/transcribe", "audio", "a.webm", bytes.Repeat([]byte("x"), 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTranscribe(t *testing.T) {
	tr := &fakeTranscriber{text: "heard: "}
	h := NewMediaHandler(tr, nil, nil, t.TempDir(), 1<<20)

	rec := serve(h.Transcribe, multipartRequest(t, "/api/transcribe", "audio", "blob", []byte("hello")))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "heard: hello", decodeBody(t, rec)["transcript"])
	assert.Equal(t, ".webm", filepath.Ext(tr.path))
	assert.NoFileExists(t, tr.path)
}

func TestTranscribeNotConfigured(t *testing.T) {
	h := NewMediaHandler(nil, nil, nil, t.TempDir(), 1<<20)
	rec := serve(h.Transcribe, multipartRequest(t, "/api/transcribe", "audio", "a.webm", []byte("x")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAssemblyAIToken(t *testing.T) {
	tokens := &fakeTokens{}
	h := NewMediaHandler(nil, tokens, nil, t.TempDir(), 1<<20)

	rec := serve(h.AssemblyAIToken, httptest.NewRequest(http.MethodGet, "/api/assemblyai-token?expires_in_seconds=120", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"tmp-123"}`, rec.Body.String())
	assert.Equal(t, 120, tokens.seconds)

	rec = serve(h.AssemblyAIToken, httptest.NewRequest(http.MethodGet, "/api/assemblyai-token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assemblyai.DefaultExpiry, tokens.seconds)

	rec = serve(h.AssemblyAIToken, httptest.NewRequest(http.MethodGet, "/api/assemblyai-token?expires_in_seconds=soon", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssemblyAITokenErrors(t *testing.T) {
	h := NewMediaHandler(nil, nil, nil, t.TempDir(), 1<<20)
	rec := serve(h.AssemblyAIToken, httptest.NewRequest(http.MethodGet, "/api/assemblyai-token", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "AssemblyAI API key not configured", decodeBody(t, rec)["error"])

	h = NewMediaHandler(nil, &fakeTokens{err: &assemblyai.APIError{Status: http.StatusUnauthorized, Body: "bad key"}}, nil, t.TempDir(), 1<<20)
	rec = serve(h.AssemblyAIToken, httptest.NewRequest(http.MethodGet, "/api/assemblyai-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "bad key", decodeBody(t, rec)["details"])
}
