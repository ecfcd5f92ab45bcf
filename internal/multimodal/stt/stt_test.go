package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/lifereview/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	p, err := New(config.STTConfig{Backend: "local"})
	require.NoError(t, err)
	assert.Equal(t, "local-whisper", p.Name())

	_, err = New(config.STTConfig{Backend: "openai"})
	var cfgErr *config.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = New(config.STTConfig{Backend: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "RIFF-fake", string(data))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"I grew up on a farm.","language":"english","duration":2.5}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "answer.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF-fake"), 0o644))

	p, err := NewOpenAISTT(OpenAISTTConfig{APIKey: "sk-test", BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "I grew up on a farm.", res.Text)
	assert.Equal(t, "english", res.Language)
	assert.InDelta(t, 2.5, res.Duration, 0.001)
}

func TestLocalTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/inference", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))

		_, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "answer.webm", hdr.Filename)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" We moved to Ohio in 1962.","duration":3.1}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "answer.webm")
	require.NoError(t, os.WriteFile(path, []byte("webm-fake"), 0o644))

	p := NewLocalSTT(LocalSTTConfig{BaseURL: srv.URL + "/"})
	res, err := p.Transcribe(context.Background(), TranscriptionRequest{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, "We moved to Ohio in 1962.", res.Text)
	assert.Equal(t, "en", res.Language)
	assert.InDelta(t, 3.1, res.Duration, 0.001)
}

func TestLocalTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "answer.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o644))

	_, err := NewLocalSTT(LocalSTTConfig{BaseURL: srv.URL}).Transcribe(context.Background(), TranscriptionRequest{FilePath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")

	_, err = NewLocalSTT(LocalSTTConfig{BaseURL: srv.URL}).Transcribe(context.Background(), TranscriptionRequest{FilePath: "/nonexistent.wav"})
	assert.Error(t, err)
}
