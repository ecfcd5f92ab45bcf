package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

type fakeAnalyzer struct {
	reply   string
	err     error
	session *interview.SessionAnalysis
	voice   string
}

func (f *fakeAnalyzer) Respond(context.Context, string, string) (string, error) {
	return f.reply, f.err
}

func (f *fakeAnalyzer) RespondAndSpeak(_ context.Context, _, _, voice string) (*interview.Spoken, error) {
	f.voice = voice
	if f.err != nil {
		return nil, f.err
	}
	key := ttscache.DeriveKey(f.reply, voice)
	return &interview.Spoken{Analysis: f.reply, Audio: &ttscache.Result{Key: key, Path: "/tmp/tts_cache/" + key + ".mp3"}}, nil
}

func (f *fakeAnalyzer) FollowupAndSpeak(ctx context.Context, q, a, _, voice string) (*interview.Spoken, error) {
	return f.RespondAndSpeak(ctx, q, a, voice)
}

func (f *fakeAnalyzer) Session(context.Context, []interview.Turn) (*interview.SessionAnalysis, error) {
	return f.session, f.err
}

type fakeResolver struct{ err error }

func (f fakeResolver) Resolve(_ context.Context, req ttscache.Request) (*ttscache.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := ttscache.DeriveKey(req.Text, req.Voice)
	return &ttscache.Result{Key: key, Path: "/cache/" + key + ".mp3"}, nil
}

func interviewRouter(h *InterviewHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/questions", h.Questions)
	r.Post("/api/analyze", h.Analyze)
	r.Post("/api/analyze-and-tts", h.AnalyzeAndTTS)
	r.Post("/api/analyze-followup", h.AnalyzeFollowup)
	r.Post("/api/analyze-session", h.AnalyzeSession)
	r.Post("/api/process-question", h.ProcessQuestion)
	return r
}

func TestQuestions(t *testing.T) {
	h := interviewRouter(NewInterviewHandler(nil, fakeResolver{}))

	rec := do(h, http.MethodGet, "/api/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, interview.IntroNarrative, body["intro"])
	assert.Len(t, body["questions"], len(interview.Questions))
}

func TestAnalyzeRoutesWithoutChatModel(t *testing.T) {
	h := interviewRouter(NewInterviewHandler(nil, fakeResolver{}))

	rec := do(h, http.MethodPost, "/api/analyze", `{"question":"q","answer":"a"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalyze(t *testing.T) {
	h := interviewRouter(NewInterviewHandler(&fakeAnalyzer{reply: "That sounds lovely."}, fakeResolver{}))

	rec := do(h, http.MethodPost, "/api/analyze", `{"question":"q","answer":"a"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "That sounds lovely.", decodeBody(t, rec)["analysis"])

	rec = do(h, http.MethodPost, "/api/analyze", `{"question":"q"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Question and answer are required", decodeBody(t, rec)["error"])
}

func TestAnalyzeAndTTS(t *testing.T) {
	a := &fakeAnalyzer{reply: "Tell me more about that garden."}
	h := interviewRouter(NewInterviewHandler(a, fakeResolver{}))

	rec := do(h, http.MethodPost, "/api/analyze-and-tts", `{"question":"q","answer":"a","voice":"onyx"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	key := ttscache.DeriveKey(a.reply, "onyx")
	assert.Equal(t, a.reply, body["analysis"])
	assert.Equal(t, key, body["tts_key"])
	assert.Equal(t, "/api/audio/"+key, body["tts_url"])
	assert.Equal(t, "onyx", a.voice)
}

func TestAnalyzePipelineErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"timeout", fmt.Errorf("%w: deadline", interview.ErrPipelineTimeout), http.StatusGatewayTimeout, "analysis timed out"},
		{"speech", &ttscache.GenerationError{Key: "k", Err: errors.New("quota")}, http.StatusInternalServerError, "speech generation failed"},
		{"analysis", fmt.Errorf("%w: respond: boom", interview.ErrAnalysis), http.StatusInternalServerError, "Failed to generate analysis"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := interviewRouter(NewInterviewHandler(&fakeAnalyzer{err: tc.err}, fakeResolver{}))
			rec := do(h, http.MethodPost, "/api/analyze-and-tts", `{"question":"q","answer":"a"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decodeBody(t, rec)["error"])
		})
	}
}

func TestAnalyzeFollowupValidation(t *testing.T) {
	h := interviewRouter(NewInterviewHandler(&fakeAnalyzer{reply: "ok"}, fakeResolver{}))

	rec := do(h, http.MethodPost, "/api/analyze-followup", `{"original_question":"q","original_answer":"a"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/api/analyze-followup", `{"original_question":"q","original_answer":"a","followup_answer":"f"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeSession(t *testing.T) {
	a := &fakeAnalyzer{session: &interview.SessionAnalysis{CoreThemes: []string{"family"}, Metrics: interview.SessionMetrics{Optimism: 80}}}
	h := interviewRouter(NewInterviewHandler(a, fakeResolver{}))

	rec := do(h, http.MethodPost, "/api/analyze-session", `{"session_data":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "session_data must be a non-empty list", decodeBody(t, rec)["error"])

	rec = do(h, http.MethodPost, "/api/analyze-session", `{"session_data":[{"question":"q","answer":"a"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := decodeBody(t, rec)["analysis"].(map[string]interface{})
	assert.Equal(t, []interface{}{"family"}, analysis["core_themes"])
}

func TestProcessQuestion(t *testing.T) {
	h := interviewRouter(NewInterviewHandler(nil, fakeResolver{}))
	rec := do(h, http.MethodPost, "/api/process-question", `{"question":"How are you?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "/api/audio/"+ttscache.DeriveKey("How are you?", ""), body["question_audio_url"])

	h = interviewRouter(NewInterviewHandler(nil, fakeResolver{err: &ttscache.GenerationError{Err: errors.New("down")}}))
	rec = do(h, http.MethodPost, "/api/process-question", `{"question":"How are you?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "question_audio")
}
