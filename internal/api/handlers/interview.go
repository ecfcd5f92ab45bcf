package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nikhilbhutani/lifereview/internal/interview"
	"github.com/nikhilbhutani/lifereview/internal/ttscache"
)

// Analyzer is the part of *interview.Analyzer the interview routes use.
type Analyzer interface {
	Respond(ctx context.Context, question, answer string) (string, error)
	RespondAndSpeak(ctx context.Context, question, answer, voice string) (*interview.Spoken, error)
	FollowupAndSpeak(ctx context.Context, question, answer, followup, voice string) (*interview.Spoken, error)
	Session(ctx context.Context, turns []interview.Turn) (*interview.SessionAnalysis, error)
}

type SpeechResolver interface {
	Resolve(ctx context.Context, req ttscache.Request) (*ttscache.Result, error)
}

type InterviewHandler struct {
	analyzer Analyzer
	speech   SpeechResolver
}

// NewInterviewHandler builds the interview routes. A nil analyzer makes the
// analysis routes answer 503.
func NewInterviewHandler(analyzer Analyzer, speech SpeechResolver) *InterviewHandler {
	return &InterviewHandler{analyzer: analyzer, speech: speech}
}

func (h *InterviewHandler) Questions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"intro":     interview.IntroNarrative,
		"outro":     interview.OutroNarrative,
		"help":      interview.HelpMessage,
		"error":     interview.ErrorMessage,
		"questions": interview.Questions,
	})
}

type analyzeRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Voice    string `json:"voice"`
}

func (h *InterviewHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req, false); err != nil || blank(req.Question, req.Answer) {
		writeJSON(w, http.StatusBadRequest, errorBody("Question and answer are required"))
		return
	}
	if h.analyzer == nil {
		notConfigured(w, "chat model")
		return
	}

	analysis, err := h.analyzer.Respond(r.Context(), req.Question, req.Answer)
	if err != nil {
		writeError(w, r, err, "Failed to generate analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "analysis": analysis})
}

// AnalyzeAndTTS replies to an answer and returns the reply already spoken.
func (h *InterviewHandler) AnalyzeAndTTS(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req, false); err != nil || blank(req.Question, req.Answer) {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing question or answer"))
		return
	}
	if h.analyzer == nil {
		notConfigured(w, "chat model")
		return
	}

	spoken, err := h.analyzer.RespondAndSpeak(r.Context(), req.Question, req.Answer, req.Voice)
	if err != nil {
		writeError(w, r, err, "Failed to generate analysis")
		return
	}
	writeSpoken(w, spoken)
}

type followupRequest struct {
	OriginalQuestion string `json:"original_question"`
	OriginalAnswer   string `json:"original_answer"`
	FollowupAnswer   string `json:"followup_answer"`
	Voice            string `json:"voice"`
}

func (h *InterviewHandler) AnalyzeFollowup(w http.ResponseWriter, r *http.Request) {
	var req followupRequest
	if err := decodeJSON(r, &req, false); err != nil || blank(req.OriginalQuestion, req.OriginalAnswer, req.FollowupAnswer) {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing original question, original answer, or followup answer"))
		return
	}
	if h.analyzer == nil {
		notConfigured(w, "chat model")
		return
	}

	spoken, err := h.analyzer.FollowupAndSpeak(r.Context(), req.OriginalQuestion, req.OriginalAnswer, req.FollowupAnswer, req.Voice)
	if err != nil {
		writeError(w, r, err, "Failed to generate follow-up analysis")
		return
	}
	writeSpoken(w, spoken)
}

func writeSpoken(w http.ResponseWriter, s *interview.Spoken) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": s.Analysis,
		"tts_path": s.Audio.Path,
		"tts_url":  audioURL(s.Audio.Key),
		"tts_key":  s.Audio.Key,
	})
}

type sessionRequest struct {
	SessionData []interview.Turn `json:"session_data"`
}

func (h *InterviewHandler) AnalyzeSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing session_data"))
		return
	}
	if len(req.SessionData) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody(interview.ErrEmptySession.Error()))
		return
	}
	if h.analyzer == nil {
		notConfigured(w, "chat model")
		return
	}

	analysis, err := h.analyzer.Session(r.Context(), req.SessionData)
	if err != nil {
		writeError(w, r, err, "Failed to generate session analysis")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "analysis": analysis})
}

type processQuestionRequest struct {
	Question string `json:"question"`
	Voice    string `json:"voice"`
}

// ProcessQuestion speaks a question. Audio is left out of the response, not
// reported as an error, when synthesis fails.
func (h *InterviewHandler) ProcessQuestion(w http.ResponseWriter, r *http.Request) {
	var req processQuestionRequest
	if err := decodeJSON(r, &req, false); err != nil || blank(req.Question) {
		writeJSON(w, http.StatusBadRequest, errorBody("Question is required"))
		return
	}

	out := map[string]interface{}{"success": true}
	res, err := h.speech.Resolve(r.Context(), ttscache.Request{
		Text:        req.Question,
		Voice:       req.Voice,
		ContentType: ttscache.ContentQuestion,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "question audio unavailable", "error", err)
	} else {
		out["question_audio"] = res.Path
		out["question_audio_url"] = audioURL(res.Key)
	}
	writeJSON(w, http.StatusOK, out)
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
