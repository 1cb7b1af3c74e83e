package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
)

// POST /sessions
func StartSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TestID       string `json:"test_id"`
			AssignmentID string `json:"assignment_id,omitempty"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.TestID == "" {
			http.Error(w, "test_id required", http.StatusBadRequest)
			return
		}
		sess, err := svc.StartSession(r.Context(), auth.SubjectFromContext(r.Context()),
			req.TestID, req.AssignmentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

type answerResp struct {
	Answer exam.Answer        `json:"answer"`
	Totals exam.ScoreSnapshot `json:"totals"`
}

// POST /sessions/{sessionID}/answers
func SubmitAnswerHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in exam.AnswerInput
		if !decodeJSON(w, r, &in) {
			return
		}
		if in.QuestionID == "" {
			http.Error(w, "question_id required", http.StatusBadRequest)
			return
		}
		ans, totals, err := svc.SubmitAnswer(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "sessionID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, answerResp{Answer: ans, Totals: totals})
	}
}

// POST /sessions/{sessionID}/complete
func CompleteSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.CompleteSession(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// GET /tests/{testID}/sessions
func SessionHistoryHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.SessionHistory(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "testID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if sessions == nil {
			sessions = []exam.Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

type sessionDetail struct {
	exam.Session
	Answers []exam.Answer `json:"answers"`
}

// GET /sessions/{sessionID}
func GetSessionHandler(svc *exam.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		sessionID := chi.URLParam(r, "sessionID")
		sess, err := svc.GetSession(r.Context(), userID, sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		answers, err := svc.ListAnswers(r.Context(), userID, sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionDetail{Session: sess, Answers: answers})
	}
}
