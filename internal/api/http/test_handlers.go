package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/bank"
	"github.com/pomogitepozhaluyst/quiz3/internal/eventlog"
	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
	"github.com/pomogitepozhaluyst/quiz3/internal/rbac"
)

type createTestReq struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	TimeLimitSec int    `json:"time_limit_sec,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	PassingScore int    `json:"passing_score,omitempty"`
	ShowResults  string `json:"show_results,omitempty"`
	ShuffleQ     bool   `json:"shuffle_questions,omitempty"`
	ShuffleA     bool   `json:"shuffle_answers,omitempty"`
	IsPublic     bool   `json:"is_public,omitempty"`
	Questions    []struct {
		QuestionID string `json:"question_id"`
		Points     int    `json:"points,omitempty"`
		SortOrder  int    `json:"sort_order,omitempty"`
	} `json:"questions"`
}

// POST /tests
func CreateTestHandler(store *exam.SQLStore, log *eventlog.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTestReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			http.Error(w, "title required", http.StatusBadRequest)
			return
		}
		if len(req.Questions) == 0 {
			http.Error(w, "at least one question required", http.StatusBadRequest)
			return
		}
		authorID := auth.SubjectFromContext(r.Context())
		bindings := make([]exam.TestQuestion, len(req.Questions))
		for i, q := range req.Questions {
			bindings[i] = exam.TestQuestion{
				QuestionID: q.QuestionID,
				Points:     q.Points,
				SortOrder:  q.SortOrder,
			}
		}
		t, err := store.CreateTest(r.Context(), exam.Test{
			Title:        req.Title,
			Description:  req.Description,
			AuthorID:     authorID,
			TimeLimitSec: req.TimeLimitSec,
			MaxAttempts:  req.MaxAttempts,
			PassingScore: req.PassingScore,
			ShowResults:  req.ShowResults,
			ShuffleQ:     req.ShuffleQ,
			ShuffleA:     req.ShuffleA,
			IsPublic:     req.IsPublic,
		}, bindings)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = log.Record(r.Context(), eventlog.TypeTestCreated, t.ID, authorID,
			map[string]any{"title": t.Title, "questions": len(bindings)})
		writeJSON(w, http.StatusCreated, t)
	}
}

// GET /tests
func ListTestsHandler(store *exam.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		list, err := store.ListTestsForUser(r.Context(), auth.SubjectFromContext(r.Context()),
			parseIntDefault(qs.Get("limit"), 50), parseIntDefault(qs.Get("offset"), 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type testDetail struct {
	exam.Test
	Questions []bank.Question `json:"questions"`
}

// GET /tests/{testID}. Questions are served without the answer key unless
// the viewer moderates the test.
func GetTestHandler(store *exam.SQLStore, questions *bank.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := chi.URLParam(r, "testID")
		viewer := auth.SubjectFromContext(r.Context())

		t, err := store.GetTest(r.Context(), testID)
		if err != nil {
			writeError(w, err)
			return
		}
		access, err := store.GetAccess(r.Context(), testID, viewer)
		if err != nil && !errors.Is(err, exam.ErrAccessNotFound) {
			writeError(w, err)
			return
		}
		if !t.IsPublic && t.AuthorID != viewer && access.Level == "" &&
			rbac.RoleFromContext(r.Context()) != "admin" {
			http.Error(w, exam.ErrTestNotFound.Error(), http.StatusNotFound)
			return
		}
		seesAnswers := t.AuthorID == viewer ||
			access.Level == exam.AccessAdmin || access.Level == exam.AccessModerator ||
			rbac.RoleFromContext(r.Context()) == "admin"

		bindings, err := store.ListTestQuestions(r.Context(), testID)
		if err != nil {
			writeError(w, err)
			return
		}
		detail := testDetail{Test: t}
		for _, b := range bindings {
			q, err := questions.GetQuestion(r.Context(), b.QuestionID)
			if err != nil {
				if errors.Is(err, bank.ErrQuestionNotFound) {
					continue // question deleted after binding
				}
				writeError(w, err)
				return
			}
			if b.Points > 0 {
				q.Points = b.Points
			}
			if !seesAnswers {
				q = q.StripAnswers()
			}
			detail.Questions = append(detail.Questions, q)
		}
		writeJSON(w, http.StatusOK, detail)
	}
}

// requireTestAdmin allows the test's author, granted admins and platform
// admins through; everyone else is rejected.
func requireTestAdmin(store *exam.SQLStore, w http.ResponseWriter, r *http.Request, testID string) bool {
	viewer := auth.SubjectFromContext(r.Context())
	if rbac.RoleFromContext(r.Context()) == "admin" {
		return true
	}
	t, err := store.GetTest(r.Context(), testID)
	if err != nil {
		writeError(w, err)
		return false
	}
	if t.AuthorID == viewer {
		return true
	}
	access, err := store.GetAccess(r.Context(), testID, viewer)
	if err == nil && access.Level == exam.AccessAdmin {
		return true
	}
	http.Error(w, "forbidden", http.StatusForbidden)
	return false
}

// POST /tests/{testID}/access
func GrantAccessHandler(store *exam.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := chi.URLParam(r, "testID")
		if !requireTestAdmin(store, w, r, testID) {
			return
		}
		var req struct {
			UserID string `json:"user_id"`
			Level  string `json:"access_level"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		switch req.Level {
		case exam.AccessAdmin, exam.AccessModerator, exam.AccessParticipant:
		default:
			http.Error(w, "unknown access level", http.StatusBadRequest)
			return
		}
		a, err := store.GrantAccess(r.Context(), exam.TestAccess{
			TestID:    testID,
			UserID:    req.UserID,
			Level:     req.Level,
			GrantedBy: auth.SubjectFromContext(r.Context()),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// DELETE /tests/{testID}/access/{userID}
func RevokeAccessHandler(store *exam.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := chi.URLParam(r, "testID")
		if !requireTestAdmin(store, w, r, testID) {
			return
		}
		if err := store.RevokeAccess(r.Context(), testID, chi.URLParam(r, "userID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /tests/{testID}/access
func ListAccessHandler(store *exam.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		testID := chi.URLParam(r, "testID")
		if !requireTestAdmin(store, w, r, testID) {
			return
		}
		list, err := store.ListAccess(r.Context(), testID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
