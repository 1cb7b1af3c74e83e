// Package http holds the REST handlers. Constructors take their
// dependencies and return http.HandlerFunc; routing is wired in cmd.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/bank"
	"github.com/pomogitepozhaluyst/quiz3/internal/exam"
	"github.com/pomogitepozhaluyst/quiz3/internal/group"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses. Anything unmapped
// is a 500 with a generic body.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, exam.ErrTestNotFound),
		errors.Is(err, exam.ErrSessionNotFound),
		errors.Is(err, exam.ErrQuestionNotFound),
		errors.Is(err, exam.ErrAccessNotFound),
		errors.Is(err, bank.ErrQuestionNotFound),
		errors.Is(err, bank.ErrCategoryNotFound),
		errors.Is(err, group.ErrGroupNotFound),
		errors.Is(err, group.ErrAssignmentNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, exam.ErrSessionClosed),
		errors.Is(err, exam.ErrAttemptLimit),
		errors.Is(err, group.ErrGroupFull),
		errors.Is(err, group.ErrPasswordRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, exam.ErrAlreadyCompleted),
		errors.Is(err, group.ErrAlreadyMember),
		errors.Is(err, auth.ErrUsernameTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, auth.ErrBadCredential),
		errors.Is(err, group.ErrWrongPassword):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, group.ErrNotMember):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
