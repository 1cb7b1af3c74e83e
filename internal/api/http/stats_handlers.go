package http

import (
	"net/http"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/stats"
)

// GET /statistics/me
func UserStatsHandler(store *stats.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := store.UserSummary(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
