package http

import (
	"net/http"
	"strconv"

	"github.com/pomogitepozhaluyst/quiz3/internal/eventlog"
)

// GET /admin/events?after=&limit=
func ListEventsHandler(log *eventlog.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		list, err := log.List(r.Context(), after,
			parseIntDefault(r.URL.Query().Get("limit"), 100))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
