package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
	"github.com/pomogitepozhaluyst/quiz3/internal/eventlog"
	"github.com/pomogitepozhaluyst/quiz3/internal/group"
)

// POST /groups
func CreateGroupHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req group.CreateInput
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			http.Error(w, "group name required", http.StatusBadRequest)
			return
		}
		g, err := store.Create(r.Context(), req, auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

// GET /groups
func ListGroupsHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		list, err := store.ListPublic(r.Context(),
			parseIntDefault(qs.Get("limit"), 50), parseIntDefault(qs.Get("offset"), 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /groups/my
func MyGroupsHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListForUser(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /groups/by-code/{code}
func FindGroupByCodeHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := store.GetByInviteCode(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// POST /groups/{groupID}/join
func JoinGroupHandler(store *group.SQLStore, log *eventlog.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Password string `json:"password,omitempty"`
		}
		if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
			return
		}
		groupID := chi.URLParam(r, "groupID")
		userID := auth.SubjectFromContext(r.Context())
		m, err := store.Join(r.Context(), groupID, userID, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = log.Record(r.Context(), eventlog.TypeGroupJoined, groupID, userID,
			map[string]string{"role": m.Role})
		writeJSON(w, http.StatusCreated, m)
	}
}

// POST /groups/join-by-code
func JoinGroupByCodeHandler(store *group.SQLStore, log *eventlog.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			InviteCode string `json:"invite_code"`
			Password   string `json:"password,omitempty"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		g, err := store.GetByInviteCode(r.Context(), req.InviteCode)
		if err != nil {
			writeError(w, err)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		m, err := store.Join(r.Context(), g.ID, userID, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		_ = log.Record(r.Context(), eventlog.TypeGroupJoined, g.ID, userID,
			map[string]string{"role": m.Role, "via": "invite_code"})
		writeJSON(w, http.StatusCreated, m)
	}
}

// requireGroupView rejects users who neither belong to nor created the
// group.
func requireGroupView(store *group.SQLStore, w http.ResponseWriter, r *http.Request, groupID string) bool {
	ok, err := store.CanView(r.Context(), groupID, auth.SubjectFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return false
	}
	if !ok {
		writeError(w, group.ErrNotMember)
		return false
	}
	return true
}

// GET /groups/{groupID}/members
func ListGroupMembersHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		if !requireGroupView(store, w, r, groupID) {
			return
		}
		qs := r.URL.Query()
		list, err := store.ListMembers(r.Context(), groupID,
			parseIntDefault(qs.Get("limit"), 100), parseIntDefault(qs.Get("offset"), 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /groups/{groupID}/tests
func AssignTestHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		g, err := store.Get(r.Context(), groupID)
		if err != nil {
			writeError(w, err)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		if g.CreatedBy != userID {
			m, err := store.GetMember(r.Context(), groupID, userID)
			if err != nil || m.Role != group.RoleOwner {
				http.Error(w, "only the group owner can assign tests", http.StatusForbidden)
				return
			}
		}
		var req group.AssignInput
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.TestID == "" {
			http.Error(w, "test_id required", http.StatusBadRequest)
			return
		}
		a, err := store.Assign(r.Context(), groupID, userID, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /groups/{groupID}/tests
func ListGroupTestsHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		if !requireGroupView(store, w, r, groupID) {
			return
		}
		list, err := store.ListAssignedTests(r.Context(), groupID, auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GET /groups/{groupID}/stats
func GroupStatsHandler(store *group.SQLStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID := chi.URLParam(r, "groupID")
		if !requireGroupView(store, w, r, groupID) {
			return
		}
		stats, err := store.Stats(r.Context(), groupID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
