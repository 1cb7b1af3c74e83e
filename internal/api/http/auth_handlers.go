package http

import (
	"net/http"
	"strings"

	"github.com/pomogitepozhaluyst/quiz3/internal/auth"
)

type registerReq struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        auth.User `json:"user"`
}

// POST /auth/register
func RegisterHandler(users *auth.UserStore, svc *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
			http.Error(w, "username, email and a password of at least 6 characters are required", http.StatusBadRequest)
			return
		}
		u, err := users.Create(r.Context(), auth.User{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
		}, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		tok, err := svc.IssueJWT(u.ID, u.Role)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tokenResp{AccessToken: tok, TokenType: "bearer", User: u})
	}
}

// POST /auth/login
func LoginHandler(users *auth.UserStore, svc *auth.AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		u, err := users.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		tok, err := svc.IssueJWT(u.ID, u.Role)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResp{AccessToken: tok, TokenType: "bearer", User: u})
	}
}

// GET /users/me
func MeHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := users.GetByID(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// GET /users (admin)
func ListUsersHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := r.URL.Query()
		list, err := users.List(r.Context(),
			parseIntDefault(qs.Get("limit"), 50), parseIntDefault(qs.Get("offset"), 0))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /users/change-password
func ChangePasswordHandler(users *auth.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if len(req.NewPassword) < 6 {
			http.Error(w, "new password must be at least 6 characters", http.StatusBadRequest)
			return
		}
		userID := auth.SubjectFromContext(r.Context())
		if err := users.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
