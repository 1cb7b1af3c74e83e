package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pomogitepozhaluyst/quiz3/internal/rbac"
)

func TestIssueAndParse(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour)
	tok, err := svc.IssueJWT("user-1", RoleTeacher)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	c, err := svc.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Sub != "user-1" || c.Role != RoleTeacher {
		t.Errorf("claims = %+v", c)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := NewAuthService("secret-a", time.Hour).IssueJWT("u", RoleStudent)
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	if _, err := NewAuthService("secret-b", time.Hour).Parse(tok); err == nil {
		t.Fatal("token signed with another secret parsed")
	}
}

func TestJWTMiddleware(t *testing.T) {
	svc := NewAuthService("test-secret", time.Hour)
	var gotSub, gotRole string
	h := JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSub = SubjectFromContext(r.Context())
		gotRole = rbac.RoleFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no bearer: status = %d, want 401", rec.Code)
	}

	tok, _ := svc.IssueJWT("user-9", RoleStudent)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid bearer: status = %d", rec.Code)
	}
	if gotSub != "user-9" || gotRole != RoleStudent {
		t.Errorf("context sub=%q role=%q", gotSub, gotRole)
	}
}
