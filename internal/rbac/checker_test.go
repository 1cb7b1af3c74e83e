package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	cases := []struct {
		role, perm string
		want       bool
	}{
		{"student", "test:view", true},
		{"student", "test:create", false},
		{"teacher", "group:assign", true}, // via the group:* wildcard
		{"admin", "anything:at:all", true},
		{"nobody", "test:view", false},
		{"", "test:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Errorf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestCheckerAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any("teacher", "users:list", "test:grant") {
		t.Error("teacher should pass via test:grant")
	}
	if c.Any("student", "users:list", "test:grant") {
		t.Error("student holds neither permission")
	}
	if c.Any("student") {
		t.Error("empty permission list must not pass")
	}
}

func serveWithRole(h http.Handler, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithRole(req.Context(), role))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequire(t *testing.T) {
	h := Require("test:create")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if rec := serveWithRole(h, "teacher"); rec.Code != http.StatusOK {
		t.Errorf("teacher: status = %d", rec.Code)
	}
	if rec := serveWithRole(h, "student"); rec.Code != http.StatusForbidden {
		t.Errorf("student: status = %d, want 403", rec.Code)
	}
	if rec := serveWithRole(h, ""); rec.Code != http.StatusForbidden {
		t.Errorf("no role: status = %d, want 403", rec.Code)
	}
}

func TestRequireAny(t *testing.T) {
	h := RequireAny("users:list", "test:grant")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	if rec := serveWithRole(h, "admin"); rec.Code != http.StatusOK {
		t.Errorf("admin: status = %d", rec.Code)
	}
	if rec := serveWithRole(h, "teacher"); rec.Code != http.StatusOK {
		t.Errorf("teacher: status = %d", rec.Code)
	}
	if rec := serveWithRole(h, "student"); rec.Code != http.StatusForbidden {
		t.Errorf("student: status = %d, want 403", rec.Code)
	}
}
