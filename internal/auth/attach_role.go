package auth

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/pomogitepozhaluyst/quiz3/internal/rbac"
)

// AttachRoleFromDB overrides the token's claim role with the row in the
// users table, so a role change takes effect without reissuing tokens.
// Runs after JWTMiddleware.
func AttachRoleFromDB(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := SubjectFromContext(ctx)

			var role string
			err := db.QueryRowContext(ctx,
				`SELECT role FROM users WHERE id=$1 AND is_active=TRUE`, sub).Scan(&role)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, sql.ErrNoRows):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		})
	}
}
