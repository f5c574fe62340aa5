package middleware

import (
	"fmt"
	"net/http"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/model"
)

// RequireRole returns middleware that enforces role requirements.
// Must be applied after Auth middleware.
// Having ANY of the roles is sufficient; admin satisfies every role.
func RequireRole(required ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := auth.SessionFromContext(r.Context())
			if session == nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
				return
			}

			if session.HasRole(required...) {
				next.ServeHTTP(w, r)
				return
			}

			writeError(w, http.StatusForbidden, "FORBIDDEN",
				fmt.Sprintf("Insufficient permissions. Required role: %s", required[0]))
		})
	}
}

// RequireAdmin restricts a route to admins.
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(model.RoleAdmin)
}

// RequireSales allows sales staff and admins.
func RequireSales() func(http.Handler) http.Handler {
	return RequireRole(model.RoleSales)
}
