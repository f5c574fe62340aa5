package handler

import (
	"net/http"
	"strconv"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/model"
)

// requireSession returns the caller's session or writes a 401.
func requireSession(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return nil, false
	}
	return session, true
}

// queryInt parses a positive integer query parameter, returning 0 when it
// is absent or malformed.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}
