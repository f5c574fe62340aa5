// Package auth provides session tokens and request-scoped session access.
package auth

import (
	"context"

	"github.com/glansab/backoffice/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// sessionContextKey is the context key for storing the Session.
	sessionContextKey contextKey = "session"
)

// ContextWithSession adds the Session to the context.
func ContextWithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext retrieves the Session from the context.
// Returns nil if not present.
func SessionFromContext(ctx context.Context) *model.Session {
	s, ok := ctx.Value(sessionContextKey).(*model.Session)
	if !ok {
		return nil
	}
	return s
}

// MustSessionFromContext retrieves the Session from the context.
// Panics if not present (use only when auth middleware has run).
func MustSessionFromContext(ctx context.Context) *model.Session {
	s := SessionFromContext(ctx)
	if s == nil {
		panic("session not found - ensure auth middleware is applied")
	}
	return s
}

// UserIDFromContext returns the caller's user ID, or "" if unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	s := SessionFromContext(ctx)
	if s == nil {
		return ""
	}
	return s.UserID
}

// OrganisationIDFromContext returns the caller's organisation, or "" if unauthenticated.
func OrganisationIDFromContext(ctx context.Context) string {
	s := SessionFromContext(ctx)
	if s == nil {
		return ""
	}
	return s.OrganisationID
}
