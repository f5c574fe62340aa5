package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

// ProfileLookup loads the profile behind a session token.
type ProfileLookup interface {
	GetProfileForSession(ctx context.Context, userID string) (*model.UserProfile, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Tokens   *auth.Tokens
	Profiles ProfileLookup
}

// Auth returns a middleware that authenticates API requests with a bearer
// session token. The caller's profile must exist, be active and belong to
// the token's organisation; its stored role replaces the token's role.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractBearer(r.Header.Get("Authorization"))

			session, err := cfg.Tokens.Parse(token)
			if err != nil {
				reason := "invalid_token"
				if errors.Is(err, auth.ErrMissingToken) {
					reason = "missing_token"
				}
				logAuthFailure(cfg.Logger, r, reason)
				writeAuthError(w)
				return
			}

			if cfg.Profiles != nil {
				profile, err := cfg.Profiles.GetProfileForSession(r.Context(), session.UserID)
				if err != nil {
					if !errors.Is(err, repository.ErrNotFound) {
						cfg.Logger.Error("profile lookup failed during auth",
							slog.String("error", err.Error()),
							slog.String("request_id", GetRequestID(r.Context())),
						)
					}
					logAuthFailure(cfg.Logger, r, "unknown_user")
					writeAuthError(w)
					return
				}
				if profile.OrganisationID != session.OrganisationID {
					logAuthFailure(cfg.Logger, r, "organisation_mismatch")
					writeAuthError(w)
					return
				}
				if !profile.IsActive {
					logAuthFailure(cfg.Logger, r, "inactive_user")
					writeError(w, http.StatusForbidden, "ACCOUNT_INACTIVE", "Account is inactive")
					return
				}
				session.Role = profile.Role
				session.Email = profile.Email
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", session.UserID),
				slog.String("organisation_id", session.OrganisationID),
				slog.String("role", string(session.Role)),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			annotateRequestLog(r.Context(), session)
			ctx := auth.ContextWithSession(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing session token")
}
