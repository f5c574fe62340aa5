package middleware

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Validation limits.
const (
	// MaxSearchQueryLength is the maximum length for free text search terms.
	MaxSearchQueryLength = 200

	// MaxIDLength bounds path ids before parsing.
	MaxIDLength = 64
)

// Validation errors.
var (
	ErrIDMissing        = errors.New("id is required")
	ErrIDInvalid        = errors.New("id must be a UUID")
	ErrSearchTooLong    = errors.New("search query exceeds maximum length")
	ErrSearchInvalidUTF = errors.New("search query is not valid UTF-8")
)

// ValidateID checks that s is a canonical UUID.
func ValidateID(s string) error {
	if s == "" {
		return ErrIDMissing
	}
	if len(s) > MaxIDLength {
		return ErrIDInvalid
	}
	if _, err := uuid.Parse(s); err != nil {
		return ErrIDInvalid
	}
	return nil
}

// ValidateSearchQuery checks a free text search term.
func ValidateSearchQuery(q string) error {
	if len(q) > MaxSearchQueryLength {
		return ErrSearchTooLong
	}
	if !utf8.ValidString(q) {
		return ErrSearchInvalidUTF
	}
	return nil
}

// URLParamUUID rejects requests whose named chi URL parameters are not UUIDs.
// Must be mounted with r.With so the route has been matched.
func URLParamUUID(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range names {
				if err := ValidateID(chi.URLParam(r, name)); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_ID", name+": "+err.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SearchQuery rejects requests whose named query parameters are too long.
func SearchQuery(params ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query := r.URL.Query()
			for _, p := range params {
				if err := ValidateSearchQuery(strings.TrimSpace(query.Get(p))); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_QUERY", p+": "+err.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
