package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glansab/backoffice/internal/model"
)

// responseWriter captures the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// requestLog collects caller details that are only known once Auth has run
// further down the chain.
type requestLog struct {
	mu             sync.Mutex
	userID         string
	organisationID string
	role           model.Role
}

const requestLogKey contextKey = "request_log"

// annotateRequestLog records the authenticated caller on the request log
// entry, if the Logger middleware is installed.
func annotateRequestLog(ctx context.Context, s *model.Session) {
	rl, ok := ctx.Value(requestLogKey).(*requestLog)
	if !ok || s == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.userID = s.UserID
	rl.organisationID = s.OrganisationID
	rl.role = s.Role
}

func (rl *requestLog) attrs() []slog.Attr {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.userID == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("user_id", rl.userID),
		slog.String("organisation_id", rl.organisationID),
		slog.String("role", string(rl.role)),
	}
}

// Logger returns a middleware that writes one structured line per request.
// Headers are never logged; session tokens travel in Authorization.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rl := &requestLog{}
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r.WithContext(context.WithValue(r.Context(), requestLogKey, rl)))

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", wrapped.status),
				slog.Int("bytes", wrapped.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			}
			if traceID := GetTraceID(r.Context()); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}
			// Route pattern keeps ids out of the aggregation key
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, slog.String("route", pattern))
				}
			}
			attrs = append(attrs, rl.attrs()...)

			level := slog.LevelInfo
			switch {
			case wrapped.status >= 500:
				level = slog.LevelError
			case wrapped.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}
