package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recoverer turns a panic into a JSON 500 and logs it with the caller, if
// Auth had already identified one. Development builds return the panic
// value in the body; production never does.
func Recoverer(logger *slog.Logger, isDevelopment bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				attrs := []slog.Attr{
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				}
				if rl, ok := r.Context().Value(requestLogKey).(*requestLog); ok {
					attrs = append(attrs, rl.attrs()...)
				}
				logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered", attrs...)

				message := "Internal server error"
				if isDevelopment {
					message = fmt.Sprintf("panic: %v", rvr)
				}
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", message)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
