package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/callaudit/pkg/server/handlers"
)

// errPanic is reported to the client in place of the panic value.
type errPanic struct {
	value any
}

func (e errPanic) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Recovery recovers from panics in HTTP handlers and returns a 500 Internal
// Server Error in the API error format. The panic is logged with its stack
// trace; the response never carries internal details.
//
// Audited operations record the panic themselves before it reaches this
// middleware, so the call history already holds the failure.
//
// Example usage:
//
//	r.Use(middleware.Recovery)
func Recovery(next http.Handler) http.Handler {
	logger := slog.Default().With("component", "server.http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}

				logger.ErrorContext(r.Context(), "panic in handler",
					"error", v,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				handlers.WriteError(w, r, errPanic{value: v})
			}
		}()

		next.ServeHTTP(w, r)
	})
}
