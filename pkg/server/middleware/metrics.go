package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests that matched no route.
const UnmatchedRoute = "unmatched"

// HTTPRecorder receives one observation per HTTP request. The metrics
// Collector implements it.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// Metrics records request counts and latencies labelled by the chi route
// pattern, so /api/v1/call-history/42 and /api/v1/call-history/43 share
// one series.
//
// Example usage:
//
//	r.Use(middleware.Metrics(collector))
func Metrics(recorder HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)

			next.ServeHTTP(rw, r)

			route := UnmatchedRoute
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			recorder.RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
