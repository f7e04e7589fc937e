package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/callaudit/pkg/audit/capture"
)

// Logging logs every HTTP request with structured logging. It records
// method, path, status code, latency and caller metadata. Correlation,
// trace and request ids are attached by the context-aware log handler.
//
// Log format (JSON):
//
//	{
//	  "time": "2026-10-15T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "component": "server.http",
//	  "method": "POST",
//	  "path": "/api/v1/examples",
//	  "status": 201,
//	  "latency_ms": 4,
//	  "client_ip": "192.168.1.100",
//	  "user_agent": "curl/8.5.0",
//	  "correlation_id": "7f1c9a1e-..."
//	}
//
// Example usage:
//
//	r.Use(middleware.Logging)
func Logging(next http.Handler) http.Handler {
	logger := slog.Default().With("component", "server.http")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ctx := r.Context()
		rw := wrap(w)

		logger.DebugContext(ctx, "request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		)

		next.ServeHTTP(rw, r)

		latency := time.Since(startTime)

		logLevel := slog.LevelInfo
		if rw.statusCode >= 500 {
			logLevel = slog.LevelError
		} else if rw.statusCode >= 400 {
			logLevel = slog.LevelWarn
		}

		logger.Log(ctx, logLevel, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"latency_ms", latency.Milliseconds(),
			"client_ip", capture.ClientIP(r),
			"user_agent", r.UserAgent(),
		)
	})
}
