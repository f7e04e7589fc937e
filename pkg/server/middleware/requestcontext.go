package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"mercator-hq/callaudit/pkg/audit/capture"
	"mercator-hq/callaudit/pkg/telemetry/logging"
	"mercator-hq/callaudit/pkg/telemetry/tracing"
)

const (
	// RequestIDHeader is the HTTP header for request ID.
	RequestIDHeader = "X-Request-ID"
)

// RequestContext prepares the request context for audited handlers. It
// resolves the request chain identifiers and stores them where the logger
// and the capture interceptor look for them:
//
//   - correlation id: X-Correlation-ID, else a new UUID
//   - trace id: X-Trace-ID, else the W3C traceparent trace id
//   - request id: X-Request-ID, else a new UUID
//   - user id: X-User-ID, when present
//
// The correlation and request ids are echoed in the response headers so
// callers can quote them when looking up call history.
//
// Example usage:
//
//	r.Use(middleware.RequestContext)
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := capture.NewRequestInfo(r)

		if info.CorrelationID == "" {
			info.CorrelationID = capture.NewCorrelationID()
		}
		if info.TraceID == "" {
			info.TraceID = tracing.TraceIDFromHeaders(r.Header)
		}

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := tracing.Extract(r.Context(), r.Header)
		ctx = logging.WithRequestID(ctx, requestID)
		ctx = logging.WithCorrelationID(ctx, info.CorrelationID)
		if info.TraceID != "" {
			ctx = logging.WithTraceID(ctx, info.TraceID)
		}
		if info.UserID != "" {
			ctx = logging.WithUserID(ctx, info.UserID)
		}
		ctx = capture.WithRequestInfo(ctx, info)

		w.Header().Set(capture.HeaderCorrelationID, info.CorrelationID)
		w.Header().Set(RequestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
