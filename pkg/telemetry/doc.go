// Package telemetry groups the observability packages of the call audit
// service.
//
// # Components
//
//   - logging: slog setup with secret redaction and request-scoped
//     correlation attributes
//   - metrics: Prometheus metrics for capture, dispatch, retention and HTTP
//   - health: liveness and readiness endpoints
//   - tracing: W3C Trace Context propagation and OTLP span export
package telemetry
