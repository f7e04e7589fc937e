// Package middleware provides the HTTP middleware of the call audit API.
//
// # Middleware Chain
//
// The router installs the middleware in this order (outermost first):
//
//	r.Use(middleware.Recovery)
//	r.Use(middleware.RequestContext)
//	r.Use(middleware.Logging)
//	r.Use(middleware.Metrics(collector))
//	r.Use(middleware.BodyLogging(opts))
//	r.Use(cors.Handler(corsOpts))
//
// # Middleware Types
//
// Request tracking:
//   - RequestContext: resolve correlation, trace, request and user ids and
//     store them for the logger and the capture interceptor
//   - Logging: log method, path, status and latency of every request
//   - BodyLogging: log sanitized request and response bodies
//   - Metrics: count requests and latencies per route pattern
//
// Resilience:
//   - Recovery: turn handler panics into a 500 error response
package middleware
