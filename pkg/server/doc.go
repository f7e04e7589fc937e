// Package server provides the HTTP server of the call audit service.
//
// It ties together the call history API, the example API, health probes
// and the metrics endpoint behind one chi router, and manages the server
// lifecycle.
//
// # Basic Usage
//
//	router := server.NewRouter(cfg, server.Dependencies{
//	    CallHistory: handlers.NewCallHistoryHandler(querySvc, store),
//	    Examples:    example.NewHandler(exampleSvc),
//	    Health:      checker,
//	    Metrics:     collector,
//	})
//
//	srv := server.NewServer(&cfg.Server, router)
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled, then shuts down gracefully:
//  1. Stops accepting new connections
//  2. Waits for active requests to complete (up to shutdown_timeout)
//  3. Returns
//
// # Routes
//
//   - GET /api/v1/call-history                         list, ?limit=&offset=
//   - GET /api/v1/call-history/{id}                    single record
//   - GET /api/v1/call-history/date-range?from=&to=    ISO-8601 bounds, inclusive
//   - GET /api/v1/call-history/correlation/{id}        one request chain
//   - GET /api/v1/call-history/path?path=              exact path
//   - GET /api/v1/call-history/success?success=        by outcome
//   - GET /api/v1/call-history/failures                failed calls
//   - GET /api/v1/call-history/export?format=json|csv  streamed export
//   - /api/v1/examples                                 example API
//   - GET /health, /ready, /version                    probes
//   - GET /metrics                                     Prometheus, when enabled
//
// Every error response has the handlers.ErrorResponse shape, including
// unknown routes and unsupported methods.
package server
