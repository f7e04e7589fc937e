// Package health provides liveness and readiness endpoints.
//
// # Endpoints
//
//   - /health: Liveness probe, 200 while the process is running
//   - /ready: Readiness probe, runs every registered check
//   - /version: Build information
//
// # Usage
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("storage", health.StorageCheck(store))
//	checker.RegisterCheck("dispatcher", health.QueueCheck(
//	    func() int { return dispatcher.Stats().QueueDepth }, cfg.Dispatch.BufferSize))
//
//	r.Get("/health", checker.LivenessHandler())
//	r.Get("/ready", checker.ReadinessHandler())
//
// Checks run concurrently, each bounded by the checker timeout. A check
// that does not return in time is reported unhealthy with
// "health check timeout".
package health
