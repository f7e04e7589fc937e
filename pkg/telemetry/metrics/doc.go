// Package metrics provides Prometheus metrics for the call audit pipeline.
//
// # Metrics Categories
//
//   - Capture: intercepted calls by handler and outcome, call latency,
//     fields that failed to serialize
//   - Dispatch: accepted, persisted, failed and dropped records, write
//     latency and queue depth
//   - Retention: records deleted by age and by count
//   - HTTP: API requests by route and status code
//
// # Usage
//
//	collector := metrics.NewCollector(metrics.OptionsFromConfig(cfg.Telemetry.Metrics), nil)
//
//	interceptor.SetObserver(collector)                  // capture.Observer
//	dispatcher := dispatch.NewDispatcher(store, dcfg, collector) // dispatch.Metrics
//	pruner := retention.NewPruner(store, rcfg, collector)        // retention.Metrics
//
//	router.Handle("/metrics", collector.Handler())
//
// # Cardinality Management
//
// Handler names come from application code and are bounded by
// Options.MaxHandlers; handlers past the limit are reported as "other".
// HTTP metrics are labelled with the matched route pattern rather than the
// raw path.
package metrics
