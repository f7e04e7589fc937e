package metrics

import (
	"sync"
	"time"

	"mercator-hq/callaudit/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// DefaultMaxHandlers bounds the number of distinct handler label values.
const DefaultMaxHandlers = 500

// OtherLabel replaces label values past the cardinality limit.
const OtherLabel = "other"

// Options configures metric naming and histogram layout.
type Options struct {
	Enabled         bool
	Namespace       string
	Subsystem       string
	DurationBuckets []float64

	// MaxHandlers caps distinct handler labels; extra handlers are
	// aggregated into OtherLabel.
	MaxHandlers int

	// ProcessCollectors registers the Go runtime and process collectors.
	ProcessCollectors bool
}

// OptionsFromConfig builds Options from the telemetry configuration.
func OptionsFromConfig(cfg config.MetricsConfig) Options {
	return Options{
		Enabled:           cfg.Enabled,
		Namespace:         cfg.Namespace,
		Subsystem:         cfg.Subsystem,
		ProcessCollectors: true,
	}
}

// Collector owns every Prometheus metric of the audit pipeline. It satisfies
// the capture.Observer, dispatch.Metrics and retention.Metrics interfaces so
// one instance can be handed to each component.
type Collector struct {
	opts     Options
	registry *prometheus.Registry

	captureMetrics   *CaptureMetrics
	dispatchMetrics  *DispatchMetrics
	retentionMetrics *RetentionMetrics
	httpMetrics      *HTTPMetrics

	handlers *CardinalityLimiter
}

// NewCollector creates a metrics collector. If registry is nil a fresh
// registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(metrics.OptionsFromConfig(cfg.Telemetry.Metrics), nil)
//	interceptor.SetObserver(collector)
func NewCollector(opts Options, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if opts.Namespace == "" {
		opts.Namespace = config.DefaultMetricsNamespace
	}
	if opts.Subsystem == "" {
		opts.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(opts.DurationBuckets) == 0 {
		// Service calls are expected to finish well under a second.
		opts.DurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	}
	if opts.MaxHandlers <= 0 {
		opts.MaxHandlers = DefaultMaxHandlers
	}

	c := &Collector{
		opts:     opts,
		registry: registry,
		handlers: NewCardinalityLimiter(opts.MaxHandlers),
	}

	c.captureMetrics = NewCaptureMetrics(opts, registry)
	c.dispatchMetrics = NewDispatchMetrics(opts, registry)
	c.retentionMetrics = NewRetentionMetrics(opts, registry)
	c.httpMetrics = NewHTTPMetrics(opts, registry)

	if opts.ProcessCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return c
}

// ObserveCall records an intercepted call.
func (c *Collector) ObserveCall(handler string, success bool, duration time.Duration) {
	if !c.opts.Enabled {
		return
	}
	if !c.handlers.Allow(handler) {
		handler = OtherLabel
	}
	c.captureMetrics.RecordCall(handler, success, duration)
}

// ObserveCaptureError records a field that could not be serialized.
func (c *Collector) ObserveCaptureError(field string) {
	if !c.opts.Enabled {
		return
	}
	c.captureMetrics.RecordCaptureError(field)
}

// RecordDispatched records a record accepted by the dispatcher.
func (c *Collector) RecordDispatched() {
	if !c.opts.Enabled {
		return
	}
	c.dispatchMetrics.RecordDispatched()
}

// RecordPersisted records a successful storage write.
func (c *Collector) RecordPersisted(duration time.Duration) {
	if !c.opts.Enabled {
		return
	}
	c.dispatchMetrics.RecordPersist(true, duration)
}

// RecordPersistFailed records a failed storage write.
func (c *Collector) RecordPersistFailed(duration time.Duration) {
	if !c.opts.Enabled {
		return
	}
	c.dispatchMetrics.RecordPersist(false, duration)
}

// RecordDropped records a record discarded before persistence.
func (c *Collector) RecordDropped(reason string) {
	if !c.opts.Enabled {
		return
	}
	c.dispatchMetrics.RecordDropped(reason)
}

// SetQueueDepth reports the dispatcher queue depth.
func (c *Collector) SetQueueDepth(depth int) {
	if !c.opts.Enabled {
		return
	}
	c.dispatchMetrics.SetQueueDepth(depth)
}

// RecordPruned records records deleted by retention.
func (c *Collector) RecordPruned(reason string, deleted int64) {
	if !c.opts.Enabled {
		return
	}
	c.retentionMetrics.RecordPruned(reason, deleted)
}

// RecordHTTPRequest records a request served by the HTTP API.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.opts.Enabled {
		return
	}
	c.httpMetrics.RecordRequest(method, route, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Values already seen
// are always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
