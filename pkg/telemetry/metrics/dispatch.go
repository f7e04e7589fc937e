package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics tracks the asynchronous persistence pipeline.
//
// Metrics:
//   - callaudit_audit_records_dispatched_total: Records accepted by the dispatcher
//   - callaudit_audit_records_persisted_total: Records written by result
//   - callaudit_audit_records_dropped_total: Records discarded by reason
//   - callaudit_audit_persist_duration_seconds: Storage write latency
//   - callaudit_audit_queue_depth: Records waiting to be written
type DispatchMetrics struct {
	dispatchedTotal prometheus.Counter
	persistedTotal  *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	persistDuration prometheus.Histogram
	queueDepth      prometheus.Gauge
}

// NewDispatchMetrics creates and registers dispatch metrics with the provided registry.
func NewDispatchMetrics(opts Options, registry *prometheus.Registry) *DispatchMetrics {
	dm := &DispatchMetrics{
		dispatchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "records_dispatched_total",
				Help:      "Total number of records accepted for persistence",
			},
		),

		persistedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "records_persisted_total",
				Help:      "Total number of persistence attempts by result",
			},
			[]string{"result"},
		),

		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "records_dropped_total",
				Help:      "Total number of records discarded before persistence",
			},
			[]string{"reason"},
		),

		persistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "persist_duration_seconds",
				Help:      "Duration of storage writes in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "queue_depth",
				Help:      "Number of records waiting to be persisted",
			},
		),
	}

	registry.MustRegister(
		dm.dispatchedTotal,
		dm.persistedTotal,
		dm.droppedTotal,
		dm.persistDuration,
		dm.queueDepth,
	)

	return dm
}

// RecordDispatched increments the accepted record counter.
func (dm *DispatchMetrics) RecordDispatched() {
	dm.dispatchedTotal.Inc()
}

// RecordPersist records a storage write and its outcome.
func (dm *DispatchMetrics) RecordPersist(ok bool, duration time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	dm.persistedTotal.WithLabelValues(result).Inc()
	dm.persistDuration.Observe(duration.Seconds())
}

// RecordDropped records a discarded record.
func (dm *DispatchMetrics) RecordDropped(reason string) {
	dm.droppedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth updates the queue depth gauge.
func (dm *DispatchMetrics) SetQueueDepth(depth int) {
	dm.queueDepth.Set(float64(depth))
}
