package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RetentionMetrics tracks records removed by the retention pruner.
//
// Metrics:
//   - callaudit_audit_records_pruned_total: Deleted records by reason ("age", "count")
//   - callaudit_audit_prune_runs_total: Pruning passes by reason
type RetentionMetrics struct {
	prunedTotal *prometheus.CounterVec
	runsTotal   *prometheus.CounterVec
}

// NewRetentionMetrics creates and registers retention metrics with the provided registry.
func NewRetentionMetrics(opts Options, registry *prometheus.Registry) *RetentionMetrics {
	rm := &RetentionMetrics{
		prunedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "records_pruned_total",
				Help:      "Total number of records deleted by retention",
			},
			[]string{"reason"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "prune_runs_total",
				Help:      "Total number of retention passes that deleted records",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(rm.prunedTotal, rm.runsTotal)

	return rm
}

// RecordPruned records a pruning pass that deleted records.
func (rm *RetentionMetrics) RecordPruned(reason string, deleted int64) {
	rm.runsTotal.WithLabelValues(reason).Inc()
	rm.prunedTotal.WithLabelValues(reason).Add(float64(deleted))
}
