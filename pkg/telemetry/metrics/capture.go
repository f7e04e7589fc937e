package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CaptureMetrics tracks intercepted calls.
//
// Metrics:
//   - callaudit_audit_calls_total: Intercepted calls by handler and status
//   - callaudit_audit_call_duration_seconds: Call duration histogram
//   - callaudit_audit_capture_errors_total: Fields that could not be captured
type CaptureMetrics struct {
	callsTotal    *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	captureErrors *prometheus.CounterVec
}

// NewCaptureMetrics creates and registers capture metrics with the provided registry.
func NewCaptureMetrics(opts Options, registry *prometheus.Registry) *CaptureMetrics {
	cm := &CaptureMetrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "calls_total",
				Help:      "Total number of intercepted calls",
			},
			[]string{"handler", "status"},
		),

		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "call_duration_seconds",
				Help:      "Duration of intercepted calls in seconds",
				Buckets:   opts.DurationBuckets,
			},
			[]string{"handler"},
		),

		captureErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: opts.Namespace,
				Subsystem: opts.Subsystem,
				Name:      "capture_errors_total",
				Help:      "Total number of call fields that failed to serialize",
			},
			[]string{"field"},
		),
	}

	registry.MustRegister(
		cm.callsTotal,
		cm.callDuration,
		cm.captureErrors,
	)

	return cm
}

// RecordCall records a finished call.
func (cm *CaptureMetrics) RecordCall(handler string, success bool, duration time.Duration) {
	cm.callsTotal.WithLabelValues(handler, statusLabel(success)).Inc()
	cm.callDuration.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordCaptureError records a serialization failure for field
// ("request", "response" or "error").
func (cm *CaptureMetrics) RecordCaptureError(field string) {
	cm.captureErrors.WithLabelValues(field).Inc()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
