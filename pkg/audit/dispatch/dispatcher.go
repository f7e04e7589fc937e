package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/callaudit/pkg/audit"
)

// Config contains configuration for the dispatcher.
type Config struct {
	// BufferSize is the capacity of the queue between callers and workers.
	// Records arriving while the queue is full are dropped.
	// Default: 1000
	BufferSize int

	// Workers is the number of goroutines persisting records.
	// Default: 2
	Workers int

	// WriteTimeout bounds each Storage.Save call.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferSize:   1000,
		Workers:      2,
		WriteTimeout: 5 * time.Second,
	}
}

// Metrics receives dispatcher events. Optional.
type Metrics interface {
	RecordDispatched()
	RecordPersisted(duration time.Duration)
	RecordPersistFailed(duration time.Duration)
	RecordDropped(reason string)
	SetQueueDepth(depth int)
}

// Drop reasons reported to Metrics.
const (
	DropQueueFull = "queue_full"
	DropClosed    = "closed"
)

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	Dispatched    uint64 `json:"dispatched"`
	Persisted     uint64 `json:"persisted"`
	PersistFailed uint64 `json:"persist_failed"`
	Dropped       uint64 `json:"dropped"`
	QueueDepth    int    `json:"queue_depth"`
}

// Dispatcher persists audit records in the background so that auditing adds
// no latency and no failure modes to the audited call.
//
// Write never blocks and never returns an error. Each accepted record is
// saved exactly once; a failed save is logged and the record is dropped.
// Records still queued when the process dies are lost; Close drains the
// queue on a graceful shutdown.
type Dispatcher struct {
	storage audit.Storage
	config  *Config
	metrics Metrics
	logger  *slog.Logger

	queue chan audit.Record
	done  chan struct{}
	wg    sync.WaitGroup

	// mu orders Write against Close so nothing is enqueued after the
	// workers finish draining.
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once

	dispatched    atomic.Uint64
	persisted     atomic.Uint64
	persistFailed atomic.Uint64
	dropped       atomic.Uint64
}

// NewDispatcher creates a dispatcher saving to storage and starts its
// workers. metrics may be nil.
func NewDispatcher(storage audit.Storage, config *Config, metrics Metrics) *Dispatcher {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	d := &Dispatcher{
		storage: storage,
		config:  config,
		metrics: metrics,
		logger:  slog.Default().With("component", "audit.dispatch"),
		queue:   make(chan audit.Record, config.BufferSize),
		done:    make(chan struct{}),
	}

	for i := 0; i < config.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}

	d.logger.Info("audit dispatcher initialized",
		"buffer_size", config.BufferSize,
		"workers", config.Workers,
		"write_timeout", config.WriteTimeout,
	)

	return d
}

// Write enqueues a record for persistence and returns immediately. The
// record is dropped with a warning when the queue is full or the dispatcher
// is closed.
func (d *Dispatcher) Write(record audit.Record) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(&record, DropClosed)
		return
	}

	select {
	case d.queue <- record:
		d.dispatched.Add(1)
		if d.metrics != nil {
			d.metrics.RecordDispatched()
			d.metrics.SetQueueDepth(len(d.queue))
		}
	default:
		d.drop(&record, DropQueueFull)
	}
}

func (d *Dispatcher) drop(record *audit.Record, reason string) {
	d.dropped.Add(1)
	if d.metrics != nil {
		d.metrics.RecordDropped(reason)
	}
	d.logger.Warn("dropping call history record",
		"reason", reason,
		"handler", record.Handler,
		"correlation_id", record.CorrelationID,
		"queue_capacity", d.config.BufferSize,
	)
}

// Close stops accepting records, drains the queue and waits for the workers.
// Safe to call more than once.
func (d *Dispatcher) Close() error {
	d.closeOnce.Do(func() {
		d.logger.Info("shutting down audit dispatcher", "pending_count", len(d.queue))

		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()

		d.wg.Wait()
		d.logger.Info("audit dispatcher shut down complete")
	})
	return nil
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched:    d.dispatched.Load(),
		Persisted:     d.persisted.Load(),
		PersistFailed: d.persistFailed.Load(),
		Dropped:       d.dropped.Load(),
		QueueDepth:    len(d.queue),
	}
}

// failed accounts for a record that could not be saved.
func (d *Dispatcher) failed(record *audit.Record, duration time.Duration, err error) {
	d.persistFailed.Add(1)
	if d.metrics != nil {
		d.metrics.RecordPersistFailed(duration)
	}
	d.logger.Error("failed to persist call history",
		"method", deref(record.Method),
		"path", deref(record.Path),
		"duration_ms", record.DurationMs,
		"correlation_id", record.CorrelationID,
		"error", audit.NewDispatchError(record, err),
	)
}

// worker drains the queue until Close, then drains what is left.
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case record := <-d.queue:
			d.persist(record)

		case <-d.done:
			for {
				select {
				case record := <-d.queue:
					d.persist(record)
				default:
					return
				}
			}
		}
	}
}

// persist saves a single record. Failures, including a panicking Save, are
// logged and never retried.
func (d *Dispatcher) persist(record audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.WriteTimeout)
	defer cancel()

	if d.metrics != nil {
		d.metrics.SetQueueDepth(len(d.queue))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.failed(&record, time.Since(start), fmt.Errorf("save panicked: %v", r))
		}
	}()

	saved, err := d.storage.Save(ctx, &record)
	duration := time.Since(start)

	if err != nil {
		d.failed(&record, duration, err)
		return
	}

	d.persisted.Add(1)
	if d.metrics != nil {
		d.metrics.RecordPersisted(duration)
	}

	id := int64(0)
	if saved != nil {
		id = saved.ID
	}
	d.logger.Debug("call history persisted",
		"id", id,
		"handler", record.Handler,
		"correlation_id", record.CorrelationID,
		"write_ms", duration.Milliseconds(),
	)

	if duration > d.config.WriteTimeout/2 {
		d.logger.Warn("slow call history write",
			"id", id,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (d.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
