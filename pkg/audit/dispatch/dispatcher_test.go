package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/callaudit/pkg/audit"
)

// stubStorage implements the Save half of audit.Storage. Other methods are
// not used by the dispatcher and panic through the nil embedded interface.
type stubStorage struct {
	audit.Storage

	mu      sync.Mutex
	saved   []audit.Record
	calls   atomic.Int64
	fail    func(record *audit.Record) error
	panicOn func(record *audit.Record) bool
	started chan struct{}
	release chan struct{}
}

func (s *stubStorage) Save(ctx context.Context, record *audit.Record) (*audit.Record, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if s.panicOn != nil && s.panicOn(record) {
		panic("driver blew up")
	}
	if s.fail != nil {
		if err := s.fail(record); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	saved := *record
	saved.ID = int64(len(s.saved) + 1)
	s.saved = append(s.saved, saved)
	return &saved, nil
}

func (s *stubStorage) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type recordingMetrics struct {
	mu            sync.Mutex
	dispatched    int
	persisted     int
	persistFailed int
	dropped       map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{dropped: make(map[string]int)}
}

func (m *recordingMetrics) RecordDispatched() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched++
}

func (m *recordingMetrics) RecordPersisted(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted++
}

func (m *recordingMetrics) RecordPersistFailed(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistFailed++
}

func (m *recordingMetrics) RecordDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped[reason]++
}

func (m *recordingMetrics) SetQueueDepth(int) {}

func testRecord(i int) audit.Record {
	path := fmt.Sprintf("/api/v1/items/%d", i)
	return audit.Record{
		CreatedAt:     time.Now(),
		CorrelationID: fmt.Sprintf("corr-%d", i),
		Handler:       "ItemService#Get [GET]",
		Path:          &path,
		Success:       true,
	}
}

func TestDispatcher_PersistsEachRecordOnce(t *testing.T) {
	store := &stubStorage{}
	metrics := newRecordingMetrics()
	d := NewDispatcher(store, &Config{BufferSize: 200, Workers: 4, WriteTimeout: time.Second}, metrics)

	const n = 100
	for i := 0; i < n; i++ {
		d.Write(testRecord(i))
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := store.calls.Load(); got != n {
		t.Errorf("Save called %d times, want %d", got, n)
	}
	if got := store.savedCount(); got != n {
		t.Errorf("saved %d records, want %d", got, n)
	}

	stats := d.Stats()
	if stats.Dispatched != n || stats.Persisted != n || stats.PersistFailed != 0 || stats.Dropped != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if metrics.dispatched != n || metrics.persisted != n {
		t.Errorf("metrics dispatched = %d, persisted = %d", metrics.dispatched, metrics.persisted)
	}

	seen := make(map[string]bool)
	for _, r := range store.saved {
		if seen[r.CorrelationID] {
			t.Fatalf("record %s saved twice", r.CorrelationID)
		}
		seen[r.CorrelationID] = true
	}
}

func TestDispatcher_SaveFailureIsIsolated(t *testing.T) {
	store := &stubStorage{
		fail: func(record *audit.Record) error {
			if record.CorrelationID == "corr-3" || record.CorrelationID == "corr-7" {
				return audit.NewStorageError("stub", "save", errors.New("disk full"))
			}
			return nil
		},
	}
	metrics := newRecordingMetrics()
	d := NewDispatcher(store, &Config{BufferSize: 50, Workers: 2, WriteTimeout: time.Second}, metrics)

	for i := 0; i < 10; i++ {
		d.Write(testRecord(i))
	}
	_ = d.Close()

	if got := store.calls.Load(); got != 10 {
		t.Errorf("Save called %d times, want 10 (no retries)", got)
	}
	if got := store.savedCount(); got != 8 {
		t.Errorf("saved %d records, want 8", got)
	}

	stats := d.Stats()
	if stats.PersistFailed != 2 || stats.Persisted != 8 {
		t.Errorf("Stats() = %+v", stats)
	}
	if metrics.persistFailed != 2 {
		t.Errorf("metrics persistFailed = %d, want 2", metrics.persistFailed)
	}
}

func TestDispatcher_SavePanicIsIsolated(t *testing.T) {
	store := &stubStorage{
		panicOn: func(record *audit.Record) bool {
			return record.CorrelationID == "corr-2" || record.CorrelationID == "corr-5"
		},
	}
	metrics := newRecordingMetrics()
	d := NewDispatcher(store, &Config{BufferSize: 50, Workers: 1, WriteTimeout: time.Second}, metrics)

	for i := 0; i < 8; i++ {
		d.Write(testRecord(i))
	}
	_ = d.Close()

	if got := store.calls.Load(); got != 8 {
		t.Errorf("Save called %d times, want 8", got)
	}
	if got := store.savedCount(); got != 6 {
		t.Errorf("saved %d records, want 6", got)
	}

	stats := d.Stats()
	if stats.PersistFailed != 2 || stats.Persisted != 6 {
		t.Errorf("Stats() = %+v", stats)
	}
	if metrics.persistFailed != 2 {
		t.Errorf("metrics persistFailed = %d, want 2", metrics.persistFailed)
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	store := &stubStorage{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	metrics := newRecordingMetrics()
	d := NewDispatcher(store, &Config{BufferSize: 1, Workers: 1, WriteTimeout: time.Second}, metrics)

	// First record occupies the only worker.
	d.Write(testRecord(0))
	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first record")
	}

	// Second fills the queue, the rest are dropped without blocking.
	start := time.Now()
	for i := 1; i <= 5; i++ {
		d.Write(testRecord(i))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Write blocked for %v", elapsed)
	}

	if got := d.Stats().Dropped; got != 4 {
		t.Errorf("Dropped = %d, want 4", got)
	}
	if metrics.dropped[DropQueueFull] != 4 {
		t.Errorf("queue_full drops = %d, want 4", metrics.dropped[DropQueueFull])
	}

	close(store.release)
	_ = d.Close()

	if got := store.savedCount(); got != 2 {
		t.Errorf("saved %d records, want 2", got)
	}
}

func TestDispatcher_WriteAfterClose(t *testing.T) {
	store := &stubStorage{}
	metrics := newRecordingMetrics()
	d := NewDispatcher(store, nil, metrics)

	_ = d.Close()
	d.Write(testRecord(1))

	if got := store.calls.Load(); got != 0 {
		t.Errorf("Save called %d times after Close", got)
	}
	if d.Stats().Dropped != 1 || metrics.dropped[DropClosed] != 1 {
		t.Errorf("Stats() = %+v, drops = %v", d.Stats(), metrics.dropped)
	}

	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestDispatcher_DrainsOnClose(t *testing.T) {
	store := &stubStorage{
		started: make(chan struct{}, 100),
		release: make(chan struct{}),
	}
	d := NewDispatcher(store, &Config{BufferSize: 100, Workers: 1, WriteTimeout: time.Second}, nil)

	for i := 0; i < 20; i++ {
		d.Write(testRecord(i))
	}

	closed := make(chan struct{})
	go func() {
		_ = d.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned before the queue drained")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after storage was released")
	}

	if got := store.savedCount(); got != 20 {
		t.Errorf("saved %d records, want 20", got)
	}
}

func TestDispatcher_ConcurrentWriters(t *testing.T) {
	store := &stubStorage{}
	d := NewDispatcher(store, &Config{BufferSize: 1000, Workers: 3, WriteTimeout: time.Second}, nil)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				d.Write(testRecord(g*100 + i))
			}
		}(g)
	}
	wg.Wait()
	_ = d.Close()

	stats := d.Stats()
	if stats.Dispatched+stats.Dropped != 500 {
		t.Errorf("dispatched %d + dropped %d != 500", stats.Dispatched, stats.Dropped)
	}
	if uint64(store.savedCount()) != stats.Dispatched {
		t.Errorf("saved %d, dispatched %d", store.savedCount(), stats.Dispatched)
	}
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(&stubStorage{}, &Config{}, nil)
	defer d.Close()

	if d.config.BufferSize != 1000 || d.config.Workers != 2 || d.config.WriteTimeout != 5*time.Second {
		t.Errorf("config = %+v", d.config)
	}
}
