package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"mercator-hq/callaudit/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map.
// Records are copied on the way in and on the way out. Intended for tests
// and for running without a database; contents are lost on exit.
type MemoryStorage struct {
	records map[int64]*audit.Record
	nextID  int64
	closed  bool
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[int64]*audit.Record),
	}
}

// Save persists a copy of record, assigning the next id.
func (s *MemoryStorage) Save(ctx context.Context, record *audit.Record) (*audit.Record, error) {
	if record == nil {
		return nil, audit.NewStorageError("memory", "save", errors.New("nil record"))
	}
	if err := ctx.Err(); err != nil {
		return nil, audit.NewStorageError("memory", "save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, audit.NewStorageError("memory", "save", errStorageClosed)
	}

	s.nextID++
	stored := record.Clone()
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.records[stored.ID] = stored

	return stored.Clone(), nil
}

// FindByID returns the record with the given id, or nil.
func (s *MemoryStorage) FindByID(ctx context.Context, id int64) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.records[id]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

// FindAll lists records newest first using whole-page semantics.
func (s *MemoryStorage) FindAll(ctx context.Context, limit, offset int) ([]*audit.Record, error) {
	filter := audit.Paginated(limit, offset)
	start, err := audit.PageStart(limit, offset)
	if err != nil {
		return nil, audit.NewQueryError(filter, err)
	}

	return paginate(s.list(nil), start, limit), nil
}

// FindByDateRange returns records created in [from, to].
func (s *MemoryStorage) FindByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Record, error) {
	return s.list(audit.ByDateRange(from, to)), nil
}

// FindByCorrelationID returns all records sharing a correlation id.
func (s *MemoryStorage) FindByCorrelationID(ctx context.Context, correlationID string) ([]*audit.Record, error) {
	return s.list(audit.ByCorrelationID(correlationID)), nil
}

// FindByPath returns all records for an exact request path.
func (s *MemoryStorage) FindByPath(ctx context.Context, path string) ([]*audit.Record, error) {
	return s.list(audit.ByPath(path)), nil
}

// FindBySuccess returns all records with the given outcome.
func (s *MemoryStorage) FindBySuccess(ctx context.Context, success bool) ([]*audit.Record, error) {
	return s.list(audit.BySuccess(success)), nil
}

// Count returns the number of records matching filter.
func (s *MemoryStorage) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, r := range s.records {
		if filter.Matches(r) {
			count++
		}
	}
	return count, nil
}

// Stream returns a channel of matching records, newest first.
// The channels will be closed when the stream completes or errors.
func (s *MemoryStorage) Stream(ctx context.Context, filter *audit.Filter) (<-chan *audit.Record, <-chan error, error) {
	records := s.list(filter)
	if filter != nil && filter.Kind == audit.FilterPaginated {
		start, err := audit.PageStart(filter.Limit, filter.Offset)
		if err != nil {
			return nil, nil, audit.NewQueryError(filter, err)
		}
		records = paginate(records, start, filter.Limit)
	}

	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		for _, record := range records {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}
	}()

	return recordsCh, errCh, nil
}

// DeleteBefore removes records created strictly before cutoff.
func (s *MemoryStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, r := range s.records {
		if r.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// DeleteOldest removes the oldest records so that at most keep remain.
func (s *MemoryStorage) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		return 0, audit.NewStorageError("memory", "delete_oldest", errors.New("keep must be non-negative"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	excess := int64(len(s.records)) - keep
	if excess <= 0 {
		return 0, nil
	}

	all := make([]*audit.Record, 0, len(s.records))
	for _, r := range s.records {
		all = append(all, r)
	}
	sortNewestFirst(all)

	// Oldest records sit at the end.
	for _, r := range all[len(all)-int(excess):] {
		delete(s.records, r.ID)
	}
	return excess, nil
}

// Ping reports whether the storage is still open.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return audit.NewStorageError("memory", "ping", errStorageClosed)
	}
	return nil
}

// Close marks the storage closed. Stored records remain readable.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// list returns copies of the records matching filter, newest first.
func (s *MemoryStorage) list(filter *audit.Filter) []*audit.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*audit.Record{}
	for _, r := range s.records {
		if filter.Matches(r) {
			results = append(results, r.Clone())
		}
	}
	sortNewestFirst(results)
	return results
}

// sortNewestFirst orders by CreatedAt descending, then id descending.
func sortNewestFirst(records []*audit.Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

func paginate(records []*audit.Record, start, limit int) []*audit.Record {
	if start >= len(records) {
		return []*audit.Record{}
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

var errStorageClosed = errors.New("storage closed")
