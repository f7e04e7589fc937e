package query

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"mercator-hq/callaudit/pkg/audit"
)

// Limits bounds the page size of listings.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// Service is the read side of the call history. It validates requests,
// applies defaults and converts storage misses into NotFoundError.
type Service struct {
	storage audit.Storage
	limits  atomic.Pointer[Limits]
	logger  *slog.Logger
}

// NewService creates a query service over storage. Zero limits take the
// package defaults.
func NewService(storage audit.Storage, limits Limits) *Service {
	s := &Service{
		storage: storage,
		logger:  slog.Default().With("component", "audit.query"),
	}
	s.SetLimits(limits)
	return s
}

// SetLimits replaces the page size limits. Safe to call concurrently with
// queries.
func (s *Service) SetLimits(limits Limits) {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = DefaultLimit
	}
	if limits.MaxLimit <= 0 {
		limits.MaxLimit = MaxLimit
	}
	if limits.DefaultLimit > limits.MaxLimit {
		limits.DefaultLimit = limits.MaxLimit
	}
	s.limits.Store(&limits)
}

// Limits returns the limits in effect.
func (s *Service) Limits() Limits {
	return *s.limits.Load()
}

// GetByID returns a single record or a *audit.NotFoundError.
func (s *Service) GetByID(ctx context.Context, id int64) (*audit.Record, error) {
	if err := Validate(audit.ByID(id), s.Limits().MaxLimit); err != nil {
		return nil, err
	}

	record, err := s.storage.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, audit.NewNotFoundError(id)
	}
	return record, nil
}

// List returns one page of records, newest first. A non-positive limit
// falls back to the default page size.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*audit.Record, error) {
	limits := s.Limits()
	filter := audit.Paginated(limit, offset)
	ApplyDefaults(filter, limits.DefaultLimit)

	if err := Validate(filter, limits.MaxLimit); err != nil {
		return nil, err
	}

	records, err := s.storage.FindAll(ctx, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("call history listed",
		"limit", filter.Limit,
		"offset", filter.Offset,
		"returned", len(records),
	)
	return records, nil
}

// ByDateRange returns records created in [from, to].
func (s *Service) ByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Record, error) {
	if err := Validate(audit.ByDateRange(from, to), 0); err != nil {
		return nil, err
	}
	return s.storage.FindByDateRange(ctx, from, to)
}

// ByCorrelationID returns every record of one logical request chain.
func (s *Service) ByCorrelationID(ctx context.Context, correlationID string) ([]*audit.Record, error) {
	if err := Validate(audit.ByCorrelationID(correlationID), 0); err != nil {
		return nil, err
	}
	return s.storage.FindByCorrelationID(ctx, correlationID)
}

// ByPath returns records for an exact request path.
func (s *Service) ByPath(ctx context.Context, path string) ([]*audit.Record, error) {
	if err := Validate(audit.ByPath(path), 0); err != nil {
		return nil, err
	}
	return s.storage.FindByPath(ctx, path)
}

// BySuccess returns records with the given outcome.
func (s *Service) BySuccess(ctx context.Context, success bool) ([]*audit.Record, error) {
	return s.storage.FindBySuccess(ctx, success)
}

// Failures returns every failed call. Equivalent to BySuccess(false).
func (s *Service) Failures(ctx context.Context) ([]*audit.Record, error) {
	return s.BySuccess(ctx, false)
}

// Count returns how many records match filter.
func (s *Service) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	if err := Validate(filter, 0); err != nil {
		return 0, err
	}
	return s.storage.Count(ctx, filter)
}
