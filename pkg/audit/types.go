package audit

import (
	"context"
	"io"
	"time"
)

// Record is the audit trail for a single intercepted call. It captures who
// called, what ran, when and for how long, and how the call ended.
//
// Optional fields are pointers so that "absent" survives storage round trips
// and JSON encoding as null.
type Record struct {
	// Identity
	ID        int64     `json:"id"`         // Assigned by storage, 0 before persistence
	CreatedAt time.Time `json:"created_at"` // Set at build time, not at persist time

	// Request chain
	CorrelationID string  `json:"correlation_id"` // Never empty after finalization
	TraceID       *string `json:"trace_id"`       // Distributed tracing id, optional

	// Invocation
	Method  *string `json:"http_method"` // Transport verb, absent outside HTTP
	Path    *string `json:"path"`        // Request path, absent outside HTTP
	Handler string  `json:"handler"`     // "Component#operation [ACTION]"

	// Outcome
	HTTPStatus *int  `json:"http_status"`
	Success    bool  `json:"success"`
	DurationMs int64 `json:"duration_ms"`

	// Caller
	ClientIP  *string `json:"client_ip"`
	UserAgent *string `json:"user_agent"`
	UserID    *string `json:"user_id"`

	// Payloads (sanitized and truncated)
	QueryParams  *string `json:"query_params"`
	RequestBody  *string `json:"request_body"`
	ResponseBody *string `json:"response_body"`

	// Failure details, only set when Success is false
	ErrorType       *string `json:"error_type"`
	ErrorMessage    *string `json:"error_message"`
	ErrorStacktrace *string `json:"error_stacktrace"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.TraceID = cloneString(r.TraceID)
	c.Method = cloneString(r.Method)
	c.Path = cloneString(r.Path)
	c.ClientIP = cloneString(r.ClientIP)
	c.UserAgent = cloneString(r.UserAgent)
	c.UserID = cloneString(r.UserID)
	c.QueryParams = cloneString(r.QueryParams)
	c.RequestBody = cloneString(r.RequestBody)
	c.ResponseBody = cloneString(r.ResponseBody)
	c.ErrorType = cloneString(r.ErrorType)
	c.ErrorMessage = cloneString(r.ErrorMessage)
	c.ErrorStacktrace = cloneString(r.ErrorStacktrace)
	if r.HTTPStatus != nil {
		status := *r.HTTPStatus
		c.HTTPStatus = &status
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// FilterKind identifies which access pattern a Filter describes.
type FilterKind string

const (
	// FilterAll matches every record. Used for counting and export.
	FilterAll FilterKind = "all"

	// FilterByID matches a single record by its storage id.
	FilterByID FilterKind = "id"

	// FilterByDateRange matches records created within [From, To], inclusive.
	FilterByDateRange FilterKind = "date_range"

	// FilterByCorrelationID matches records sharing a correlation id.
	FilterByCorrelationID FilterKind = "correlation_id"

	// FilterByPath matches records for an exact request path.
	FilterByPath FilterKind = "path"

	// FilterBySuccess matches records by outcome.
	FilterBySuccess FilterKind = "success"

	// FilterPaginated lists records newest first using whole-page offsets.
	FilterPaginated FilterKind = "paginated"
)

// Filter selects audit records. Exactly one access pattern is active,
// identified by Kind. A nil *Filter is treated as FilterAll.
type Filter struct {
	Kind FilterKind `json:"kind"`

	ID            int64      `json:"id,omitempty"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Path          string     `json:"path,omitempty"`
	Success       *bool      `json:"success,omitempty"`

	// Pagination, only meaningful for FilterPaginated.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ByID returns a filter matching a single record id.
func ByID(id int64) *Filter {
	return &Filter{Kind: FilterByID, ID: id}
}

// ByDateRange returns a filter matching records created in [from, to].
func ByDateRange(from, to time.Time) *Filter {
	return &Filter{Kind: FilterByDateRange, From: &from, To: &to}
}

// ByCorrelationID returns a filter matching a correlation id.
func ByCorrelationID(correlationID string) *Filter {
	return &Filter{Kind: FilterByCorrelationID, CorrelationID: correlationID}
}

// ByPath returns a filter matching an exact request path.
func ByPath(path string) *Filter {
	return &Filter{Kind: FilterByPath, Path: path}
}

// BySuccess returns a filter matching records by outcome.
func BySuccess(success bool) *Filter {
	return &Filter{Kind: FilterBySuccess, Success: &success}
}

// Failures is shorthand for BySuccess(false).
func Failures() *Filter {
	return BySuccess(false)
}

// Paginated returns a newest-first listing filter.
func Paginated(limit, offset int) *Filter {
	return &Filter{Kind: FilterPaginated, Limit: limit, Offset: offset}
}

// Matches reports whether the record satisfies the filter. Pagination is not
// applied here; FilterPaginated matches every record.
func (f *Filter) Matches(r *Record) bool {
	if f == nil {
		return true
	}

	switch f.Kind {
	case FilterByID:
		return r.ID == f.ID
	case FilterByDateRange:
		if f.From != nil && r.CreatedAt.Before(*f.From) {
			return false
		}
		if f.To != nil && r.CreatedAt.After(*f.To) {
			return false
		}
		return true
	case FilterByCorrelationID:
		return r.CorrelationID == f.CorrelationID
	case FilterByPath:
		return r.Path != nil && *r.Path == f.Path
	case FilterBySuccess:
		return f.Success != nil && r.Success == *f.Success
	default:
		return true
	}
}

// Storage is the persistence port for audit records.
// Implementations must be safe for concurrent use; the capture pipeline does
// not coordinate writers.
//
// All list operations return records ordered by CreatedAt descending and
// return an empty slice, never a not-found error, when nothing matches.
type Storage interface {
	// Save persists a record, assigning its id (and CreatedAt if unset).
	// The returned record carries the assigned id.
	Save(ctx context.Context, record *Record) (*Record, error)

	// FindByID returns the record with the given id, or nil if it does not
	// exist. The caller decides whether absence is an error.
	FindByID(ctx context.Context, id int64) (*Record, error)

	// FindAll lists records newest first using whole-page semantics: the
	// page index is offset/limit, so offsets that are not a multiple of
	// limit snap down to the start of their page.
	FindAll(ctx context.Context, limit, offset int) ([]*Record, error)

	// FindByDateRange returns records created in [from, to].
	FindByDateRange(ctx context.Context, from, to time.Time) ([]*Record, error)

	// FindByCorrelationID returns all records sharing a correlation id.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]*Record, error)

	// FindByPath returns all records for an exact request path.
	FindByPath(ctx context.Context, path string) ([]*Record, error)

	// FindBySuccess returns all records with the given outcome.
	FindBySuccess(ctx context.Context, success bool) ([]*Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter *Filter) (int64, error)

	// Stream returns a channel of matching records for memory-efficient
	// export. Both channels are closed when the stream completes.
	//
	//	recordsCh, errCh, err := store.Stream(ctx, nil)
	//	if err != nil {
	//		return err
	//	}
	//	for record := range recordsCh {
	//		// ...
	//	}
	//	if err := <-errCh; err != nil {
	//		return err
	//	}
	Stream(ctx context.Context, filter *Filter) (<-chan *Record, <-chan error, error)

	// DeleteBefore removes records created strictly before cutoff.
	// Returns the number of records deleted.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteOldest removes the oldest records so that at most keep remain.
	// Returns the number of records deleted.
	DeleteOldest(ctx context.Context, keep int64) (int64, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the storage backend.
	Close() error
}

// Exporter writes audit records in some serialized format.
type Exporter interface {
	// Export writes the records to w.
	Export(ctx context.Context, records []*Record, w io.Writer) error

	// ExportStream writes records from a channel to w until the channel closes.
	ExportStream(ctx context.Context, recordsCh <-chan *Record, w io.Writer) error
}
