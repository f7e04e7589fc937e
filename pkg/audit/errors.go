package audit

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel matched by NotFoundError via errors.Is.
var ErrNotFound = errors.New("audit record not found")

// CaptureError represents a failure to serialize or mask a captured payload.
// It never reaches the caller of an intercepted operation; the affected
// field is replaced with a placeholder instead.
type CaptureError struct {
	Field string // Record field being captured ("request_body", "query_params", ...)
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture error [field=%s]: %v", e.Field, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *CaptureError) Unwrap() error {
	return e.Cause
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(field string, cause error) *CaptureError {
	return &CaptureError{
		Field: field,
		Cause: cause,
	}
}

// DispatchError represents a failed persistence attempt for a dispatched record.
// Dispatch errors are logged and the record is dropped.
type DispatchError struct {
	Method     string // HTTP method of the audited call, if any
	Path       string // Request path of the audited call, if any
	DurationMs int64  // Duration of the audited call
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error [method=%s, path=%s, duration_ms=%d]: %v",
		e.Method, e.Path, e.DurationMs, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// NewDispatchError creates a DispatchError describing the given record.
func NewDispatchError(record *Record, cause error) *DispatchError {
	e := &DispatchError{Cause: cause}
	if record != nil {
		if record.Method != nil {
			e.Method = *record.Method
		}
		if record.Path != nil {
			e.Path = *record.Path
		}
		e.DurationMs = record.DurationMs
	}
	return e
}

// StorageError represents an error from the storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("save", "find_all", "delete", ...)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an invalid query or a failure while executing one.
type QueryError struct {
	Filter *Filter // Filter that failed
	Cause  error   // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Filter != nil {
		return fmt.Sprintf("query error [kind=%s]: %v", e.Filter.Kind, e.Cause)
	}
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(filter *Filter, cause error) *QueryError {
	return &QueryError{
		Filter: filter,
		Cause:  cause,
	}
}

// NotFoundError is returned by the query layer when a record looked up by id
// does not exist.
type NotFoundError struct {
	ID int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("call history record %d not found", e.ID)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(id int64) *NotFoundError {
	return &NotFoundError{ID: id}
}

// ConfigurationError reports misuse of the record builder, such as building a
// record whose outcome was never set.
type ConfigurationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "audit configuration error: " + e.Message
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

// StateError reports an illegal record state transition.
type StateError struct {
	From State
	To   State
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("illegal audit record transition %s -> %s", e.From, e.To)
}

// NewStateError creates a new StateError.
func NewStateError(from, to State) *StateError {
	return &StateError{From: from, To: to}
}

// RetentionError represents an error during retention policy enforcement.
type RetentionError struct {
	RetentionDays int   // Configured retention period
	Cause         error // Underlying error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}

// ExportError represents an error during audit history export.
type ExportError struct {
	Format      string // Export format ("json", "csv")
	RecordCount int    // Number of records written before the failure
	Cause       error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{
		Format:      format,
		RecordCount: recordCount,
		Cause:       cause,
	}
}
