package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/telemetry/logging"
)

// ErrorResponse is the body of every non-2xx API response.
//
// Example:
//
//	{
//	  "timestamp": "2026-10-15T10:30:00Z",
//	  "status": 404,
//	  "error": "Not Found",
//	  "message": "call history record 42 not found",
//	  "path": "/api/v1/call-history/42",
//	  "traceId": "7f1c9a1e-6d0b-4c55-9a55-3c2f1e8d2b10"
//	}
type ErrorResponse struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	TraceID          string            `json:"traceId"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

// BadRequestError reports an invalid request parameter.
type BadRequestError struct {
	Parameter string
	Message   string
}

// Error implements the error interface.
func (e *BadRequestError) Error() string {
	if e.Parameter == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid parameter %q: %s", e.Parameter, e.Message)
}

// StatusCode implements the status coder interface.
func (e *BadRequestError) StatusCode() int {
	return http.StatusBadRequest
}

// NewBadRequestError creates a new BadRequestError.
func NewBadRequestError(parameter, format string, args ...any) *BadRequestError {
	return &BadRequestError{Parameter: parameter, Message: fmt.Sprintf(format, args...)}
}

// StatusError is an error with an explicit HTTP status, used for routing
// failures that have no domain error behind them.
type StatusError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return e.Message
}

// StatusCode implements the status coder interface.
func (e *StatusError) StatusCode() int {
	return e.Code
}

// NewStatusError creates a new StatusError.
func NewStatusError(code int, format string, args ...any) *StatusError {
	return &StatusError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError carries per-field validation failures of a request body.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

// StatusCode implements the status coder interface.
func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// StatusFor maps an error to an HTTP status code:
//
//   - audit.ErrNotFound: 404
//   - errors exposing StatusCode() int: that code
//   - *audit.QueryError: 400
//   - anything else: 500
func StatusFor(err error) int {
	if errors.Is(err, audit.ErrNotFound) {
		return http.StatusNotFound
	}

	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		if code := coded.StatusCode(); code >= 400 && code < 600 {
			return code
		}
	}

	var queryErr *audit.QueryError
	if errors.As(err, &queryErr) {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorResponse. Server errors are logged with
// their cause and reported to the client with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)

	resp := ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   err.Error(),
		Path:      r.URL.Path,
		TraceID:   traceIDFor(r),
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		resp.Message = "validation failed"
		resp.ValidationErrors = verr.Fields
	}

	logger := slog.Default().With("component", "server.handlers")
	if status >= http.StatusInternalServerError {
		resp.Message = "internal server error"
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	} else {
		logger.WarnContext(r.Context(), "request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	WriteJSON(w, status, resp)
}

// traceIDFor returns an identifier the caller can quote when reporting the
// failure: the trace id, else the correlation id, else a fresh UUID.
func traceIDFor(r *http.Request) string {
	if id := logging.GetTraceID(r.Context()); id != "" {
		return id
	}
	if id := logging.GetCorrelationID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}

// WriteJSON writes body as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
