package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/sanitize"
)

// Builder assembles the audit record for a single call. It is owned by the
// goroutine running the call and is not safe for concurrent use.
//
// The builder moves STARTED -> {SUCCESS, FAILURE} -> DISPATCHED. Identity,
// invocation, caller and request payload may only be set while STARTED;
// the outcome is set exactly once; Build may run exactly once.
type Builder struct {
	state       audit.State
	start       time.Time
	record      audit.Record
	captureErrs []error
}

// NewBuilder starts a record whose CreatedAt and duration are both measured
// from start.
func NewBuilder(start time.Time) *Builder {
	return &Builder{
		state: audit.StateStarted,
		start: start,
		record: audit.Record{
			CreatedAt: start,
		},
	}
}

// State returns the builder's current state.
func (b *Builder) State() audit.State {
	return b.state
}

// WithIdentity sets the correlation and trace ids. An empty correlation id
// is replaced with a generated one at Build; an empty trace id stays absent.
func (b *Builder) WithIdentity(correlationID, traceID string) error {
	if err := b.requireStarted(); err != nil {
		return err
	}
	b.record.CorrelationID = correlationID
	b.record.TraceID = optional(traceID)
	return nil
}

// WithInvocation sets which operation ran. Method and path are optional and
// stay absent when empty.
func (b *Builder) WithInvocation(method, path, handler string) error {
	if err := b.requireStarted(); err != nil {
		return err
	}
	b.record.Method = optional(method)
	b.record.Path = optional(path)
	b.record.Handler = handler
	return nil
}

// WithCallerContext sets who called. queryParams is expected to be
// serialized already and may be nil; it is masked, sanitized and truncated
// like the request payload.
func (b *Builder) WithCallerContext(ip, userAgent, userID string, queryParams *string, maskFields []string, maxSize int) error {
	if err := b.requireStarted(); err != nil {
		return err
	}
	b.record.ClientIP = optional(ip)
	b.record.UserAgent = optional(userAgent)
	b.record.UserID = optional(userID)
	if queryParams != nil {
		q := sanitize.Payload(*queryParams, maskFields, maxSize)
		b.record.QueryParams = &q
	}
	return nil
}

// WithRequestPayload serializes raw and stores it masked, sanitized and
// truncated. A serialization failure stores a placeholder instead; the
// failure is available from CaptureErrors and is not returned.
func (b *Builder) WithRequestPayload(raw any, maskFields []string, maxSize int) error {
	if err := b.requireStarted(); err != nil {
		return err
	}
	body := b.payload("request_body", raw, maskFields, maxSize)
	b.record.RequestBody = &body
	return nil
}

// WithSuccess marks the call successful. A non-nil response is serialized
// the same way as the request payload.
func (b *Builder) WithSuccess(response any, maskFields []string, maxSize int) error {
	if err := b.transition(audit.StateSuccess); err != nil {
		return err
	}
	b.record.Success = true
	if response != nil {
		body := b.payload("response_body", response, maskFields, maxSize)
		b.record.ResponseBody = &body
	}
	return nil
}

// CaptureErrors returns the payload serialization failures recovered so far.
func (b *Builder) CaptureErrors() []error {
	return b.captureErrs
}

// WithFailure marks the call failed with callErr. The error type is the Go
// type of the error, the stack trace is the message followed by stack,
// bounded to sanitize.MaxStackTraceSize.
func (b *Builder) WithFailure(callErr error, stack []byte) error {
	if callErr == nil {
		return audit.NewConfigurationError("failure recorded without an error")
	}
	return b.fail(fmt.Sprintf("%T", callErr), callErr.Error(), stack)
}

// WithPanic marks the call failed because it panicked with value.
func (b *Builder) WithPanic(value any, stack []byte) error {
	return b.fail(fmt.Sprintf("panic(%T)", value), fmt.Sprint(value), stack)
}

func (b *Builder) fail(errorType, message string, stack []byte) error {
	if err := b.transition(audit.StateFailure); err != nil {
		return err
	}
	message = sanitize.Sanitize(message)
	trace := sanitize.TruncateStackTrace(
		sanitize.Sanitize(errorType+": "+message+"\n\n"+string(stack)),
		sanitize.MaxStackTraceSize,
	)

	b.record.Success = false
	b.record.ErrorType = &errorType
	b.record.ErrorMessage = &message
	b.record.ErrorStacktrace = &trace
	return nil
}

// WithHTTPStatus sets the response status. It may be called any time before
// Build.
func (b *Builder) WithHTTPStatus(code int) error {
	if b.state == audit.StateDispatched {
		return audit.NewStateError(b.state, b.state)
	}
	b.record.HTTPStatus = &code
	return nil
}

// Build finalizes the record and moves the builder to DISPATCHED. It fails
// with a *audit.ConfigurationError when no outcome was set and with a
// *audit.StateError when called twice.
func (b *Builder) Build(end time.Time) (audit.Record, error) {
	switch b.state {
	case audit.StateStarted:
		return audit.Record{}, audit.NewConfigurationError("record built before its outcome was set")
	case audit.StateDispatched:
		return audit.Record{}, audit.NewStateError(b.state, audit.StateDispatched)
	}

	b.state = audit.StateDispatched

	if b.record.CorrelationID == "" {
		b.record.CorrelationID = NewCorrelationID()
	}
	if d := end.Sub(b.start).Milliseconds(); d > 0 {
		b.record.DurationMs = d
	}
	return *b.record.Clone(), nil
}

func (b *Builder) requireStarted() error {
	if b.state != audit.StateStarted {
		return audit.NewStateError(b.state, b.state)
	}
	return nil
}

func (b *Builder) transition(next audit.State) error {
	if !b.state.CanTransition(next) {
		return audit.NewStateError(b.state, next)
	}
	b.state = next
	return nil
}

// payload serializes v for storage. Failures, including panics raised by a
// custom marshaler, produce a placeholder.
func (b *Builder) payload(field string, v any, maskFields []string, maxSize int) (body string) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("marshaler panicked: %v", r)
			b.captureErrs = append(b.captureErrs, audit.NewCaptureError(field, err))
			body = placeholder(err)
		}
	}()

	data, err := marshal(v)
	if err != nil {
		b.captureErrs = append(b.captureErrs, audit.NewCaptureError(field, err))
		return placeholder(err)
	}
	return sanitize.Payload(data, maskFields, maxSize)
}

func placeholder(err error) string {
	return sanitize.Sanitize("[Error serializing: " + err.Error() + "]")
}

// marshal encodes v as compact JSON without HTML escaping.
func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
