package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/sanitize"
	"mercator-hq/callaudit/pkg/telemetry/logging"
	"mercator-hq/callaudit/pkg/telemetry/tracing"
)

// DefaultMaxPayloadSize bounds serialized request and response payloads.
const DefaultMaxPayloadSize = 4096

// Sink receives finalized records. It must not block and must not fail;
// the dispatcher is the production implementation.
type Sink interface {
	Write(record audit.Record)
}

// Observer is notified once per completed interception. Optional.
type Observer interface {
	ObserveCall(handler string, success bool, duration time.Duration)
	ObserveCaptureError(field string)
}

// Options controls what an interception captures.
type Options struct {
	// Action is a short label for the operation. Defaults to the upper-cased
	// operation name.
	Action string

	// CaptureRequest stores the serialized call arguments.
	CaptureRequest bool

	// CaptureResponse stores the serialized result of a successful call.
	CaptureResponse bool

	// MaskFields lists JSON field names whose values are masked in captured
	// payloads. Nil means the interceptor's default list.
	MaskFields []string

	// MaxPayloadSize bounds each captured payload in characters.
	// Non-positive means the interceptor's default.
	MaxPayloadSize int
}

// DefaultOptions returns options capturing both payloads with the default
// mask list and size limit.
func DefaultOptions() Options {
	return Options{
		CaptureRequest:  true,
		CaptureResponse: true,
		MaskFields:      append([]string(nil), sanitize.DefaultMaskFields...),
		MaxPayloadSize:  DefaultMaxPayloadSize,
	}
}

// Invocation describes the call being intercepted.
type Invocation struct {
	// Component names the type or service that owns the operation.
	Component string

	// Operation names the method or function.
	Operation string

	// Args are the call arguments, captured as the request payload. A single
	// argument is serialized as itself, several as a JSON array.
	Args []any

	Options Options
}

// Handler returns the "Component#Operation [ACTION]" label for the call.
func (inv Invocation) Handler() string {
	action := inv.Options.Action
	if action == "" {
		action = strings.ToUpper(inv.Operation)
	}
	return inv.Component + "#" + inv.Operation + " [" + action + "]"
}

// Interceptor wraps operations so that each call produces exactly one audit
// record. Capture runs on the calling goroutine; persistence is handed to
// the Sink.
type Interceptor struct {
	sink     Sink
	observer Observer
	defaults atomic.Pointer[Options]
	disabled atomic.Bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewInterceptor creates an interceptor writing to sink. defaults fills
// MaskFields and MaxPayloadSize for invocations that leave them unset and is
// returned by Defaults as the starting point for new invocations.
func NewInterceptor(sink Sink, defaults Options) *Interceptor {
	ic := &Interceptor{
		sink:   sink,
		logger: slog.Default().With("component", "audit.capture"),
		now:    time.Now,
	}
	ic.SetDefaults(defaults)
	return ic
}

// SetObserver installs an observer for call and capture-error metrics.
func (ic *Interceptor) SetObserver(o Observer) {
	ic.observer = o
}

// SetEnabled turns auditing on or off. While disabled, Intercept runs the
// wrapped operation and writes nothing.
func (ic *Interceptor) SetEnabled(enabled bool) {
	ic.disabled.Store(!enabled)
}

// Enabled reports whether calls are being audited.
func (ic *Interceptor) Enabled() bool {
	return !ic.disabled.Load()
}

// Defaults returns a copy of the current default options.
func (ic *Interceptor) Defaults() Options {
	opts := *ic.defaults.Load()
	opts.MaskFields = append([]string(nil), opts.MaskFields...)
	return opts
}

// SetDefaults replaces the default options. Safe to call while calls are
// being intercepted.
func (ic *Interceptor) SetDefaults(defaults Options) {
	if defaults.MaxPayloadSize <= 0 {
		defaults.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if defaults.MaskFields == nil {
		defaults.MaskFields = sanitize.DefaultMaskFields
	}
	defaults.MaskFields = sanitize.NormalizeFields(defaults.MaskFields)
	ic.defaults.Store(&defaults)
}

// Intercept runs fn and records the call. The result and error of fn are
// returned unchanged; auditing never alters the outcome of the call. If fn
// panics the failure is recorded and the panic is re-raised.
//
//	user, err := capture.Intercept(ctx, ic, capture.Invocation{
//		Component: "UserService",
//		Operation: "Create",
//		Args:      []any{req},
//		Options:   opts,
//	}, func(ctx context.Context) (*User, error) {
//		return svc.create(ctx, req)
//	})
//
// fn receives a context carrying the call's span, which is a no-op unless
// a tracer provider is installed. A nil or disabled interceptor runs fn
// without auditing.
func Intercept[T any](ctx context.Context, ic *Interceptor, inv Invocation, fn func(context.Context) (T, error)) (T, error) {
	if ic == nil || ic.disabled.Load() {
		return fn(ctx)
	}

	ctx, span := tracing.StartCall(ctx, inv.Handler())
	c := ic.begin(ctx, inv)
	c.span = span
	defer func() {
		if r := recover(); r != nil {
			c.complete(func(b *Builder) error {
				return b.WithPanic(r, debug.Stack())
			})
			panic(r)
		}
	}()

	result, err := fn(ctx)
	if err != nil {
		c.complete(func(b *Builder) error {
			if info := c.info; info != nil {
				if err := b.WithHTTPStatus(statusFor(err)); err != nil {
					return err
				}
			}
			return b.WithFailure(err, debug.Stack())
		})
		return result, err
	}

	c.complete(func(b *Builder) error {
		if c.info != nil {
			if err := b.WithHTTPStatus(http.StatusOK); err != nil {
				return err
			}
		}
		var response any
		if c.opts.CaptureResponse && !isNil(result) {
			response = result
		}
		return b.WithSuccess(response, c.opts.MaskFields, c.opts.MaxPayloadSize)
	})
	return result, nil
}

// call is the state of one in-flight interception.
type call struct {
	ic        *Interceptor
	builder   *Builder
	info      *RequestInfo
	opts      Options
	handler   string
	start     time.Time
	corrID    string
	span      trace.Span
	completed bool
	written   bool
}

// begin resolves the call's identity and caller context and captures the
// request payload. It never fails; problems are logged.
func (ic *Interceptor) begin(ctx context.Context, inv Invocation) *call {
	start := ic.now()
	opts := ic.resolve(inv.Options)
	inv.Options = opts

	c := &call{
		ic:      ic,
		builder: NewBuilder(start),
		opts:    opts,
		handler: inv.Handler(),
		start:   start,
	}
	c.info, _ = RequestInfoFrom(ctx)

	defer func() {
		if r := recover(); r != nil {
			ic.logger.Error("audit capture panicked, continuing without full context",
				"handler", c.handler,
				"panic", r,
			)
		}
	}()

	c.corrID = ic.correlationID(ctx, c.info)
	_ = c.builder.WithIdentity(c.corrID, ic.traceID(ctx, c.info))

	var method, path string
	if c.info != nil {
		method, path = c.info.Method, c.info.Path
	}
	_ = c.builder.WithInvocation(method, path, c.handler)

	if c.info != nil {
		userID := logging.GetUserID(ctx)
		if userID == "" {
			userID = c.info.UserID
		}
		query, err := QueryParamsJSON(c.info.Query)
		if err != nil {
			ic.logger.Warn("failed to serialize query params",
				"handler", c.handler,
				"error", audit.NewCaptureError("query_params", err),
			)
			ic.observeCaptureError("query_params")
			query = nil
		}
		_ = c.builder.WithCallerContext(c.info.ClientIP, c.info.UserAgent, userID, query, opts.MaskFields, opts.MaxPayloadSize)
	} else if userID := logging.GetUserID(ctx); userID != "" {
		_ = c.builder.WithCallerContext("", "", userID, nil, nil, 0)
	}

	if opts.CaptureRequest && len(inv.Args) > 0 {
		var args any = inv.Args
		if len(inv.Args) == 1 {
			args = inv.Args[0]
		}
		_ = c.builder.WithRequestPayload(args, opts.MaskFields, opts.MaxPayloadSize)
	}

	return c
}

// complete sets the outcome, builds the record and writes it to the sink.
// It runs at most once per call; if finalization fails or panics a minimal
// fallback record is written instead so the call is still accounted for.
func (c *call) complete(outcome func(b *Builder) error) {
	if c.completed {
		return
	}
	c.completed = true

	defer func() {
		if r := recover(); r != nil {
			c.ic.logger.Error("audit finalization panicked, writing fallback record",
				"handler", c.handler,
				"correlation_id", c.corrID,
				"panic", r,
			)
			c.writeFallback(fmt.Sprintf("finalization panicked: %v", r))
		}
	}()

	if err := outcome(c.builder); err != nil {
		c.ic.logger.Error("failed to record call outcome", "handler", c.handler, "error", err)
		c.writeFallback(err.Error())
		return
	}

	for _, err := range c.builder.CaptureErrors() {
		c.ic.logger.Warn("payload capture degraded to placeholder",
			"handler", c.handler,
			"error", err,
		)
		var ce *audit.CaptureError
		if errors.As(err, &ce) {
			c.ic.observeCaptureError(ce.Field)
		}
	}

	record, err := c.builder.Build(c.ic.now())
	if err != nil {
		c.ic.logger.Error("failed to build call record", "handler", c.handler, "error", err)
		c.writeFallback(err.Error())
		return
	}

	c.emit(record)

	c.ic.logger.Debug("call history recorded",
		"method", deref(record.Method),
		"path", deref(record.Path),
		"handler", record.Handler,
		"duration_ms", record.DurationMs,
		"success", record.Success,
	)
}

// writeFallback writes a failure record carrying only what is already known.
func (c *call) writeFallback(reason string) {
	if c.written {
		return
	}

	errorType := "capture.FinalizationError"
	message := sanitize.Sanitize(reason)
	record := audit.Record{
		CreatedAt:     c.start,
		CorrelationID: c.corrID,
		Handler:       c.handler,
		Success:       false,
		DurationMs:    max(c.ic.now().Sub(c.start).Milliseconds(), 0),
		ErrorType:     &errorType,
		ErrorMessage:  &message,
	}
	if record.CorrelationID == "" {
		record.CorrelationID = NewCorrelationID()
	}
	if c.info != nil {
		record.Method = optional(c.info.Method)
		record.Path = optional(c.info.Path)
	}

	c.emit(record)
}

// emit hands record to the sink and reports it to the observer and the
// call's span.
func (c *call) emit(record audit.Record) {
	c.written = true
	c.ic.sink.Write(record)
	c.ic.observeCall(c.handler, record.Success, time.Duration(record.DurationMs)*time.Millisecond)

	if c.span != nil {
		tracing.EndCall(c.span, tracing.CallOutcome{
			CorrelationID: record.CorrelationID,
			Success:       record.Success,
			DurationMs:    record.DurationMs,
			HTTPStatus:    record.HTTPStatus,
			ErrorType:     deref(record.ErrorType),
			ErrorMessage:  deref(record.ErrorMessage),
		})
	}
}

// resolve fills unset options from the interceptor defaults.
func (ic *Interceptor) resolve(opts Options) Options {
	defaults := ic.defaults.Load()
	if opts.MaskFields == nil {
		opts.MaskFields = defaults.MaskFields
	}
	if opts.MaxPayloadSize <= 0 {
		opts.MaxPayloadSize = defaults.MaxPayloadSize
	}
	return opts
}

// correlationID resolves the context value, then the request header, then
// generates a new id.
func (ic *Interceptor) correlationID(ctx context.Context, info *RequestInfo) string {
	if id := logging.GetCorrelationID(ctx); id != "" {
		return id
	}
	if info != nil && info.CorrelationID != "" {
		return info.CorrelationID
	}
	return NewCorrelationID()
}

// traceID resolves the context value, then the request header, then the
// span context of ctx.
func (ic *Interceptor) traceID(ctx context.Context, info *RequestInfo) string {
	if id := logging.GetTraceID(ctx); id != "" {
		return id
	}
	if info != nil && info.TraceID != "" {
		return info.TraceID
	}
	return tracing.TraceID(ctx)
}

func (ic *Interceptor) observeCall(handler string, success bool, d time.Duration) {
	if ic.observer != nil {
		ic.observer.ObserveCall(handler, success, d)
	}
}

func (ic *Interceptor) observeCaptureError(field string) {
	if ic.observer != nil {
		ic.observer.ObserveCaptureError(field)
	}
}

// statusFor returns the HTTP status carried by err, or 500.
func statusFor(err error) int {
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) {
		if code := coded.StatusCode(); code > 0 {
			return code
		}
	}
	return http.StatusInternalServerError
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
