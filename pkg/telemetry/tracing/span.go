package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on audited call spans.
const (
	AttrHandler       = "callaudit.handler"
	AttrCorrelationID = "callaudit.correlation_id"
	AttrSuccess       = "callaudit.success"
	AttrDurationMs    = "callaudit.duration_ms"
	AttrErrorType     = "callaudit.error.type"
	AttrHTTPStatus    = "http.status_code"
)

// StartCall starts an internal span for one audited call using the global
// tracer provider. With no provider installed the span is a no-op that
// still carries the caller's span context.
func StartCall(ctx context.Context, handler string) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, handler,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String(AttrHandler, handler)),
	)
}

// CallOutcome is what an audited call span reports when it ends.
type CallOutcome struct {
	CorrelationID string
	Success       bool
	DurationMs    int64
	HTTPStatus    *int
	ErrorType     string
	ErrorMessage  string
}

// EndCall records outcome on span and ends it.
func EndCall(span trace.Span, outcome CallOutcome) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCorrelationID, outcome.CorrelationID),
		attribute.Bool(AttrSuccess, outcome.Success),
		attribute.Int64(AttrDurationMs, outcome.DurationMs),
	}
	if outcome.HTTPStatus != nil {
		attrs = append(attrs, attribute.Int(AttrHTTPStatus, *outcome.HTTPStatus))
	}
	if !outcome.Success && outcome.ErrorType != "" {
		attrs = append(attrs, attribute.String(AttrErrorType, outcome.ErrorType))
	}
	span.SetAttributes(attrs...)

	if outcome.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.SetStatus(codes.Error, outcome.ErrorMessage)
	}
	span.End()
}
