package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HeaderTraceParent is the W3C Trace Context header.
const HeaderTraceParent = "traceparent"

// Install registers the W3C Trace Context and Baggage propagators as the
// global otel propagator. Call it once at startup.
func Install() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Propagator returns the global text map propagator. Until Install is
// called it falls back to plain W3C Trace Context.
func Propagator() propagation.TextMapPropagator {
	p := otel.GetTextMapPropagator()
	if len(p.Fields()) == 0 {
		return propagation.TraceContext{}
	}
	return p
}

// Extract returns ctx carrying the remote span context found in headers.
// If no valid trace context is present, ctx is returned unchanged.
//
// Format: version-trace_id-parent_id-trace_flags
// Example: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes the span context of ctx into headers for an outgoing call.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// TraceID returns the hex trace ID of the span context in ctx, or "" if
// there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// TraceIDFromHeaders returns the trace ID carried by a traceparent header,
// or "" if the header is missing or malformed.
func TraceIDFromHeaders(headers http.Header) string {
	if headers.Get(HeaderTraceParent) == "" {
		return ""
	}
	return TraceID(Extract(context.Background(), headers))
}
