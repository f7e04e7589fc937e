// Package tracing connects audit records with distributed traces.
//
// Incoming W3C Trace Context is always read so that records can be joined
// with traces recorded elsewhere:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// yields trace ID 4bf92f3577b34da6a3ce929d0e0e4736. The explicit
// X-Trace-ID header, when present, takes precedence.
//
// When telemetry.tracing.enabled is set, New installs an OpenTelemetry
// tracer provider exporting over OTLP gRPC and every audited call gets an
// internal span named after its handler:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Sampling is parent based; see the SamplerAlways, SamplerNever and
// SamplerRatio strategies.
package tracing
