// Package capture turns intercepted calls into audit records.
//
// Intercept wraps any operation returning (T, error). For each call it
// resolves the caller's identity (correlation id, trace id, HTTP metadata
// carried by RequestInfo), captures the sanitized request payload, runs the
// operation, records its outcome and hands exactly one record to a Sink.
//
// Auditing is transparent to the caller: results and errors pass through
// unchanged, panics are recorded and re-raised, and any failure inside the
// capture path itself degrades to placeholders or a fallback record rather
// than reaching the caller.
//
// Each audited call also runs inside a span named after its handler label.
// The span is a no-op unless a tracer provider is installed.
//
// Builder is the per-call record state machine used by Intercept. It can be
// used directly for callers that manage their own lifecycle.
package capture
