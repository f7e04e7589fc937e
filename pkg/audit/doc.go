// Package audit defines the call-audit record, its lifecycle states, the
// storage port and the error taxonomy shared by the capture pipeline.
//
// # Architecture
//
// The pipeline consists of five layers, leaves first:
//
//  1. Sanitizer (audit/sanitize) - Redacts sensitive fields and truncates payloads
//  2. Record Builder (audit/capture) - Assembles one Record per intercepted call
//  3. Interceptor (audit/capture) - Wraps an operation and drives the builder
//  4. Dispatcher (audit/dispatch) - Persists records off the calling goroutine
//  5. Storage + Query (audit/storage, audit/query) - Persists and retrieves records
//
// # Capture Flow
//
//	Caller -> capture.Intercept(ctx, ic, inv, fn)
//	     |
//	Builder STARTED (timing, correlation id, caller metadata, request payload)
//	     |
//	fn(ctx) -> result | error | panic
//	     |
//	Builder SUCCESS | FAILURE
//	     |
//	Build -> DISPATCHED -> dispatch.Dispatcher.Write (non-blocking)
//	     |
//	worker: Storage.Save -> PERSISTED | PERSIST_FAILED (logged, dropped)
//
// The caller sees exactly the result or error fn produced. Capture and
// persistence failures never reach it.
//
// # Queries
//
// Storage answers id lookups, date ranges, correlation id, path and outcome
// filters, plus a newest-first paginated listing. Pagination uses
// whole-page offsets; see PageStart.
//
// # Errors
//
// NotFoundError (errors.Is(err, ErrNotFound)) is the only error surfaced as
// a distinct outcome to query callers. StorageError and QueryError describe
// backend and validation failures. CaptureError and DispatchError are
// recovered inside the pipeline and only ever logged.
package audit
