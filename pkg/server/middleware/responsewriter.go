package middleware

import (
	"bytes"
	"net/http"
)

// responseWriter wraps http.ResponseWriter to capture the status code and,
// when a capture limit is set, the first bytes of the body.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool

	// Body capture, enabled when limit > 0.
	limit int
	body  bytes.Buffer
	size  int
}

// newResponseWriter creates a new response writer wrapper.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// wrap returns w as a *responseWriter, reusing it when an outer middleware
// already wrapped it.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return newResponseWriter(w)
}

// WriteHeader captures the status code before writing.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write ensures WriteHeader is called if not already done.
func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	if rw.limit > 0 {
		rw.size += len(b)
		if room := rw.limit - rw.body.Len(); room > 0 {
			rw.body.Write(b[:min(room, len(b))])
		}
	}
	return rw.ResponseWriter.Write(b)
}

// Flush forwards to the underlying writer so streamed exports are not held
// back by the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Status returns the status code written so far, 200 if none.
func (rw *responseWriter) Status() int {
	return rw.statusCode
}
