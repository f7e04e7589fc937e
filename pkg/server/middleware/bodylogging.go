package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"mercator-hq/callaudit/pkg/audit/sanitize"
	"mercator-hq/callaudit/pkg/config"
)

// DefaultMaxBodySize is the number of bytes of each body that is logged.
const DefaultMaxBodySize = 10000

const emptyBody = "[empty]"

// BodyLoggingOptions configures BodyLogging.
type BodyLoggingOptions struct {
	// MaxBodySize caps the logged bytes of each body. Non-positive means
	// DefaultMaxBodySize.
	MaxBodySize int

	// SkipPaths are path prefixes that are passed through without logging.
	SkipPaths []string
}

// BodyLoggingOptionsFromConfig builds options from the server configuration.
func BodyLoggingOptionsFromConfig(cfg config.BodyLoggingConfig) BodyLoggingOptions {
	return BodyLoggingOptions{
		MaxBodySize: cfg.MaxBodySize,
		SkipPaths:   cfg.SkipPaths,
	}
}

// BodyLogging logs the request and response bodies of every call after it
// completes, sanitized so credentials and identifiers never reach the log.
// Binary, multipart, image and video bodies are replaced by a placeholder;
// text bodies larger than the limit are truncated with a note of their
// original size.
//
// Only the part of the request body the handler actually reads is logged.
//
// Example output:
//
//	HTTP POST /api/v1/examples | status=201 | duration=3ms
//	REQUEST: {"name":"Ana","dni":"****","password":"****"}
//	RESPONSE: {"id":1,"name":"Ana","dni":"****"}
func BodyLogging(opts BodyLoggingOptions) func(http.Handler) http.Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	logger := slog.Default().With("component", "server.body")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPath(r.URL.Path, opts.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			reqBody := &capturingReader{limit: opts.MaxBodySize}
			if r.Body != nil && r.Body != http.NoBody {
				reqBody.ReadCloser = r.Body
				r.Body = reqBody
			}

			rw := wrap(w)
			prevLimit := rw.limit
			rw.limit = opts.MaxBodySize
			defer func() { rw.limit = prevLimit }()

			// Logged even when the handler panics; the panic continues to
			// the recovery middleware.
			defer func() {
				request := formatBody(reqBody.buf.Bytes(), reqBody.size, r.Header.Get("Content-Type"))
				response := formatBody(rw.body.Bytes(), rw.size, rw.Header().Get("Content-Type"))

				logger.InfoContext(r.Context(), fmt.Sprintf("HTTP %s %s | status=%d | duration=%dms\nREQUEST: %s\nRESPONSE: %s",
					r.Method,
					r.URL.RequestURI(),
					rw.statusCode,
					time.Since(start).Milliseconds(),
					request,
					response,
				))
			}()

			next.ServeHTTP(rw, r)
		})
	}
}

// formatBody renders a captured body for the log. size is the full body
// length; captured holds at most the first MaxBodySize bytes of it.
func formatBody(captured []byte, size int, contentType string) string {
	if size == 0 {
		return emptyBody
	}

	if placeholder, ok := contentPlaceholder(contentType); ok {
		return placeholder
	}

	body := string(captured)
	if size > len(captured) {
		body += fmt.Sprintf("\n...[truncated - original size: %d bytes]", size)
	}

	body = sanitize.Sanitize(body)
	if body == "" {
		return emptyBody
	}
	return body
}

// contentPlaceholder returns the placeholder logged instead of bodies that
// are not text.
func contentPlaceholder(contentType string) (string, bool) {
	if contentType == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}

	switch {
	case mediaType == "application/octet-stream":
		return "[binary content - not logged]", true
	case mediaType == "multipart/form-data":
		return "[multipart content - not logged]", true
	case strings.HasPrefix(mediaType, "image/"), strings.HasPrefix(mediaType, "video/"):
		return "[" + mediaType + " content - not logged]", true
	}
	return "", false
}

func skipPath(path string, prefixes []string) bool {
	return lo.ContainsBy(prefixes, func(prefix string) bool {
		return prefix != "" && strings.HasPrefix(path, prefix)
	})
}

// capturingReader keeps the first limit bytes read through it and counts
// the rest.
type capturingReader struct {
	io.ReadCloser
	limit int
	buf   bytes.Buffer
	size  int
}

func (c *capturingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if n > 0 {
		c.size += n
		if room := c.limit - c.buf.Len(); room > 0 {
			c.buf.Write(p[:min(room, n)])
		}
	}
	return n, err
}
