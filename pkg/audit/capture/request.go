package capture

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Header names read from inbound HTTP requests.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderTraceID       = "X-Trace-ID"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderRealIP        = "X-Real-IP"
	HeaderUserID        = "X-User-ID"
)

// RequestInfo is the HTTP caller metadata visible to interceptions running
// on behalf of an inbound request. It is extracted once by middleware and
// carried in the request context; outside HTTP it is absent.
type RequestInfo struct {
	Method    string
	Path      string
	ClientIP  string
	UserAgent string
	UserID    string

	// CorrelationID and TraceID are the raw header values, used only when
	// the context carries none.
	CorrelationID string
	TraceID       string

	Query url.Values
}

type requestInfoKey struct{}

// NewCorrelationID generates a correlation id for calls that arrive without
// one.
func NewCorrelationID() string {
	return uuid.NewString()
}

// NewRequestInfo extracts caller metadata from r.
func NewRequestInfo(r *http.Request) *RequestInfo {
	return &RequestInfo{
		Method:        r.Method,
		Path:          r.URL.Path,
		ClientIP:      ClientIP(r),
		UserAgent:     r.UserAgent(),
		UserID:        r.Header.Get(HeaderUserID),
		CorrelationID: r.Header.Get(HeaderCorrelationID),
		TraceID:       r.Header.Get(HeaderTraceID),
		Query:         r.URL.Query(),
	}
}

// WithRequestInfo returns a copy of ctx carrying info.
func WithRequestInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFrom returns the request metadata carried by ctx, if any.
func RequestInfoFrom(ctx context.Context) (*RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(*RequestInfo)
	return info, ok && info != nil
}

// ClientIP resolves the originating client address, honouring proxy
// headers. X-Forwarded-For wins unless it is empty or "unknown", then
// X-Real-IP, then the connection's remote address without its port. When the
// chosen value lists several addresses the first one is returned.
func ClientIP(r *http.Request) string {
	ip := r.Header.Get(HeaderForwardedFor)
	if unknownIP(ip) {
		ip = r.Header.Get(HeaderRealIP)
	}
	if unknownIP(ip) {
		ip = r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
	}
	if first, _, found := strings.Cut(ip, ","); found {
		ip = strings.TrimSpace(first)
	}
	return ip
}

func unknownIP(ip string) bool {
	return ip == "" || strings.EqualFold(ip, "unknown")
}

// QueryParamsJSON serializes query parameters as a JSON object. Keys with a
// single value map to a string, keys with several values map to an array.
// Empty parameters serialize to nil.
func QueryParamsJSON(values url.Values) (*string, error) {
	if len(values) == 0 {
		return nil, nil
	}

	simplified := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 1 {
			simplified[key] = vals[0]
		} else {
			simplified[key] = vals
		}
	}

	data, err := json.Marshal(simplified)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}
