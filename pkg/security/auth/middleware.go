package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/callaudit/pkg/server/handlers"
	"mercator-hq/callaudit/pkg/telemetry/logging"
)

// APIKeyMiddleware is HTTP middleware for API key authentication
type APIKeyMiddleware struct {
	validator KeyValidator
	sources   []APIKeySource
	logger    *slog.Logger
}

// NewAPIKeyMiddleware creates a new API key authentication middleware
func NewAPIKeyMiddleware(validator KeyValidator, sources []APIKeySource) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		validator: validator,
		sources:   sources,
		logger:    slog.Default().With("component", "security.auth"),
	}
}

// Handle wraps an HTTP handler with API key authentication. The user of an
// accepted key replaces any X-User-ID sent by the caller, so audited calls
// record the authenticated identity.
func (m *APIKeyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey, ok := m.extractAPIKey(r)
		if !ok {
			reject(w, r, "missing API key")
			return
		}

		keyInfo, err := m.validator.Validate(apiKey)
		if err != nil {
			m.logger.Debug("API key rejected", "remote_addr", r.RemoteAddr, "error", err)
			msg := "invalid API key"
			if errors.Is(err, ErrKeyDisabled) {
				msg = "API key disabled"
			}
			reject(w, r, msg)
			return
		}

		m.logger.Debug("API key authenticated",
			"user_id", keyInfo.UserID,
			"path", r.URL.Path,
		)

		ctx := context.WithValue(r.Context(), apiKeyInfoKey, keyInfo)
		if keyInfo.UserID != "" {
			ctx = logging.WithUserID(ctx, keyInfo.UserID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject answers 401. WriteError logs the rejection.
func reject(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="callaudit"`)
	handlers.WriteError(w, r, handlers.NewStatusError(http.StatusUnauthorized, "%s", msg))
}

// extractAPIKey returns the first key found in the configured sources.
func (m *APIKeyMiddleware) extractAPIKey(r *http.Request) (string, bool) {
	for _, source := range m.sources {
		switch source.Type {
		case "header":
			value := r.Header.Get(source.Name)
			if value == "" {
				continue
			}
			if source.Scheme == "" {
				return value, true
			}
			// Scheme names are case-insensitive.
			prefix := source.Scheme + " "
			if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
				return strings.TrimSpace(value[len(prefix):]), true
			}

		case "query":
			if value := r.URL.Query().Get(source.Name); value != "" {
				return value, true
			}
		}
	}

	return "", false
}

type contextKey string

// #nosec G101 - This is a context key constant, not a credential
const apiKeyInfoKey contextKey = "api_key_info"

// GetAPIKeyInfo retrieves API key info from request context
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyInfoKey).(*APIKeyInfo)
	return info, ok
}
