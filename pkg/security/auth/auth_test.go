package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/callaudit/pkg/config"
	"mercator-hq/callaudit/pkg/server/handlers"
	"mercator-hq/callaudit/pkg/telemetry/logging"
)

func testKeys() []*APIKeyInfo {
	return []*APIKeyInfo{
		{Key: "key-ops", UserID: "ops", Enabled: true},
		{Key: "key-old", UserID: "retired", Enabled: false},
	}
}

func TestAPIKeyValidator_Validate(t *testing.T) {
	v := NewAPIKeyValidator(testKeys())

	tests := []struct {
		name    string
		key     string
		wantErr error
		user    string
	}{
		{"valid", "key-ops", nil, "ops"},
		{"disabled", "key-old", ErrKeyDisabled, ""},
		{"unknown", "nope", ErrInvalidKey, ""},
		{"empty", "", ErrInvalidKey, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := v.Validate(tt.key)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			if tt.wantErr == nil && info.UserID != tt.user {
				t.Errorf("UserID = %q, want %q", info.UserID, tt.user)
			}
		})
	}
}

func TestAPIKeyValidator_Replace(t *testing.T) {
	v := NewAPIKeyValidator(testKeys())

	v.Replace([]*APIKeyInfo{{Key: "key-new", UserID: "new", Enabled: true}})

	if _, err := v.Validate("key-ops"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("replaced key still accepted: %v", err)
	}
	if _, err := v.Validate("key-new"); err != nil {
		t.Errorf("new key rejected: %v", err)
	}
	if got := v.UserIDs(); len(got) != 1 || got[0] != "new" {
		t.Errorf("UserIDs() = %v", got)
	}
}

func TestFromConfig(t *testing.T) {
	keys := KeysFromConfig([]config.APIKeyConfig{
		{Key: "a", UserID: "alice"},
		{Key: "b", UserID: "bob", Disabled: true},
	})
	if len(keys) != 2 || !keys[0].Enabled || keys[1].Enabled {
		t.Errorf("KeysFromConfig() = %+v, %+v", keys[0], keys[1])
	}

	sources := SourcesFromConfig(config.DefaultAPIKeySources)
	if len(sources) != 2 || sources[1].Scheme != "Bearer" {
		t.Errorf("SourcesFromConfig() = %+v", sources)
	}
}

func TestAPIKeyMiddleware_Handle(t *testing.T) {
	sources := []APIKeySource{
		{Type: "header", Name: "X-API-Key"},
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "query", Name: "api_key"},
	}
	mw := NewAPIKeyMiddleware(NewAPIKeyValidator(testKeys()), sources)

	var gotUser string
	var gotInfo *APIKeyInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = logging.GetUserID(r.Context())
		gotInfo, _ = GetAPIKeyInfo(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Handle(next)

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		status  int
		message string
	}{
		{"x-api-key header", "/api/v1/call-history", map[string]string{"X-API-Key": "key-ops"}, http.StatusOK, ""},
		{"bearer token", "/api/v1/call-history", map[string]string{"Authorization": "Bearer key-ops"}, http.StatusOK, ""},
		{"lowercase scheme", "/api/v1/call-history", map[string]string{"Authorization": "bearer key-ops"}, http.StatusOK, ""},
		{"query param", "/api/v1/call-history?api_key=key-ops", nil, http.StatusOK, ""},
		{"caller user id overridden", "/api/v1/call-history", map[string]string{"X-API-Key": "key-ops", "X-User-ID": "mallory"}, http.StatusOK, ""},
		{"missing", "/api/v1/call-history", nil, http.StatusUnauthorized, "missing API key"},
		{"wrong scheme", "/api/v1/call-history", map[string]string{"Authorization": "Basic key-ops"}, http.StatusUnauthorized, "missing API key"},
		{"unknown key", "/api/v1/call-history", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized, "invalid API key"},
		{"disabled key", "/api/v1/call-history", map[string]string{"X-API-Key": "key-old"}, http.StatusUnauthorized, "API key disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotInfo = "", nil

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if id := req.Header.Get("X-User-ID"); id != "" {
				req = req.WithContext(logging.WithUserID(req.Context(), id))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			if tt.status == http.StatusOK {
				if gotUser != "ops" {
					t.Errorf("user id in context = %q, want ops", gotUser)
				}
				if gotInfo == nil || gotInfo.Key != "key-ops" {
					t.Errorf("key info = %+v", gotInfo)
				}
				return
			}

			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 without WWW-Authenticate")
			}
			var resp handlers.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Message != tt.message {
				t.Errorf("message = %q, want %q", resp.Message, tt.message)
			}
		})
	}
}
