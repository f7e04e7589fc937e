package auth

import (
	"errors"

	"mercator-hq/callaudit/pkg/config"
)

var (
	// ErrInvalidKey is returned for keys that are not configured.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrKeyDisabled is returned for configured keys that are disabled.
	ErrKeyDisabled = errors.New("API key disabled")
)

// APIKeyInfo represents an API key with metadata
type APIKeyInfo struct {
	Key     string
	UserID  string
	Enabled bool
}

// KeyValidator validates API keys.
type KeyValidator interface {
	Validate(key string) (*APIKeyInfo, error)
}

// APIKeySource defines where to extract API keys from
type APIKeySource struct {
	Type   string // header, query
	Name   string // Header name or query param
	Scheme string // "Bearer", etc. (optional)
}

// KeysFromConfig converts configured keys.
func KeysFromConfig(keys []config.APIKeyConfig) []*APIKeyInfo {
	infos := make([]*APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, &APIKeyInfo{
			Key:     k.Key,
			UserID:  k.UserID,
			Enabled: !k.Disabled,
		})
	}
	return infos
}

// SourcesFromConfig converts configured key sources.
func SourcesFromConfig(sources []config.APIKeySource) []APIKeySource {
	out := make([]APIKeySource, 0, len(sources))
	for _, s := range sources {
		out = append(out, APIKeySource{Type: s.Type, Name: s.Name, Scheme: s.Scheme})
	}
	return out
}
