package auth

import (
	"sort"
	"sync"
)

// APIKeyValidator validates API keys against a configured set of keys. The
// key set can be replaced at runtime.
type APIKeyValidator struct {
	mu   sync.RWMutex
	keys map[string]*APIKeyInfo
}

// NewAPIKeyValidator creates a new API key validator with the given keys
func NewAPIKeyValidator(keys []*APIKeyInfo) *APIKeyValidator {
	v := &APIKeyValidator{}
	v.Replace(keys)
	return v
}

// Validate checks if the given API key is valid and returns its info
func (v *APIKeyValidator) Validate(key string) (*APIKeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[key]
	if !ok {
		return nil, ErrInvalidKey
	}
	if !info.Enabled {
		return nil, ErrKeyDisabled
	}

	return info, nil
}

// Replace swaps the whole key set. Requests already past validation are
// unaffected.
func (v *APIKeyValidator) Replace(keys []*APIKeyInfo) {
	keyMap := make(map[string]*APIKeyInfo, len(keys))
	for _, key := range keys {
		keyMap[key.Key] = key
	}

	v.mu.Lock()
	v.keys = keyMap
	v.mu.Unlock()
}

// UserIDs returns the users of all enabled keys, sorted.
func (v *APIKeyValidator) UserIDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]string, 0, len(v.keys))
	for _, key := range v.keys {
		if key.Enabled {
			ids = append(ids, key.UserID)
		}
	}
	sort.Strings(ids)
	return ids
}
