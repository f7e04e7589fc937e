package config

import (
	"fmt"
	"sync"
)

var (
	// globalConfig holds the singleton configuration instance.
	globalConfig *Config

	// configMutex protects access to globalConfig.
	configMutex sync.RWMutex

	// initOnce ensures configuration is initialized only once.
	initOnce sync.Once

	// subscribers are notified after every successful reload.
	subscribers   = map[int]func(*Config){}
	nextSubID     int
	subscribersMu sync.Mutex
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the global singleton configuration.
// This function should be called once at application startup.
// Subsequent calls are ignored (uses sync.Once internally).
func Initialize(path string) error {
	var initErr error

	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}

		configMutex.Lock()
		globalConfig = cfg
		configMutex.Unlock()
	})

	return initErr
}

// GetConfig returns the global configuration instance.
// It returns nil if Initialize has not been called successfully.
//
// For testing, prefer using dependency injection with explicit Config
// instances rather than relying on the global singleton.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig sets the global configuration instance.
// This function is primarily intended for testing.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// ReloadConfig reloads the configuration from the specified path. The new
// configuration replaces the global instance and is delivered to subscribers
// only if loading and validation succeed; otherwise the existing
// configuration remains in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = cfg
	configMutex.Unlock()

	notify(cfg)
	return nil
}

// MustGetConfig returns the global configuration instance.
// It panics if the configuration has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// Subscribe registers fn to run after each successful reload. The returned
// function removes the subscription.
func Subscribe(fn func(*Config)) (unsubscribe func()) {
	subscribersMu.Lock()
	defer subscribersMu.Unlock()

	id := nextSubID
	nextSubID++
	subscribers[id] = fn

	return func() {
		subscribersMu.Lock()
		defer subscribersMu.Unlock()
		delete(subscribers, id)
	}
}

func notify(cfg *Config) {
	subscribersMu.Lock()
	fns := make([]func(*Config), 0, len(subscribers))
	for _, fn := range subscribers {
		fns = append(fns, fn)
	}
	subscribersMu.Unlock()

	for _, fn := range fns {
		fn(cfg)
	}
}

// resetForTesting clears the singleton state.
func resetForTesting() {
	configMutex.Lock()
	globalConfig = nil
	initOnce = sync.Once{}
	configMutex.Unlock()

	subscribersMu.Lock()
	subscribers = map[int]func(*Config){}
	subscribersMu.Unlock()
}
