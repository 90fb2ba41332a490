package config

import (
	"fmt"
	"sync"
)

var (
	globalMu  sync.RWMutex
	global    *Config
	initOnce  sync.Once
	initError error
)

// Initialize loads the configuration at path (with environment overrides)
// into the process-wide instance. Only the first call loads; later calls
// return the first call's result.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initError = err
			return
		}
		SetConfig(cfg)
	})
	return initError
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize.
func GetConfig() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// SetConfig replaces the process-wide configuration. Tests use it to
// install fixtures.
func SetConfig(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cfg
}

// ReloadConfig reloads path and swaps it in only if it loads and validates.
// On failure the current configuration stays in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// resetForTest clears the singleton.
func resetForTest() {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()
	initOnce = sync.Once{}
	initError = nil
}
