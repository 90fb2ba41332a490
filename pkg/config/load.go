package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of NewDefault, then validated.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration on top of the defaults without
// validating it.
func Parse(data []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file (or defaults)
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format CWLENS_SECTION_FIELD.
// Values that fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Upstream overrides
	envString("CWLENS_UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	envString("CWLENS_UPSTREAM_TOKEN", &cfg.Upstream.Token)
	envDuration("CWLENS_UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout)
	envBool("CWLENS_UPSTREAM_STREAM_ENABLED", &cfg.Upstream.Stream.Enabled)
	envString("CWLENS_UPSTREAM_STREAM_URL", &cfg.Upstream.Stream.URL)

	// Session overrides
	envString("CWLENS_SESSION_ID", &cfg.Session.ID)
	envString("CWLENS_SESSION_PROFILE_ID", &cfg.Session.ProfileID)

	// Catalog overrides
	envBool("CWLENS_CATALOG_ENABLED", &cfg.Catalog.Enabled)
	envString("CWLENS_CATALOG_PATH", &cfg.Catalog.Path)
	envBool("CWLENS_CATALOG_WATCH", &cfg.Catalog.Watch)

	// Limits overrides
	envInt("CWLENS_LIMITS_FALLBACK_MODEL_LIMIT", &cfg.Limits.FallbackModelLimit)

	// Journal overrides
	envBool("CWLENS_JOURNAL_ENABLED", &cfg.Journal.Enabled)
	envString("CWLENS_JOURNAL_BACKEND", &cfg.Journal.Backend)
	envString("CWLENS_JOURNAL_SQLITE_PATH", &cfg.Journal.SQLite.Path)
	envString("CWLENS_JOURNAL_SQLITE_DRIVER", &cfg.Journal.SQLite.Driver)
	envDuration("CWLENS_JOURNAL_RETENTION_MAX_AGE", &cfg.Journal.Retention.MaxAge)
	envString("CWLENS_JOURNAL_RETENTION_SCHEDULE", &cfg.Journal.Retention.Schedule)

	// Server overrides
	envBool("CWLENS_SERVER_ENABLED", &cfg.Server.Enabled)
	envString("CWLENS_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	if val := os.Getenv("CWLENS_SERVER_ALLOWED_ORIGINS"); val != "" {
		var origins []string
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}

	// Telemetry overrides
	envString("CWLENS_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("CWLENS_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("CWLENS_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBool("CWLENS_TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("CWLENS_TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
