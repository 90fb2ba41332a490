package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/cwlens/pkg/limit"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateUpstream(&cfg.Upstream, cfg.Catalog.Enabled)...)
	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// validateUpstream validates upstream configuration. The base URL is only
// optional when the catalog serves configuration.
func validateUpstream(cfg *UpstreamConfig, catalogEnabled bool) []FieldError {
	var errs []FieldError

	if cfg.BaseURL == "" {
		if !catalogEnabled {
			errs = append(errs, FieldError{
				Field:   "upstream.base_url",
				Message: "base URL is required unless catalog.enabled is true",
			})
		}
	} else if msg := checkURL(cfg.BaseURL, "http", "https"); msg != "" {
		errs = append(errs, FieldError{Field: "upstream.base_url", Message: msg})
	}

	if cfg.Stream.URL != "" {
		if msg := checkURL(cfg.Stream.URL, "ws", "wss"); msg != "" {
			errs = append(errs, FieldError{Field: "upstream.stream.url", Message: msg})
		}
	}

	errs = append(errs, checkNonNegative("upstream.timeout", cfg.Timeout)...)
	errs = append(errs, checkNonNegative("upstream.stream.reconnect_interval", cfg.Stream.ReconnectInterval)...)
	errs = append(errs, checkNonNegative("upstream.stream.handshake_timeout", cfg.Stream.HandshakeTimeout)...)

	if cfg.Stream.ReconnectBurst < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.stream.reconnect_burst",
			Message: "reconnect burst must be non-negative",
		})
	}

	return errs
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "catalog.path",
			Message: "catalog path is required when catalog is enabled",
		})
	}
	errs = append(errs, checkNonNegative("catalog.debounce_delay", cfg.DebounceDelay)...)

	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	if cfg.FallbackModelLimit < limit.MinTokens {
		return []FieldError{{
			Field:   "limits.fallback_model_limit",
			Message: fmt.Sprintf("fallback model limit must be at least %d tokens", limit.MinTokens),
		}}
	}
	return nil
}

// validateJournal validates journal configuration.
func validateJournal(cfg *JournalConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.path",
				Message: "database path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q (must be sqlite or sqlite3)", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "journal.sqlite.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", cfg.Backend),
		})
	}

	errs = append(errs, checkNonNegative("journal.retention.max_age", cfg.Retention.MaxAge)...)

	if cfg.Retention.MaxAge > 0 {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "journal.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateServer validates Live Status server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	errs = append(errs, checkNonNegative("server.read_timeout", cfg.ReadTimeout)...)
	errs = append(errs, checkNonNegative("server.write_timeout", cfg.WriteTimeout)...)
	errs = append(errs, checkNonNegative("server.shutdown_timeout", cfg.ShutdownTimeout)...)

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json, text, or console)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
			})
		}
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}

	return errs
}

func checkURL(raw string, schemes ...string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return "URL must include a host"
			}
			return ""
		}
	}
	return fmt.Sprintf("URL scheme must be one of %s", strings.Join(schemes, ", "))
}

func checkNonNegative(field string, d time.Duration) []FieldError {
	if d < 0 {
		return []FieldError{{Field: field, Message: "duration must be non-negative"}}
	}
	return nil
}
