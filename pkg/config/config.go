package config

import "time"

// Config is the root configuration for cwlens.
type Config struct {
	// Upstream configures the service that serves profiles, window types,
	// model limits, session overrides, and snapshot pushes.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Session selects the session and profile to observe at startup.
	Session SessionConfig `yaml:"session"`

	// Catalog configures a local directory of profiles and window types
	// that replaces the upstream configuration endpoints.
	Catalog CatalogConfig `yaml:"catalog"`

	// Limits configures effective limit resolution.
	Limits LimitsConfig `yaml:"limits"`

	// Journal configures the snapshot history store.
	Journal JournalConfig `yaml:"journal"`

	// Server configures the Live Status HTTP server.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics, and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// UpstreamConfig configures the upstream planning service.
type UpstreamConfig struct {
	// BaseURL is the root of the upstream REST API.
	// Example: "https://planner.internal/api"
	BaseURL string `yaml:"base_url"`

	// Token is sent as a bearer token on every request.
	Token string `yaml:"token"`

	// Timeout bounds each request.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Stream configures the snapshot push stream.
	Stream StreamConfig `yaml:"stream"`
}

// StreamConfig configures the WebSocket snapshot push stream.
type StreamConfig struct {
	// Enabled controls whether the push stream is consumed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// URL is the WebSocket endpoint. When empty it is derived from
	// upstream.base_url by switching the scheme and appending "/ws".
	URL string `yaml:"url"`

	// ReconnectInterval is the minimum time between reconnect attempts.
	// Default: 2s
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`

	// ReconnectBurst is the number of immediate reconnects allowed before
	// pacing applies.
	// Default: 3
	ReconnectBurst int `yaml:"reconnect_burst"`

	// HandshakeTimeout bounds the WebSocket handshake.
	// Default: 10s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
}

// SessionConfig selects the initial session.
type SessionConfig struct {
	// ID is the session to observe. Empty means wait for a switch request.
	ID string `yaml:"id"`

	// ProfileID is the profile to load. Empty selects the default profile.
	ProfileID string `yaml:"profile_id"`
}

// CatalogConfig configures the file-backed configuration store.
type CatalogConfig struct {
	// Enabled serves profiles and window types from Path instead of the
	// upstream service.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the catalog directory. It holds profiles.yaml and one
	// <window-type-id>.yaml file per window type.
	// Default: "./catalog"
	Path string `yaml:"path"`

	// Watch reloads the catalog when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceDelay coalesces bursts of file events.
	// Default: 100ms
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// LimitsConfig configures effective limit resolution.
type LimitsConfig struct {
	// FallbackModelLimit is used when the model capability lookup fails.
	// Default: 128000
	FallbackModelLimit int `yaml:"fallback_model_limit"`
}

// JournalConfig configures the snapshot journal.
type JournalConfig struct {
	// Enabled controls whether applied snapshots are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures a SQLite database.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns limits open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures journal pruning.
type RetentionConfig struct {
	// MaxAge is how long entries are kept. Zero keeps everything.
	// Default: 168h
	MaxAge time.Duration `yaml:"max_age"`

	// Schedule is a standard cron expression for pruning runs.
	// Default: "0 * * * *"
	Schedule string `yaml:"schedule"`
}

// ServerConfig configures the Live Status server.
type ServerConfig struct {
	// Enabled controls whether the server starts with `cwlens run`.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the host:port to bind.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 15s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// AllowedOrigins lists origins permitted to open /v1/live.
	// Empty allows same-origin requests only; "*" allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks bearer tokens and key-like values in log output.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "cwlens"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "cwlens"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
