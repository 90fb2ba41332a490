package config

import (
	"time"

	"mercator-hq/cwlens/pkg/limit"
)

// Default values for configuration fields.
const (
	// Upstream defaults
	DefaultUpstreamTimeout          = 10 * time.Second
	DefaultStreamEnabled            = true
	DefaultStreamReconnectInterval  = 2 * time.Second
	DefaultStreamReconnectBurst     = 3
	DefaultStreamHandshakeTimeout   = 10 * time.Second
	DefaultCatalogPath              = "./catalog"
	DefaultCatalogDebounceDelay     = 100 * time.Millisecond
	DefaultLimitsFallbackModelLimit = limit.DefaultModelLimit

	// Journal defaults
	DefaultJournalEnabled           = true
	DefaultJournalBackend           = "memory"
	DefaultJournalSQLitePath        = "data/journal.db"
	DefaultJournalSQLiteDriver      = "sqlite"
	DefaultJournalSQLiteMaxOpen     = 10
	DefaultJournalSQLiteWALMode     = true
	DefaultJournalSQLiteBusyTimeout = 5 * time.Second
	DefaultJournalRetentionMaxAge   = 7 * 24 * time.Hour
	DefaultJournalRetentionSchedule = "0 * * * *"

	// Server defaults
	DefaultServerEnabled         = true
	DefaultServerListenAddress   = "127.0.0.1:8090"
	DefaultServerReadTimeout     = 15 * time.Second
	DefaultServerWriteTimeout    = 15 * time.Second
	DefaultServerShutdownTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "json"
	DefaultLoggingRedactSecrets = true
	DefaultMetricsEnabled       = true
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "cwlens"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 0.1
	DefaultTracingServiceName   = "cwlens"
	DefaultTracingOTLPInsecure  = true
	DefaultTracingOTLPTimeout   = 10 * time.Second
)

// NewDefault returns a configuration with every default applied.
//
// Boolean fields whose default is true can only be told apart from an
// explicit false by decoding YAML on top of this value, which is what
// LoadConfig does.
func NewDefault() *Config {
	cfg := &Config{}
	cfg.Upstream.Stream.Enabled = DefaultStreamEnabled
	cfg.Journal.Enabled = DefaultJournalEnabled
	cfg.Journal.SQLite.WALMode = DefaultJournalSQLiteWALMode
	cfg.Server.Enabled = DefaultServerEnabled
	cfg.Telemetry.Logging.RedactSecrets = DefaultLoggingRedactSecrets
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.OTLP.Insecure = DefaultTracingOTLPInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
// Fields already set are left untouched.
func ApplyDefaults(cfg *Config) {
	// Upstream defaults
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.Stream.ReconnectInterval == 0 {
		cfg.Upstream.Stream.ReconnectInterval = DefaultStreamReconnectInterval
	}
	if cfg.Upstream.Stream.ReconnectBurst == 0 {
		cfg.Upstream.Stream.ReconnectBurst = DefaultStreamReconnectBurst
	}
	if cfg.Upstream.Stream.HandshakeTimeout == 0 {
		cfg.Upstream.Stream.HandshakeTimeout = DefaultStreamHandshakeTimeout
	}

	// Catalog defaults
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = DefaultCatalogPath
	}
	if cfg.Catalog.DebounceDelay == 0 {
		cfg.Catalog.DebounceDelay = DefaultCatalogDebounceDelay
	}

	// Limits defaults
	if cfg.Limits.FallbackModelLimit == 0 {
		cfg.Limits.FallbackModelLimit = DefaultLimitsFallbackModelLimit
	}

	// Journal defaults
	if cfg.Journal.Backend == "" {
		cfg.Journal.Backend = DefaultJournalBackend
	}
	if cfg.Journal.SQLite.Path == "" {
		cfg.Journal.SQLite.Path = DefaultJournalSQLitePath
	}
	if cfg.Journal.SQLite.Driver == "" {
		cfg.Journal.SQLite.Driver = DefaultJournalSQLiteDriver
	}
	if cfg.Journal.SQLite.MaxOpenConns == 0 {
		cfg.Journal.SQLite.MaxOpenConns = DefaultJournalSQLiteMaxOpen
	}
	if cfg.Journal.SQLite.BusyTimeout == 0 {
		cfg.Journal.SQLite.BusyTimeout = DefaultJournalSQLiteBusyTimeout
	}
	if cfg.Journal.Retention.MaxAge == 0 {
		cfg.Journal.Retention.MaxAge = DefaultJournalRetentionMaxAge
	}
	if cfg.Journal.Retention.Schedule == "" {
		cfg.Journal.Retention.Schedule = DefaultJournalRetentionSchedule
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultServerListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultServerShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.OTLP.Timeout == 0 {
		cfg.Telemetry.Tracing.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}
