package config

import "time"

// Config is the root configuration structure for the call audit service.
// It contains all configuration sections for the HTTP server, the capture
// pipeline, storage, retention, queries, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, CORS, and body logging.
	Server ServerConfig `yaml:"server"`

	// Capture contains the interceptor defaults applied to every audited
	// operation that does not override them.
	Capture CaptureConfig `yaml:"capture"`

	// Dispatch contains configuration for the asynchronous persistence queue.
	Dispatch DispatchConfig `yaml:"dispatch"`

	// Storage contains configuration for the call history store.
	Storage StorageConfig `yaml:"storage"`

	// Retention contains configuration for pruning old call history.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains configuration for the call history query API.
	Query QueryConfig `yaml:"query"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`

	// BodyLogging contains configuration for request/response body logging.
	BodyLogging BodyLoggingConfig `yaml:"body_logging"`

	// Auth contains API key authentication for the /api routes.
	Auth AuthConfig `yaml:"auth"`
}

// AuthConfig contains API key authentication configuration. Probes and the
// metrics endpoint are never authenticated.
type AuthConfig struct {
	// Enabled controls whether API key authentication is enabled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sources defines where to extract API keys from (headers, query params).
	// Default: X-API-Key header, then "Authorization: Bearer <key>"
	Sources []APIKeySource `yaml:"sources"`

	// Keys is the list of valid API keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeySource defines where to extract API keys from in HTTP requests.
type APIKeySource struct {
	// Type is the source type.
	// Options: "header", "query"
	Type string `yaml:"type"`

	// Name is the header name or query parameter name.
	// Examples: "Authorization", "X-API-Key", "api_key"
	Name string `yaml:"name"`

	// Scheme is the authentication scheme for header-based extraction.
	// Example: "Bearer" (for "Authorization: Bearer <token>")
	// Leave empty for raw value extraction.
	Scheme string `yaml:"scheme,omitempty"`
}

// APIKeyConfig contains configuration for a single API key.
type APIKeyConfig struct {
	// Key is the API key value.
	Key string `yaml:"key"`

	// UserID is recorded as the user of every call made with this key.
	UserID string `yaml:"user_id"`

	// Disabled rejects the key without removing it from the file.
	Disabled bool `yaml:"disabled,omitempty"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "PUT", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers that are exposed to the client.
	// Default: ["X-Correlation-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed in CORS requests.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// BodyLoggingConfig controls the HTTP body logging middleware.
type BodyLoggingConfig struct {
	// Enabled turns body logging on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// MaxBodySize is the number of bytes of each body that is logged.
	// Default: 10000
	MaxBodySize int `yaml:"max_body_size"`

	// SkipPaths are request paths that are never body-logged.
	// Default: ["/metrics", "/health", "/ready"]
	SkipPaths []string `yaml:"skip_paths"`
}

// CaptureConfig contains the interceptor defaults.
type CaptureConfig struct {
	// Enabled controls whether audited operations produce records at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// CaptureRequest stores serialized call arguments.
	// Default: true
	CaptureRequest bool `yaml:"capture_request"`

	// CaptureResponse stores serialized results of successful calls.
	// Default: true
	CaptureResponse bool `yaml:"capture_response"`

	// MaskFields lists JSON field names whose values are always masked in
	// captured payloads, in addition to per-operation fields.
	// Default: ["password", "token", "secret", "apiKey", "api_key", "authorization", "cvv"]
	MaskFields []string `yaml:"mask_fields"`

	// MaxPayloadSize bounds each captured payload in characters.
	// Default: 4096
	MaxPayloadSize int `yaml:"max_payload_size"`
}

// DispatchConfig contains configuration for the async dispatcher.
type DispatchConfig struct {
	// Workers is the number of goroutines persisting records.
	// Default: 2
	Workers int `yaml:"workers"`

	// BufferSize is the queue capacity. Records arriving at a full queue
	// are dropped.
	// Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// StorageConfig contains configuration for the call history store.
type StorageConfig struct {
	// Backend selects the store.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains configuration for the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite backend configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/callaudit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains call history retention configuration.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps them forever.
	// Default: 90
	Days int `yaml:"days"`

	// MaxRecords caps the number of stored records. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a cron expression for automatic pruning. Empty
	// disables scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes records to JSON before deleting them.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the archive directory.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`
}

// QueryConfig contains configuration for call history queries.
type QueryConfig struct {
	// DefaultLimit is the page size when none is requested.
	// Default: 50
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit is the largest page size accepted.
	// Default: 1000
	MaxLimit int `yaml:"max_limit"`

	// Timeout bounds each query.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
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

	// Sanitize masks credentials and identifiers in every log entry.
	// Default: true
	Sanitize bool `yaml:"sanitize"`
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
	// Default: "callaudit"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "audit"
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig contains OpenTelemetry tracing configuration. Incoming trace
// context is always honored; this section controls whether the service
// exports its own spans.
type TracingConfig struct {
	// Enabled turns span export on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "callaudit"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Sampler selects the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
