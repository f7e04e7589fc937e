package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Body logging defaults
	DefaultBodyLoggingEnabled = true
	DefaultBodyLoggingMaxSize = 10000

	// Capture defaults
	DefaultCaptureEnabled  = true
	DefaultCaptureRequest  = true
	DefaultCaptureResponse = true
	DefaultMaxPayloadSize  = 4096

	// Dispatch defaults
	DefaultDispatchWorkers      = 2
	DefaultDispatchBufferSize   = 1000
	DefaultDispatchWriteTimeout = 5 * time.Second

	// Storage defaults
	DefaultStorageBackend     = "sqlite"
	DefaultSQLitePath         = "data/callaudit.db"
	DefaultSQLiteDriver       = "sqlite3"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteMaxIdleConns = 5
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Retention defaults
	DefaultRetentionDays        = 90
	DefaultRetentionSchedule    = "0 3 * * *"
	DefaultRetentionArchivePath = "data/archives/"

	// Query defaults
	DefaultQueryDefaultLimit = 50
	DefaultQueryMaxLimit     = 1000
	DefaultQueryTimeout      = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultLoggingSanitize  = true
	DefaultMetricsEnabled   = true
	DefaultPrometheusPath   = "/metrics"
	DefaultMetricsNamespace = "callaudit"
	DefaultMetricsSubsystem = "audit"

	// Tracing defaults
	DefaultTracingServiceName = "callaudit"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
)

// Default list values.
var (
	DefaultCORSAllowedOrigins = []string{"*"}
	DefaultCORSAllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	DefaultCORSAllowedHeaders = []string{"Authorization", "Content-Type", "X-API-Key", "X-Correlation-ID", "X-Trace-ID", "X-User-ID"}
	DefaultCORSExposedHeaders = []string{"X-Correlation-ID"}

	DefaultBodyLoggingSkipPaths = []string{"/metrics", "/health", "/ready"}

	// DefaultAPIKeySources are checked in order when auth is enabled.
	DefaultAPIKeySources = []APIKeySource{
		{Type: "header", Name: "X-API-Key"},
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
	}

	DefaultMaskFields = []string{"password", "token", "secret", "apiKey", "api_key", "authorization", "cvv"}
)

// DefaultConfig returns a configuration with every field at its default.
// LoadConfig decodes YAML on top of it, so booleans that default to true
// stay true unless the file sets them.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			CORS: CORSConfig{
				Enabled: DefaultCORSEnabled,
			},
			BodyLogging: BodyLoggingConfig{
				Enabled: DefaultBodyLoggingEnabled,
			},
		},
		Capture: CaptureConfig{
			Enabled:         DefaultCaptureEnabled,
			CaptureRequest:  DefaultCaptureRequest,
			CaptureResponse: DefaultCaptureResponse,
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				WALMode: DefaultSQLiteWALMode,
			},
		},
		Retention: RetentionConfig{
			Days:          DefaultRetentionDays,
			PruneSchedule: DefaultRetentionSchedule,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Sanitize: DefaultLoggingSanitize,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				SampleRatio: DefaultTracingSampleRatio,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean and
// zero-meaningful fields (retention days, schedule) are left alone; those
// defaults come from DefaultConfig.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	applyCORSDefaults(&cfg.Server.CORS)

	if cfg.Server.BodyLogging.MaxBodySize == 0 {
		cfg.Server.BodyLogging.MaxBodySize = DefaultBodyLoggingMaxSize
	}
	if cfg.Server.BodyLogging.SkipPaths == nil {
		cfg.Server.BodyLogging.SkipPaths = clone(DefaultBodyLoggingSkipPaths)
	}
	if cfg.Server.Auth.Sources == nil {
		cfg.Server.Auth.Sources = append([]APIKeySource(nil), DefaultAPIKeySources...)
	}

	// Capture defaults
	if cfg.Capture.MaskFields == nil {
		cfg.Capture.MaskFields = clone(DefaultMaskFields)
	}
	if cfg.Capture.MaxPayloadSize == 0 {
		cfg.Capture.MaxPayloadSize = DefaultMaxPayloadSize
	}

	// Dispatch defaults
	if cfg.Dispatch.Workers == 0 {
		cfg.Dispatch.Workers = DefaultDispatchWorkers
	}
	if cfg.Dispatch.BufferSize == 0 {
		cfg.Dispatch.BufferSize = DefaultDispatchBufferSize
	}
	if cfg.Dispatch.WriteTimeout == 0 {
		cfg.Dispatch.WriteTimeout = DefaultDispatchWriteTimeout
	}

	// Storage defaults
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Storage.SQLite.Driver == "" {
		cfg.Storage.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Storage.SQLite.MaxOpenConns == 0 {
		cfg.Storage.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Storage.SQLite.MaxIdleConns == 0 {
		cfg.Storage.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Retention defaults
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = DefaultRetentionArchivePath
	}

	// Query defaults
	if cfg.Query.DefaultLimit == 0 {
		cfg.Query.DefaultLimit = DefaultQueryDefaultLimit
	}
	if cfg.Query.MaxLimit == 0 {
		cfg.Query.MaxLimit = DefaultQueryMaxLimit
	}
	if cfg.Query.Timeout == 0 {
		cfg.Query.Timeout = DefaultQueryTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}

	// Tracing defaults
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
}

func applyCORSDefaults(cors *CORSConfig) {
	if cors.AllowedOrigins == nil {
		cors.AllowedOrigins = clone(DefaultCORSAllowedOrigins)
	}
	if cors.AllowedMethods == nil {
		cors.AllowedMethods = clone(DefaultCORSAllowedMethods)
	}
	if cors.AllowedHeaders == nil {
		cors.AllowedHeaders = clone(DefaultCORSAllowedHeaders)
	}
	if cors.ExposedHeaders == nil {
		cors.ExposedHeaders = clone(DefaultCORSExposedHeaders)
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
