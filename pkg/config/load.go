package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "CALLAUDIT_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of DefaultConfig, remaining zero fields are
// defaulted, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	return Parse(data, path)
}

// Parse decodes YAML configuration. name is used in error messages only.
func Parse(data []byte, name string) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", name, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CALLAUDIT_SECTION_FIELD (e.g., CALLAUDIT_SERVER_LISTEN_ADDRESS)
// and always take precedence over the file.
//
// An empty path skips the file and starts from DefaultConfig.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CALLAUDIT_* environment variables. Values that
// fail to parse are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envBool("SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)
	envList("SERVER_CORS_ALLOWED_ORIGINS", &cfg.Server.CORS.AllowedOrigins)
	envBool("SERVER_BODY_LOGGING_ENABLED", &cfg.Server.BodyLogging.Enabled)
	envInt("SERVER_BODY_LOGGING_MAX_BODY_SIZE", &cfg.Server.BodyLogging.MaxBodySize)
	envBool("SERVER_AUTH_ENABLED", &cfg.Server.Auth.Enabled)

	// Capture overrides
	envBool("CAPTURE_ENABLED", &cfg.Capture.Enabled)
	envBool("CAPTURE_CAPTURE_REQUEST", &cfg.Capture.CaptureRequest)
	envBool("CAPTURE_CAPTURE_RESPONSE", &cfg.Capture.CaptureResponse)
	envList("CAPTURE_MASK_FIELDS", &cfg.Capture.MaskFields)
	envInt("CAPTURE_MAX_PAYLOAD_SIZE", &cfg.Capture.MaxPayloadSize)

	// Dispatch overrides
	envInt("DISPATCH_WORKERS", &cfg.Dispatch.Workers)
	envInt("DISPATCH_BUFFER_SIZE", &cfg.Dispatch.BufferSize)
	envDuration("DISPATCH_WRITE_TIMEOUT", &cfg.Dispatch.WriteTimeout)

	// Storage overrides
	envString("STORAGE_BACKEND", &cfg.Storage.Backend)
	envString("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("STORAGE_SQLITE_DRIVER", &cfg.Storage.SQLite.Driver)
	envBool("STORAGE_SQLITE_WAL_MODE", &cfg.Storage.SQLite.WALMode)
	envDuration("STORAGE_SQLITE_BUSY_TIMEOUT", &cfg.Storage.SQLite.BusyTimeout)

	// Retention overrides
	envInt("RETENTION_DAYS", &cfg.Retention.Days)
	if val := os.Getenv(EnvPrefix + "RETENTION_MAX_RECORDS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Retention.MaxRecords = i
		}
	}
	envString("RETENTION_PRUNE_SCHEDULE", &cfg.Retention.PruneSchedule)
	envBool("RETENTION_ARCHIVE_BEFORE_DELETE", &cfg.Retention.ArchiveBeforeDelete)
	envString("RETENTION_ARCHIVE_PATH", &cfg.Retention.ArchivePath)

	// Query overrides
	envInt("QUERY_DEFAULT_LIMIT", &cfg.Query.DefaultLimit)
	envInt("QUERY_MAX_LIMIT", &cfg.Query.MaxLimit)
	envDuration("QUERY_TIMEOUT", &cfg.Query.Timeout)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_SANITIZE", &cfg.Telemetry.Logging.Sanitize)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envList parses a comma-separated list, dropping empty elements.
func envList(key string, dst *[]string) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
