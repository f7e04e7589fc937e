package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
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

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCapture(&cfg.Capture)...)
	errs = append(errs, validateDispatch(&cfg.Dispatch)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateQuery(&cfg.Query)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.idle_timeout", Message: "idle timeout must be positive"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be positive"})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	if cfg.CORS.MaxAge < 0 {
		errs = append(errs, FieldError{Field: "server.cors.max_age", Message: "max age must be non-negative"})
	}

	if cfg.BodyLogging.MaxBodySize < 0 {
		errs = append(errs, FieldError{
			Field:   "server.body_logging.max_body_size",
			Message: "max body size must be non-negative",
		})
	}

	errs = append(errs, validateAuth(&cfg.Auth)...)

	return errs
}

func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	for i, src := range cfg.Sources {
		field := fmt.Sprintf("server.auth.sources[%d]", i)
		if src.Type != "header" && src.Type != "query" {
			errs = append(errs, FieldError{
				Field:   field + ".type",
				Message: fmt.Sprintf("invalid source type %q (must be header or query)", src.Type),
			})
		}
		if src.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "source name is required"})
		}
	}

	seen := make(map[string]bool, len(cfg.Keys))
	for i, key := range cfg.Keys {
		field := fmt.Sprintf("server.auth.keys[%d]", i)
		if key.Key == "" {
			errs = append(errs, FieldError{Field: field + ".key", Message: "key is required"})
			continue
		}
		if seen[key.Key] {
			errs = append(errs, FieldError{Field: field + ".key", Message: "duplicate API key"})
		}
		seen[key.Key] = true
	}

	if cfg.Enabled {
		if len(cfg.Sources) == 0 {
			errs = append(errs, FieldError{Field: "server.auth.sources", Message: "at least one source is required when auth is enabled"})
		}
		if len(cfg.Keys) == 0 {
			errs = append(errs, FieldError{Field: "server.auth.keys", Message: "at least one key is required when auth is enabled"})
		}
	}

	return errs
}

func validateCapture(cfg *CaptureConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxPayloadSize < 0 {
		errs = append(errs, FieldError{
			Field:   "capture.max_payload_size",
			Message: "max payload size must be non-negative",
		})
	}

	for i, field := range cfg.MaskFields {
		if strings.TrimSpace(field) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("capture.mask_fields[%d]", i),
				Message: "mask field name must not be empty",
			})
		}
	}

	return errs
}

func validateDispatch(cfg *DispatchConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers < 1 {
		errs = append(errs, FieldError{Field: "dispatch.workers", Message: "at least one worker is required"})
	}
	if cfg.BufferSize < 1 {
		errs = append(errs, FieldError{Field: "dispatch.buffer_size", Message: "buffer size must be positive"})
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, FieldError{Field: "dispatch.write_timeout", Message: "write timeout must be positive"})
	}

	return errs
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "path is required for the sqlite backend",
			})
		}
		if cfg.SQLite.Driver != "sqlite3" && cfg.SQLite.Driver != "sqlite" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite3' or 'sqlite'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.max_open_conns",
				Message: "max open connections must be positive",
			})
		}
		if cfg.SQLite.MaxIdleConns < 0 || cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.max_idle_conns",
				Message: "max idle connections must be between 0 and max_open_conns",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.busy_timeout",
				Message: "busy timeout must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}

	return errs
}

func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.Days < 0 {
		errs = append(errs, FieldError{Field: "retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "retention.max_records", Message: "max records must be non-negative"})
	}

	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err),
			})
		}
	}

	if cfg.ArchiveBeforeDelete && cfg.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "retention.archive_path",
			Message: "archive path is required when archive_before_delete is enabled",
		})
	}

	return errs
}

func validateQuery(cfg *QueryConfig) []FieldError {
	var errs []FieldError

	if cfg.DefaultLimit < 1 {
		errs = append(errs, FieldError{Field: "query.default_limit", Message: "default limit must be positive"})
	}
	if cfg.MaxLimit < 1 {
		errs = append(errs, FieldError{Field: "query.max_limit", Message: "max limit must be positive"})
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		errs = append(errs, FieldError{
			Field:   "query.default_limit",
			Message: fmt.Sprintf("default limit %d exceeds max limit %d", cfg.DefaultLimit, cfg.MaxLimit),
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "query.timeout", Message: "timeout must be non-negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
	}


	tr := cfg.Tracing
	switch tr.Sampler {
	case "always", "never", "ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", tr.Sampler),
		})
	}
	if tr.SampleRatio < 0 || tr.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: fmt.Sprintf("sample ratio must be between 0.0 and 1.0, got %g", tr.SampleRatio),
		})
	}
	if tr.Enabled && tr.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if tr.Timeout < 0 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.timeout", Message: "timeout must be non-negative"})
	}
	return errs
}
