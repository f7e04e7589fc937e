package main

import (
	"fmt"
	"io"
	"log/slog"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/capture"
	"mercator-hq/callaudit/pkg/audit/dispatch"
	"mercator-hq/callaudit/pkg/audit/query"
	"mercator-hq/callaudit/pkg/audit/retention"
	"mercator-hq/callaudit/pkg/audit/storage"
	"mercator-hq/callaudit/pkg/config"
	"mercator-hq/callaudit/pkg/security/auth"
	"mercator-hq/callaudit/pkg/telemetry/logging"
)

// newLogger builds the process logger from the telemetry configuration and
// installs it as the slog default. verbose forces the debug level.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*logging.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Format,
		AddSource: cfg.AddSource,
		Sanitize:  cfg.Sanitize,
		Writer:    w,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	slog.SetDefault(logger.Slog())
	return logger, nil
}

func openStorage(cfg config.StorageConfig) (audit.Storage, error) {
	return storage.Open(cfg.Backend, sqliteConfig(cfg.SQLite))
}

func sqliteConfig(cfg config.SQLiteConfig) *storage.SQLiteConfig {
	return &storage.SQLiteConfig{
		Path:         cfg.Path,
		Driver:       cfg.Driver,
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
		WALMode:      cfg.WALMode,
		BusyTimeout:  cfg.BusyTimeout,
	}
}

func dispatchConfig(cfg config.DispatchConfig) *dispatch.Config {
	return &dispatch.Config{
		BufferSize:   cfg.BufferSize,
		Workers:      cfg.Workers,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func captureOptions(cfg config.CaptureConfig) capture.Options {
	return capture.Options{
		CaptureRequest:  cfg.CaptureRequest,
		CaptureResponse: cfg.CaptureResponse,
		MaskFields:      cfg.MaskFields,
		MaxPayloadSize:  cfg.MaxPayloadSize,
	}
}

func queryLimits(cfg config.QueryConfig) query.Limits {
	return query.Limits{
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}
}

func retentionConfig(cfg config.RetentionConfig) *retention.Config {
	return &retention.Config{
		RetentionDays:       cfg.Days,
		PruneSchedule:       cfg.PruneSchedule,
		ArchiveBeforeDelete: cfg.ArchiveBeforeDelete,
		ArchivePath:         cfg.ArchivePath,
		MaxRecords:          cfg.MaxRecords,
	}
}

// reloader applies the hot-reloadable part of a new configuration to the
// running components. Listener, storage and dispatcher settings need a
// restart, as does turning API key auth on or off.
type reloader struct {
	logger      *logging.Logger
	interceptor *capture.Interceptor
	query       *query.Service
	apiKeys     *auth.APIKeyValidator
}

func (r *reloader) apply(cfg *config.Config) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := r.logger.SetLevel(level); err != nil {
		slog.Warn("ignoring invalid log level from reloaded config", "level", level, "error", err)
	}
	r.interceptor.SetDefaults(captureOptions(cfg.Capture))
	r.interceptor.SetEnabled(cfg.Capture.Enabled)
	r.query.SetLimits(queryLimits(cfg.Query))
	if r.apiKeys != nil {
		r.apiKeys.Replace(auth.KeysFromConfig(cfg.Server.Auth.Keys))
	}

	slog.Info("applied reloaded configuration",
		"capture_enabled", cfg.Capture.Enabled,
		"log_level", cfg.Telemetry.Logging.Level,
		"query_max_limit", cfg.Query.MaxLimit,
		"api_keys", len(cfg.Server.Auth.Keys),
	)
}
