package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/callaudit/pkg/audit/capture"
	"mercator-hq/callaudit/pkg/audit/dispatch"
	"mercator-hq/callaudit/pkg/audit/query"
	"mercator-hq/callaudit/pkg/audit/retention"
	"mercator-hq/callaudit/pkg/cli"
	"mercator-hq/callaudit/pkg/config"
	"mercator-hq/callaudit/pkg/example"
	"mercator-hq/callaudit/pkg/security/auth"
	"mercator-hq/callaudit/pkg/server"
	"mercator-hq/callaudit/pkg/server/handlers"
	"mercator-hq/callaudit/pkg/telemetry/health"
	"mercator-hq/callaudit/pkg/telemetry/metrics"
	"mercator-hq/callaudit/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
	examples      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the call audit server",
	Long: `Start the call audit server with the specified configuration.

The server exposes the call history API, health probes and Prometheus
metrics. Audited operations are persisted in the background and the
retention scheduler prunes old records on its cron schedule.

Examples:
  # Start with default config
  callaudit run

  # Start with custom config
  callaudit run --config /etc/callaudit/config.yaml

  # Override listen address
  callaudit run --listen 0.0.0.0:8080

  # Validate config without starting server
  callaudit run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload the config file when it changes")
	runCmd.Flags().BoolVar(&runFlags.examples, "examples", true, "mount the audited example API")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err.Error())
	}

	logger, err := newLogger(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg, path)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to flush spans", "error", err)
		}
	}()
	if tracer.Enabled() {
		slog.Info("span export enabled",
			"endpoint", cfg.Telemetry.Tracing.Endpoint,
			"sampler", cfg.Telemetry.Tracing.Sampler,
		)
	}

	ctx, cancel := cli.SetupSignalHandler(cmd.Context())
	defer cancel()

	collector := metrics.NewCollector(metrics.OptionsFromConfig(cfg.Telemetry.Metrics), nil)

	slog.Info("opening call history storage", "backend", cfg.Storage.Backend)
	store, err := openStorage(cfg.Storage)
	if err != nil {
		return cli.NewStorageError("run", cfg.Storage.Backend, 0, fmt.Errorf("failed to open storage: %w", err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close storage", "error", err)
		}
	}()

	dispatchCfg := dispatchConfig(cfg.Dispatch)
	dispatcher := dispatch.NewDispatcher(store, dispatchCfg, collector)
	// Registered after store.Close so the queue drains into an open store.
	defer func() {
		if err := dispatcher.Close(); err != nil {
			slog.Error("failed to drain dispatcher", "error", err)
		}
		stats := dispatcher.Stats()
		slog.Info("dispatcher stopped",
			"persisted", stats.Persisted,
			"persist_failed", stats.PersistFailed,
			"dropped", stats.Dropped,
		)
	}()

	interceptor := capture.NewInterceptor(dispatcher, captureOptions(cfg.Capture))
	interceptor.SetObserver(collector)
	interceptor.SetEnabled(cfg.Capture.Enabled)

	querySvc := query.NewService(store, queryLimits(cfg.Query))

	checker := health.New(0)
	checker.RegisterCheck("storage", health.StorageCheck(store))
	checker.RegisterCheck("dispatch_queue", health.QueueCheck(func() int {
		return dispatcher.Stats().QueueDepth
	}, dispatchCfg.BufferSize))

	deps := server.Dependencies{
		CallHistory: handlers.NewCallHistoryHandler(querySvc, store),
		Health:      checker,
		Metrics:     collector,
		Version:     versionInfo(),
	}
	if runFlags.examples {
		deps.Examples = example.NewHandler(example.NewService(example.NewMemoryRepository(), interceptor))
	}

	var apiKeys *auth.APIKeyValidator
	if cfg.Server.Auth.Enabled {
		apiKeys = auth.NewAPIKeyValidator(auth.KeysFromConfig(cfg.Server.Auth.Keys))
		deps.Auth = auth.NewAPIKeyMiddleware(apiKeys, auth.SourcesFromConfig(cfg.Server.Auth.Sources)).Handle
		slog.Info("API key authentication enabled", "keys", len(cfg.Server.Auth.Keys))
	}
	srv := server.NewServer(&cfg.Server, server.NewRouter(cfg, deps))

	reload := &reloader{logger: logger, interceptor: interceptor, query: querySvc, apiKeys: apiKeys}
	unsubscribe := config.Subscribe(reload.apply)
	defer unsubscribe()

	pruner := retention.NewPruner(store, retentionConfig(cfg.Retention), collector)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting HTTP server", "address", cfg.Server.ListenAddress)
		if err := srv.Start(gctx); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if err := pruner.Start(gctx); err != nil {
		slog.Warn("failed to start retention scheduler", "error", err)
	} else {
		defer pruner.Stop()
		if next := pruner.NextPruning(); next != nil {
			slog.Debug("retention scheduler started", "next_pruning", next)
		}
	}

	if runFlags.watch && path != "" {
		watcher, err := config.NewWatcher(path, 0)
		if err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		} else {
			defer watcher.Stop()
			g.Go(func() error {
				if err := watcher.Watch(gctx); err != nil {
					// Losing hot reload does not stop the server.
					slog.Error("config watcher failed", "error", err)
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config, path string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Callaudit v%s\n", Version)
	if path != "" {
		fmt.Fprintf(out, "Loading configuration from: %s\n", path)
	} else {
		fmt.Fprintln(out, "No config file, using defaults and environment")
	}
	fmt.Fprintln(out, "✓ Configuration loaded")

	slog.Debug("capture settings",
		"enabled", cfg.Capture.Enabled,
		"capture_request", cfg.Capture.CaptureRequest,
		"capture_response", cfg.Capture.CaptureResponse,
		"max_payload_size", cfg.Capture.MaxPayloadSize,
	)
	slog.Debug("dispatch settings",
		"workers", cfg.Dispatch.Workers,
		"buffer_size", cfg.Dispatch.BufferSize,
	)
}
