package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/callaudit/pkg/audit/query"
	"mercator-hq/callaudit/pkg/cli"
	"mercator-hq/callaudit/pkg/server/handlers"
)

var historyFlags struct {
	backend string
	format  string
	output  string
	limit   int
	offset  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the call history",
	Long: `Query call history records directly from the configured store.

The history command runs the same queries as the call history API without
going through a running server. Lists are ordered newest first.

Subcommands:
  list         - Page through all records
  get          - Show one record by id
  range        - Records created within a date-time range
  correlation  - Every call of one request chain
  path         - Records for an exact request path
  success      - Records by outcome
  failures     - Failed calls

Examples:
  # Latest 20 calls as a table
  callaudit history list --limit 20

  # One request chain as JSON
  callaudit history correlation 3f2b9c1e-7d4a-4f7e-9f1a-2b8c0d6e5a41 --format json

  # Calls between two instants as CSV
  callaudit history range 2026-03-01T00:00:00Z 2026-03-02T00:00:00Z --format csv`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records page by page",
	Args:  cobra.NoArgs,
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		return svc.List(ctx, historyFlags.limit, historyFlags.offset)
	}),
}

var historyGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", args[0], err)
		}
		return svc.GetByID(ctx, id)
	}),
}

var historyRangeCmd = &cobra.Command{
	Use:   "range <from> <to>",
	Short: "List records created between two ISO-8601 date-times, inclusive",
	Args:  cobra.ExactArgs(2),
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		from, ok := handlers.ParseDateTime(args[0])
		if !ok {
			return nil, fmt.Errorf("invalid from %q: want an ISO-8601 date-time", args[0])
		}
		to, ok := handlers.ParseDateTime(args[1])
		if !ok {
			return nil, fmt.Errorf("invalid to %q: want an ISO-8601 date-time", args[1])
		}
		return svc.ByDateRange(ctx, from, to)
	}),
}

var historyCorrelationCmd = &cobra.Command{
	Use:   "correlation <correlation-id>",
	Short: "List every record of one request chain",
	Args:  cobra.ExactArgs(1),
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		return svc.ByCorrelationID(ctx, args[0])
	}),
}

var historyPathCmd = &cobra.Command{
	Use:   "path <path>",
	Short: "List records for an exact request path",
	Args:  cobra.ExactArgs(1),
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		return svc.ByPath(ctx, args[0])
	}),
}

var historySuccessCmd = &cobra.Command{
	Use:       "success <true|false>",
	Short:     "List records by outcome",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"true", "false"},
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		success, err := strconv.ParseBool(args[0])
		if err != nil {
			return nil, fmt.Errorf("invalid outcome %q: want true or false", args[0])
		}
		return svc.BySuccess(ctx, success)
	}),
}

var historyFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List failed calls",
	Args:  cobra.NoArgs,
	RunE: historyRunE(func(ctx context.Context, svc *query.Service, args []string) (any, error) {
		return svc.Failures(ctx)
	}),
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(
		historyListCmd,
		historyGetCmd,
		historyRangeCmd,
		historyCorrelationCmd,
		historyPathCmd,
		historySuccessCmd,
		historyFailuresCmd,
	)

	historyCmd.PersistentFlags().StringVar(&historyFlags.backend, "backend", "", "storage backend: sqlite, memory (uses config if not specified)")
	historyCmd.PersistentFlags().StringVar(&historyFlags.format, "format", "text", "output format: text, json, csv")
	historyCmd.PersistentFlags().StringVarP(&historyFlags.output, "output", "o", "", "output file (default: stdout)")

	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 0, "page size (default from query.default_limit)")
	historyListCmd.Flags().IntVar(&historyFlags.offset, "offset", 0, "offset of the first record; snaps down to a page boundary")
}

// historyQuery runs one call history query.
type historyQuery func(ctx context.Context, svc *query.Service, args []string) (any, error)

// historyRunE opens the configured store, runs q and prints the result in
// the requested format.
func historyRunE(q historyQuery) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(historyFlags.format)
		if err != nil {
			return err
		}

		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := newLogger(cfg.Telemetry.Logging, os.Stderr); err != nil {
			return cli.NewConfigError("telemetry.logging", err.Error())
		}

		storageCfg := cfg.Storage
		if historyFlags.backend != "" {
			storageCfg.Backend = historyFlags.backend
		}
		store, err := openStorage(storageCfg)
		if err != nil {
			return cli.NewStorageError(cmd.CommandPath(), storageCfg.Backend, 0, fmt.Errorf("failed to open storage: %w", err))
		}
		defer store.Close()

		ctx := cmd.Context()
		if cfg.Query.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Query.Timeout)
			defer cancel()
		}

		result, err := q(ctx, query.NewService(store, queryLimits(cfg.Query)), args)
		if err != nil {
			return cli.NewStorageError(cmd.CommandPath(), storageCfg.Backend, 0, err)
		}

		return writeOutput(cmd, historyFlags.output, func(w io.Writer) error {
			return cli.NewFormatter(format).FormatTo(w, result)
		})
	}
}

// writeOutput runs write against the --output file, or stdout when path is
// empty.
func writeOutput(cmd *cobra.Command, path string, write func(w io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", path)
	return nil
}
