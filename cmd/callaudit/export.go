package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/spf13/cobra"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/export"
	"mercator-hq/callaudit/pkg/cli"
	"mercator-hq/callaudit/pkg/server/handlers"
)

var exportFlags struct {
	backend       string
	format        string
	output        string
	pretty        bool
	progress      bool
	from          string
	to            string
	correlationID string
	path          string
	success       string
	failures      bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export call history records",
	Long: `Export call history records to JSON or CSV.

Records are streamed from the store, so exports of any size run in
constant memory. At most one filter may be given; without one every
record is exported.

Examples:
  # Everything as JSON
  callaudit export --output history.json

  # Failed calls as CSV
  callaudit export --failures --format csv --output failures.csv

  # One day, with a progress bar
  callaudit export --from 2026-03-01T00:00:00Z --to 2026-03-01T23:59:59Z -o day.json --progress`,
	Args: cobra.NoArgs,
	RunE: exportHistory,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFlags.backend, "backend", "", "storage backend: sqlite, memory (uses config if not specified)")
	exportCmd.Flags().StringVar(&exportFlags.format, "format", export.FormatJSON, "export format: json, csv")
	exportCmd.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().BoolVar(&exportFlags.pretty, "pretty", false, "indent JSON output")
	exportCmd.Flags().BoolVar(&exportFlags.progress, "progress", false, "report progress on stderr")
	exportCmd.Flags().StringVar(&exportFlags.from, "from", "", "start of the date range (ISO-8601, inclusive)")
	exportCmd.Flags().StringVar(&exportFlags.to, "to", "", "end of the date range (ISO-8601, inclusive)")
	exportCmd.Flags().StringVar(&exportFlags.correlationID, "correlation-id", "", "only records of this request chain")
	exportCmd.Flags().StringVar(&exportFlags.path, "path", "", "only records for this exact request path")
	exportCmd.Flags().StringVar(&exportFlags.success, "success", "", "only records with this outcome (true, false)")
	exportCmd.Flags().BoolVar(&exportFlags.failures, "failures", false, "only failed calls")

	exportCmd.MarkFlagsRequiredTogether("from", "to")
	exportCmd.MarkFlagsMutuallyExclusive("from", "correlation-id", "path", "success", "failures")
}

func exportHistory(cmd *cobra.Command, args []string) error {
	exporter, err := export.New(exportFlags.format, exportFlags.pretty)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	filter, err := exportFilter()
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
	if exportFlags.backend != "" {
		storageCfg.Backend = exportFlags.backend
	}
	store, err := openStorage(storageCfg)
	if err != nil {
		return cli.NewStorageError("export", storageCfg.Backend, 0, fmt.Errorf("failed to open storage: %w", err))
	}
	defer store.Close()

	var progress cli.ProgressReporter
	if exportFlags.progress {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "Exporting")
	}

	return writeOutput(cmd, exportFlags.output, func(w io.Writer) error {
		n, err := exportRecords(cmd.Context(), store, filter, exporter, w, progress)
		if err != nil {
			return cli.NewStorageError("export", storageCfg.Backend, n, err)
		}
		return nil
	})
}

// exportFilter builds the storage filter from the export flags. A nil
// filter exports every record.
func exportFilter() (*audit.Filter, error) {
	switch {
	case exportFlags.from != "" || exportFlags.to != "":
		from, ok := handlers.ParseDateTime(exportFlags.from)
		if !ok {
			return nil, cli.NewConfigError("from", fmt.Sprintf("%q is not an ISO-8601 date-time", exportFlags.from))
		}
		to, ok := handlers.ParseDateTime(exportFlags.to)
		if !ok {
			return nil, cli.NewConfigError("to", fmt.Sprintf("%q is not an ISO-8601 date-time", exportFlags.to))
		}
		if from.After(to) {
			return nil, cli.NewConfigError("from", "must not be after --to")
		}
		return audit.ByDateRange(from, to), nil
	case exportFlags.correlationID != "":
		return audit.ByCorrelationID(exportFlags.correlationID), nil
	case exportFlags.path != "":
		return audit.ByPath(exportFlags.path), nil
	case exportFlags.success != "":
		success, err := strconv.ParseBool(exportFlags.success)
		if err != nil {
			return nil, cli.NewConfigError("success", fmt.Sprintf("%q is not a boolean", exportFlags.success))
		}
		return audit.BySuccess(success), nil
	case exportFlags.failures:
		return audit.Failures(), nil
	default:
		return nil, nil
	}
}

// exportRecords streams the records matching filter into w and returns how
// many were handed to the exporter. With a progress reporter the matching
// records are counted first and every record written advances the bar.
func exportRecords(ctx context.Context, store audit.Storage, filter *audit.Filter, exporter audit.Exporter, w io.Writer, progress cli.ProgressReporter) (int64, error) {
	if progress != nil {
		total, err := store.Count(ctx, filter)
		if err != nil {
			return 0, err
		}
		progress.Start(total)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var written atomic.Int64
	fail := func(err error) (int64, error) {
		if progress != nil {
			progress.Error(err)
		}
		return written.Load(), err
	}

	recordsCh, errCh, err := store.Stream(ctx, filter)
	if err != nil {
		return fail(err)
	}

	counted := make(chan *audit.Record)
	go func() {
		defer close(counted)
		for record := range recordsCh {
			select {
			case counted <- record:
			case <-ctx.Done():
				return
			}
			n := written.Add(1)
			if progress != nil {
				progress.Update(n)
			}
		}
	}()

	if err := exporter.ExportStream(ctx, counted, w); err != nil {
		return fail(err)
	}
	if err := <-errCh; err != nil {
		return fail(err)
	}

	if progress != nil {
		progress.Finish()
	}
	return written.Load(), nil
}
