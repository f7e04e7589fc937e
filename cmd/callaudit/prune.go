package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callaudit/pkg/audit/retention"
	"mercator-hq/callaudit/pkg/cli"
)

var pruneFlags struct {
	backend    string
	days       int
	maxRecords int64
	archive    bool
	format     string
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete call history records that fall outside the retention policy.

Records older than retention.days are deleted first, then the oldest
records beyond retention.max_records. Flags override the configured
values for this run only.

Examples:
  # Apply the configured policy
  callaudit prune

  # Keep one week, archiving what is deleted
  callaudit prune --days 7 --archive`,
	Args: cobra.NoArgs,
	RunE: pruneHistory,
}

func init() {
	rootCmd.AddCommand(pruneCmd)

	pruneCmd.Flags().StringVar(&pruneFlags.backend, "backend", "", "storage backend: sqlite, memory (uses config if not specified)")
	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", -1, "retention in days, 0 keeps records forever (default from config)")
	pruneCmd.Flags().Int64Var(&pruneFlags.maxRecords, "max-records", -1, "maximum records to keep, 0 is unlimited (default from config)")
	pruneCmd.Flags().BoolVar(&pruneFlags.archive, "archive", false, "archive records to JSON before deleting them")
	pruneCmd.Flags().StringVar(&pruneFlags.format, "format", "text", "output format: text, json")
}

func pruneHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(pruneFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return cli.NewConfigError("format", "prune results are available as text or json")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := newLogger(cfg.Telemetry.Logging, os.Stderr); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	retentionCfg := retentionConfig(cfg.Retention)
	if pruneFlags.days >= 0 {
		retentionCfg.RetentionDays = pruneFlags.days
	}
	if pruneFlags.maxRecords >= 0 {
		retentionCfg.MaxRecords = pruneFlags.maxRecords
	}
	if pruneFlags.archive {
		retentionCfg.ArchiveBeforeDelete = true
	}

	storageCfg := cfg.Storage
	if pruneFlags.backend != "" {
		storageCfg.Backend = pruneFlags.backend
	}
	store, err := openStorage(storageCfg)
	if err != nil {
		return cli.NewStorageError("prune", storageCfg.Backend, 0, fmt.Errorf("failed to open storage: %w", err))
	}
	defer store.Close()

	result, err := retention.NewPruner(store, retentionCfg, nil).Prune(cmd.Context())
	if err != nil {
		return cli.NewStorageError("prune", storageCfg.Backend, 0, err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Pruned %d records (%d by age, %d by count)\n", result.Total(), result.DeletedByAge, result.DeletedByCount)
	for _, archive := range result.Archives {
		fmt.Fprintf(out, "  archived to %s\n", archive)
	}
	return nil
}
