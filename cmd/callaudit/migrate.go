package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callaudit/pkg/audit/storage"
	"mercator-hq/callaudit/pkg/cli"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending call history schema migrations",
	Long: `Create or upgrade the SQLite call history schema and print the
resulting schema version.

The server applies migrations on startup as well; this command is for
preparing a database ahead of a deployment.`,
	Args: cobra.NoArgs,
	RunE: migrateSchema,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrateSchema(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := newLogger(cfg.Telemetry.Logging, os.Stderr); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if cfg.Storage.Backend != storage.BackendSQLite {
		return cli.NewConfigError("storage.backend", fmt.Sprintf("migrations only apply to the %s backend, got %q", storage.BackendSQLite, cfg.Storage.Backend))
	}

	// Opening the store applies every pending migration.
	store, err := storage.NewSQLiteStorage(sqliteConfig(cfg.Storage.SQLite))
	if err != nil {
		return cli.NewStorageError("migrate", storage.BackendSQLite, 0, err)
	}
	defer store.Close()

	version, err := storage.SchemaVersion(store.DB())
	if err != nil {
		return cli.NewStorageError("migrate", storage.BackendSQLite, 0, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s at schema version %d\n", cfg.Storage.SQLite.Path, version)
	return nil
}
