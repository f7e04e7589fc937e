/*
Package cli provides command-line helpers for the callaudit command.

The cli package includes output formatters for call history records,
a progress reporter for long exports, signal handling and the error types
returned by commands.

Output Formatting:

History commands print records as a table (text), JSON or CSV:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, records); err != nil {
		return err
	}

Text output renders a slice of records as a table and a single record as a
field list. CSV output uses the same columns as the export endpoint.

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "Exporting")
	progress.Start(total)
	progress.Update(written)
	progress.Finish()

Errors:

Commands return a ConfigError for a bad flag or configuration key and a
CommandError when the work itself fails. Failures against the store carry
the backend and how many records were handled:

	return cli.NewStorageError("export", "sqlite", written, err)
	// export failed on sqlite storage after 120 records: database is locked

Signal Handling:

	ctx, cancel := cli.SetupSignalHandler(context.Background())
	defer cancel()
	// ctx is cancelled on the first SIGINT/SIGTERM
*/
package cli
