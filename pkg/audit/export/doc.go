// Package export writes call history records as JSON or CSV.
//
// Both exporters accept a slice (Export) or a channel (ExportStream). The
// streaming form pairs with audit.Storage.Stream so that large histories are
// never held in memory:
//
//	exporter, err := export.New(export.FormatCSV, false)
//	if err != nil {
//	    return err
//	}
//	err = export.FromStorage(ctx, store, audit.Failures(), exporter, os.Stdout)
//
// Records are exported as stored, so payloads are already sanitized.
// Failures are reported as *audit.ExportError carrying the number of records
// written before the error.
package export
