package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/callaudit/pkg/audit"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// New returns the exporter for format.
func New(format string, pretty bool) (audit.Exporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONExporter(pretty), nil
	case FormatCSV:
		return NewCSVExporter(true), nil
	default:
		return nil, audit.NewExportError(format, 0, fmt.Errorf("unsupported format %q (want %q or %q)", format, FormatJSON, FormatCSV))
	}
}

// FromStorage streams the records matching filter out of store and into w.
func FromStorage(ctx context.Context, store audit.Storage, filter *audit.Filter, exporter audit.Exporter, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recordsCh, errCh, err := store.Stream(ctx, filter)
	if err != nil {
		return err
	}

	if err := exporter.ExportStream(ctx, recordsCh, w); err != nil {
		return err
	}

	return <-errCh
}
