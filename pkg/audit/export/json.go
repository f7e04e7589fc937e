package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/callaudit/pkg/audit"
)

// JSONExporter exports call history records as a JSON array.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes records to w as a JSON array. An empty input yields "[]".
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if records == nil {
		records = []*audit.Record{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return audit.NewExportError(FormatJSON, 0, err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError(FormatJSON, 0, err)
	}
	return nil
}

// ExportStream writes records from a channel as a JSON array, one record at
// a time, until the channel closes.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return audit.NewExportError(FormatJSON, 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return audit.NewExportError(FormatJSON, recordCount, ctx.Err())

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]"
				if e.Pretty && !first {
					closing = "\n]"
				}
				if _, err := w.Write([]byte(closing)); err != nil {
					return audit.NewExportError(FormatJSON, recordCount, err)
				}
				return nil
			}

			sep := ","
			if first {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return audit.NewExportError(FormatJSON, recordCount, err)
			}

			if _, err := w.Write(append([]byte(sep), data...)); err != nil {
				return audit.NewExportError(FormatJSON, recordCount, err)
			}

			recordCount++
		}
	}
}

func (e *JSONExporter) serializeRecord(record *audit.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
