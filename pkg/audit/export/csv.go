package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"mercator-hq/callaudit/pkg/audit"
)

// column maps one CSV column to a record field.
type column struct {
	name  string
	value func(r *audit.Record) string
}

var columns = []column{
	{"id", func(r *audit.Record) string { return strconv.FormatInt(r.ID, 10) }},
	{"created_at", func(r *audit.Record) string { return formatTime(r.CreatedAt) }},
	{"correlation_id", func(r *audit.Record) string { return r.CorrelationID }},
	{"trace_id", func(r *audit.Record) string { return lo.FromPtr(r.TraceID) }},
	{"http_method", func(r *audit.Record) string { return lo.FromPtr(r.Method) }},
	{"path", func(r *audit.Record) string { return lo.FromPtr(r.Path) }},
	{"handler", func(r *audit.Record) string { return r.Handler }},
	{"http_status", func(r *audit.Record) string {
		if r.HTTPStatus == nil {
			return ""
		}
		return strconv.Itoa(*r.HTTPStatus)
	}},
	{"success", func(r *audit.Record) string { return strconv.FormatBool(r.Success) }},
	{"duration_ms", func(r *audit.Record) string { return strconv.FormatInt(r.DurationMs, 10) }},
	{"client_ip", func(r *audit.Record) string { return lo.FromPtr(r.ClientIP) }},
	{"user_agent", func(r *audit.Record) string { return lo.FromPtr(r.UserAgent) }},
	{"user_id", func(r *audit.Record) string { return lo.FromPtr(r.UserID) }},
	{"query_params", func(r *audit.Record) string { return lo.FromPtr(r.QueryParams) }},
	{"request_body", func(r *audit.Record) string { return lo.FromPtr(r.RequestBody) }},
	{"response_body", func(r *audit.Record) string { return lo.FromPtr(r.ResponseBody) }},
	{"error_type", func(r *audit.Record) string { return lo.FromPtr(r.ErrorType) }},
	{"error_message", func(r *audit.Record) string { return lo.FromPtr(r.ErrorMessage) }},
	{"error_stacktrace", func(r *audit.Record) string { return lo.FromPtr(r.ErrorStacktrace) }},
}

// CSVExporter exports call history records to CSV, one row per record.
// Absent optional fields become empty cells.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool

	// OmitStacktrace drops the error_stacktrace column, which is often
	// multi-line and large.
	OmitStacktrace bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(e.header()); err != nil {
			return audit.NewExportError(FormatCSV, 0, err)
		}
	}

	for i, record := range records {
		if err := writer.Write(e.row(record)); err != nil {
			return audit.NewExportError(FormatCSV, i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError(FormatCSV, len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel to CSV until the channel
// closes, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(e.header()); err != nil {
			return audit.NewExportError(FormatCSV, 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return audit.NewExportError(FormatCSV, recordCount, ctx.Err())

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError(FormatCSV, recordCount, err)
				}
				return nil
			}

			if err := writer.Write(e.row(record)); err != nil {
				return audit.NewExportError(FormatCSV, recordCount, err)
			}

			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError(FormatCSV, recordCount, err)
				}
			}
		}
	}
}

func (e *CSVExporter) columns() []column {
	if !e.OmitStacktrace {
		return columns
	}
	return lo.Reject(columns, func(c column, _ int) bool {
		return c.name == "error_stacktrace"
	})
}

func (e *CSVExporter) header() []string {
	return lo.Map(e.columns(), func(c column, _ int) string {
		return c.name
	})
}

func (e *CSVExporter) row(record *audit.Record) []string {
	return lo.Map(e.columns(), func(c column, _ int) string {
		return c.value(record)
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
