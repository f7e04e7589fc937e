package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/export"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human readable table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output, one row per record.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", NewConfigError("format", fmt.Sprintf("unsupported output format %q (want text, json or csv)", s))
	}
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// TextFormatter renders call history records as a table, a single record as
// a field list, and anything else with %v.
type TextFormatter struct{}

// FormatTo writes data to w in text format.
func (f *TextFormatter) FormatTo(w io.Writer, data any) error {
	switch v := data.(type) {
	case []*audit.Record:
		return writeTable(w, v)
	case *audit.Record:
		return writeDetail(w, v)
	default:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
}

func writeTable(w io.Writer, records []*audit.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no records")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMETHOD\tPATH\tSTATUS\tOK\tMS\tHANDLER\tCORRELATION")
	for _, r := range records {
		status := "-"
		if r.HTTPStatus != nil {
			status = fmt.Sprint(*r.HTTPStatus)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%t\t%d\t%s\t%s\n",
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			orDash(r.Method),
			orDash(r.Path),
			status,
			r.Success,
			r.DurationMs,
			r.Handler,
			r.CorrelationID,
		)
	}
	return tw.Flush()
}

func orDash(s *string) string {
	if v := lo.FromPtr(s); v != "" {
		return v
	}
	return "-"
}

func writeDetail(w io.Writer, r *audit.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(name string, value any) {
		fmt.Fprintf(tw, "%s:\t%v\n", name, value)
	}
	opt := func(name string, value *string) {
		if value != nil {
			row(name, *value)
		}
	}

	row("ID", r.ID)
	row("Created", r.CreatedAt.UTC().Format(time.RFC3339Nano))
	row("Correlation ID", r.CorrelationID)
	opt("Trace ID", r.TraceID)
	opt("Method", r.Method)
	opt("Path", r.Path)
	row("Handler", r.Handler)
	if r.HTTPStatus != nil {
		row("HTTP Status", *r.HTTPStatus)
	}
	row("Success", r.Success)
	row("Duration", fmt.Sprintf("%dms", r.DurationMs))
	opt("Client IP", r.ClientIP)
	opt("User Agent", r.UserAgent)
	opt("User ID", r.UserID)
	opt("Query", r.QueryParams)
	opt("Request", r.RequestBody)
	opt("Response", r.ResponseBody)
	opt("Error Type", r.ErrorType)
	opt("Error", r.ErrorMessage)
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.ErrorStacktrace != nil {
		_, err := fmt.Fprintf(w, "\nStack trace:\n%s\n", *r.ErrorStacktrace)
		return err
	}
	return nil
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// CSVFormatter writes call history records with the export column layout.
type CSVFormatter struct{}

// FormatTo writes records to w in CSV format. data must be a record or a
// slice of records.
func (f *CSVFormatter) FormatTo(w io.Writer, data any) error {
	var records []*audit.Record
	switch v := data.(type) {
	case []*audit.Record:
		records = v
	case *audit.Record:
		records = []*audit.Record{v}
	default:
		return fmt.Errorf("CSV output is only available for call history records, got %T", data)
	}
	return export.NewCSVExporter(true).Export(context.Background(), records, w)
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}
