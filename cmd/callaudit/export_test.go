package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/export"
	"mercator-hq/callaudit/pkg/audit/storage"
	"mercator-hq/callaudit/pkg/cli"
)

func resetExportFlags(t *testing.T) {
	t.Helper()
	saved := exportFlags
	t.Cleanup(func() { exportFlags = saved })
	exportFlags.from, exportFlags.to = "", ""
	exportFlags.correlationID, exportFlags.path, exportFlags.success = "", "", ""
	exportFlags.failures = false
}

func TestExportFilter(t *testing.T) {
	tests := []struct {
		name    string
		set     func()
		kind    audit.FilterKind
		all     bool
		wantErr bool
	}{
		{name: "no filter", set: func() {}, all: true},
		{
			name: "date range",
			set:  func() { exportFlags.from, exportFlags.to = "2026-03-01T00:00:00Z", "2026-03-01T23:59:59" },
			kind: audit.FilterByDateRange,
		},
		{
			name:    "inverted range",
			set:     func() { exportFlags.from, exportFlags.to = "2026-03-02T00:00:00Z", "2026-03-01T00:00:00Z" },
			wantErr: true,
		},
		{
			name:    "bad date",
			set:     func() { exportFlags.from, exportFlags.to = "yesterday", "2026-03-01T00:00:00Z" },
			wantErr: true,
		},
		{name: "correlation", set: func() { exportFlags.correlationID = "corr-1" }, kind: audit.FilterByCorrelationID},
		{name: "path", set: func() { exportFlags.path = "/api/v1/examples" }, kind: audit.FilterByPath},
		{name: "success", set: func() { exportFlags.success = "true" }, kind: audit.FilterBySuccess},
		{name: "bad success", set: func() { exportFlags.success = "maybe" }, wantErr: true},
		{name: "failures", set: func() { exportFlags.failures = true }, kind: audit.FilterBySuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetExportFlags(t)
			tt.set()

			filter, err := exportFilter()
			if (err != nil) != tt.wantErr {
				t.Fatalf("exportFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.all {
				if filter != nil {
					t.Errorf("filter = %+v, want nil", filter)
				}
				return
			}
			if filter == nil || filter.Kind != tt.kind {
				t.Errorf("filter = %+v, want kind %s", filter, tt.kind)
			}
		})
	}
}

func TestExportRecords(t *testing.T) {
	store := storage.NewMemoryStorage()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed(t, store, base, 9)

	t.Run("json without progress", func(t *testing.T) {
		buf := &bytes.Buffer{}
		n, err := exportRecords(context.Background(), store, nil, export.NewJSONExporter(false), buf, nil)
		if err != nil {
			t.Fatalf("exportRecords() error = %v", err)
		}
		if n != 9 {
			t.Errorf("exportRecords() = %d, want 9", n)
		}
		var got []*audit.Record
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(got) != 9 {
			t.Errorf("exported %d records, want 9", len(got))
		}
	})

	t.Run("csv failures with progress", func(t *testing.T) {
		buf := &bytes.Buffer{}
		progressOut := &bytes.Buffer{}
		progress := cli.NewProgressReporter(progressOut, "Exporting")

		n, err := exportRecords(context.Background(), store, audit.Failures(), export.NewCSVExporter(true), buf, progress)
		if err != nil {
			t.Fatalf("exportRecords() error = %v", err)
		}
		if n != 3 {
			t.Errorf("exportRecords() = %d, want 3", n)
		}

		rows, err := csv.NewReader(buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(rows) != 4 {
			t.Errorf("got %d rows, want header + 3 failures", len(rows))
		}
		if !strings.Contains(progressOut.String(), "(3/3 records)") {
			t.Errorf("progress output = %q", progressOut.String())
		}
	})
}
