package query

import (
	"strings"
	"testing"
	"time"

	"mercator-hq/callaudit/pkg/audit"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name    string
		filter  *audit.Filter
		wantErr bool
		errMsg  string
	}{
		{name: "nil filter", filter: nil},
		{name: "all", filter: &audit.Filter{Kind: audit.FilterAll}},
		{name: "valid id", filter: audit.ByID(7)},
		{name: "zero id", filter: audit.ByID(0), wantErr: true, errMsg: "id must be positive"},
		{name: "valid page", filter: audit.Paginated(50, 100)},
		{name: "zero limit", filter: audit.Paginated(0, 0), wantErr: true, errMsg: "limit must be positive"},
		{name: "limit over max", filter: audit.Paginated(MaxLimit+1, 0), wantErr: true, errMsg: "limit must be <="},
		{name: "negative offset", filter: audit.Paginated(10, -5), wantErr: true, errMsg: "offset must be non-negative"},
		{name: "valid range", filter: audit.ByDateRange(past, now)},
		{name: "single instant range", filter: audit.ByDateRange(now, now)},
		{name: "inverted range", filter: audit.ByDateRange(now, past), wantErr: true, errMsg: "from must not be after to"},
		{name: "open range", filter: &audit.Filter{Kind: audit.FilterByDateRange, From: &past}, wantErr: true, errMsg: "required"},
		{name: "correlation id", filter: audit.ByCorrelationID("abc")},
		{name: "empty correlation id", filter: audit.ByCorrelationID(""), wantErr: true},
		{name: "path", filter: audit.ByPath("/api/v1/examples")},
		{name: "empty path", filter: audit.ByPath(""), wantErr: true},
		{name: "failures", filter: audit.Failures()},
		{name: "success without flag", filter: &audit.Filter{Kind: audit.FilterBySuccess}, wantErr: true},
		{name: "unknown kind", filter: &audit.Filter{Kind: "status"}, wantErr: true, errMsg: "unknown filter kind"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.filter, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.errMsg)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	f := audit.Paginated(0, 20)
	ApplyDefaults(f, 0)
	if f.Limit != DefaultLimit || f.Offset != 20 {
		t.Errorf("got limit=%d offset=%d", f.Limit, f.Offset)
	}

	f = audit.Paginated(-1, 0)
	ApplyDefaults(f, 25)
	if f.Limit != 25 {
		t.Errorf("limit = %d, want 25", f.Limit)
	}

	f = audit.Paginated(10, 0)
	ApplyDefaults(f, 25)
	if f.Limit != 10 {
		t.Errorf("explicit limit overwritten: %d", f.Limit)
	}

	other := audit.ByPath("/x")
	ApplyDefaults(other, 25)
	if other.Limit != 0 {
		t.Errorf("non-paginated filter got limit %d", other.Limit)
	}
}
