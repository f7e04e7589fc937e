package audit

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPageStart(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		offset  int
		want    int
		wantErr bool
	}{
		{"first page", 10, 0, 0, false},
		{"exact page boundary", 10, 20, 20, false},
		{"offset snaps down", 10, 25, 20, false},
		{"larger limit realigns", 15, 20, 15, false},
		{"offset below limit", 50, 7, 0, false},
		{"zero limit", 0, 10, 0, true},
		{"negative limit", -1, 0, 0, true},
		{"negative offset", 10, -5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PageStart(tt.limit, tt.offset)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("PageStart(%d, %d) expected error", tt.limit, tt.offset)
				}
				return
			}
			if err != nil {
				t.Fatalf("PageStart(%d, %d) unexpected error: %v", tt.limit, tt.offset, err)
			}
			if got != tt.want {
				t.Errorf("PageStart(%d, %d) = %d, want %d", tt.limit, tt.offset, got, tt.want)
			}
		})
	}
}

func TestState_Transitions(t *testing.T) {
	legal := [][2]State{
		{StateStarted, StateSuccess},
		{StateStarted, StateFailure},
		{StateSuccess, StateDispatched},
		{StateFailure, StateDispatched},
		{StateDispatched, StatePersisted},
		{StateDispatched, StatePersistFailed},
	}
	for _, tr := range legal {
		if !tr[0].CanTransition(tr[1]) {
			t.Errorf("expected %s -> %s to be legal", tr[0], tr[1])
		}
	}

	illegal := [][2]State{
		{StateStarted, StateDispatched},
		{StateSuccess, StateFailure},
		{StateFailure, StateSuccess},
		{StateDispatched, StateSuccess},
		{StatePersisted, StatePersistFailed},
	}
	for _, tr := range illegal {
		if tr[0].CanTransition(tr[1]) {
			t.Errorf("expected %s -> %s to be illegal", tr[0], tr[1])
		}
	}

	if !StatePersisted.Terminal() || !StatePersistFailed.Terminal() {
		t.Error("persistence outcomes should be terminal")
	}
	if StateStarted.Terminal() {
		t.Error("STARTED should not be terminal")
	}
}

func TestFilter_Matches(t *testing.T) {
	now := time.Now()
	path := "/api/v1/examples"
	record := &Record{
		ID:            7,
		CreatedAt:     now,
		CorrelationID: "corr-1",
		Path:          &path,
		Success:       false,
	}

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil filter", nil, true},
		{"all", &Filter{Kind: FilterAll}, true},
		{"id match", ByID(7), true},
		{"id mismatch", ByID(8), false},
		{"range inclusive start", ByDateRange(now, now.Add(time.Minute)), true},
		{"range inclusive end", ByDateRange(now.Add(-time.Minute), now), true},
		{"range before", ByDateRange(now.Add(time.Second), now.Add(time.Minute)), false},
		{"correlation", ByCorrelationID("corr-1"), true},
		{"correlation mismatch", ByCorrelationID("corr-2"), false},
		{"path", ByPath(path), true},
		{"path mismatch", ByPath("/other"), false},
		{"failures", Failures(), true},
		{"successes", BySuccess(true), false},
		{"paginated matches all", Paginated(10, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(record); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("path filter on record without path", func(t *testing.T) {
		if ByPath("/x").Matches(&Record{}) {
			t.Error("record without path should not match a path filter")
		}
	})
}

func TestRecord_Clone(t *testing.T) {
	trace := "trace-1"
	status := 201
	original := &Record{ID: 1, TraceID: &trace, HTTPStatus: &status}

	clone := original.Clone()
	*clone.TraceID = "changed"
	*clone.HTTPStatus = 500

	if *original.TraceID != "trace-1" {
		t.Errorf("clone shares TraceID with original")
	}
	if *original.HTTPStatus != 201 {
		t.Errorf("clone shares HTTPStatus with original")
	}

	var nilRecord *Record
	if nilRecord.Clone() != nil {
		t.Error("Clone() of nil record should be nil")
	}
}

func TestErrors(t *testing.T) {
	cause := errors.New("disk full")

	t.Run("storage error unwraps", func(t *testing.T) {
		err := NewStorageError("sqlite", "save", cause)
		if !errors.Is(err, cause) {
			t.Error("StorageError should unwrap to cause")
		}
		if !strings.Contains(err.Error(), "backend=sqlite") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("not found matches sentinel", func(t *testing.T) {
		var err error = NewNotFoundError(42)
		if !errors.Is(err, ErrNotFound) {
			t.Error("NotFoundError should match ErrNotFound")
		}
		if !strings.Contains(err.Error(), "42") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})

	t.Run("dispatch error describes record", func(t *testing.T) {
		method, path := "POST", "/api/v1/examples"
		err := NewDispatchError(&Record{Method: &method, Path: &path, DurationMs: 12}, cause)
		msg := err.Error()
		for _, want := range []string{"POST", "/api/v1/examples", "duration_ms=12", "disk full"} {
			if !strings.Contains(msg, want) {
				t.Errorf("message %q missing %q", msg, want)
			}
		}
		if !errors.Is(err, cause) {
			t.Error("DispatchError should unwrap to cause")
		}
	})

	t.Run("query error carries filter kind", func(t *testing.T) {
		err := NewQueryError(Paginated(0, 0), cause)
		if !strings.Contains(err.Error(), "kind=paginated") {
			t.Errorf("unexpected message: %s", err.Error())
		}
	})
}
