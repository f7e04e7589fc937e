package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctx = WithCorrelationID(ctx, "corr-456")
	if got := GetCorrelationID(ctx); got != "corr-456" {
		t.Errorf("GetCorrelationID() = %q, want %q", got, "corr-456")
	}

	ctx = WithTraceID(ctx, "trace-789")
	if got := GetTraceID(ctx); got != "trace-789" {
		t.Errorf("GetTraceID() = %q, want %q", got, "trace-789")
	}

	ctx = WithUserID(ctx, "user-1")
	if got := GetUserID(ctx); got != "user-1" {
		t.Errorf("GetUserID() = %q, want %q", got, "user-1")
	}
}

func TestContextKeys_Missing(t *testing.T) {
	ctx := context.Background()

	if got := GetRequestID(ctx); got != "" {
		t.Errorf("GetRequestID() = %q, want empty", got)
	}
	if got := GetCorrelationID(ctx); got != "" {
		t.Errorf("GetCorrelationID() = %q, want empty", got)
	}
	if got := GetTraceID(ctx); got != "" {
		t.Errorf("GetTraceID() = %q, want empty", got)
	}
	if got := GetUserID(ctx); got != "" {
		t.Errorf("GetUserID() = %q, want empty", got)
	}
}

func TestExtractContextFields(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "c")
	ctx = WithUserID(ctx, "u")

	fields := extractContextFields(ctx)
	want := []any{"correlation_id", "c", "user_id", "u"}

	if len(fields) != len(want) {
		t.Fatalf("extractContextFields() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %v, want %v", i, fields[i], want[i])
		}
	}
}
