package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/capture"
	"mercator-hq/callaudit/pkg/audit/query"
	"mercator-hq/callaudit/pkg/config"
	"mercator-hq/callaudit/pkg/security/auth"
)

type countingSink struct{ n int }

func (s *countingSink) Write(audit.Record) { s.n++ }

func TestConfigAdapters(t *testing.T) {
	cfg := config.DefaultConfig()

	d := dispatchConfig(cfg.Dispatch)
	if d.BufferSize != cfg.Dispatch.BufferSize || d.Workers != cfg.Dispatch.Workers || d.WriteTimeout != cfg.Dispatch.WriteTimeout {
		t.Errorf("dispatchConfig() = %+v", d)
	}

	o := captureOptions(cfg.Capture)
	if !o.CaptureRequest || !o.CaptureResponse || o.MaxPayloadSize != cfg.Capture.MaxPayloadSize {
		t.Errorf("captureOptions() = %+v", o)
	}

	l := queryLimits(cfg.Query)
	if l.DefaultLimit != 50 || l.MaxLimit != 1000 {
		t.Errorf("queryLimits() = %+v", l)
	}

	r := retentionConfig(cfg.Retention)
	if r.RetentionDays != cfg.Retention.Days || r.PruneSchedule != cfg.Retention.PruneSchedule {
		t.Errorf("retentionConfig() = %+v", r)
	}

	s := sqliteConfig(cfg.Storage.SQLite)
	if s.Path != cfg.Storage.SQLite.Path || s.Driver != cfg.Storage.SQLite.Driver || !s.WALMode {
		t.Errorf("sqliteConfig() = %+v", s)
	}
}

func TestOpenStorage(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("memory", func(t *testing.T) {
		cfg.Storage.Backend = "memory"
		store, err := openStorage(cfg.Storage)
		if err != nil {
			t.Fatalf("openStorage() error = %v", err)
		}
		defer store.Close()
		if err := store.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg.Storage.Backend = "sqlite"
		cfg.Storage.SQLite.Path = t.TempDir() + "/history.db"
		store, err := openStorage(cfg.Storage)
		if err != nil {
			t.Fatalf("openStorage() error = %v", err)
		}
		defer store.Close()
		if err := store.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg.Storage.Backend = "cassandra"
		if _, err := openStorage(cfg.Storage); err == nil {
			t.Error("openStorage() should reject an unknown backend")
		}
	})
}

func TestReloader_Apply(t *testing.T) {
	cfg := config.DefaultConfig()
	logger, err := newLogger(cfg.Telemetry.Logging, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}

	sink := &countingSink{}
	ic := capture.NewInterceptor(sink, captureOptions(cfg.Capture))
	querySvc := query.NewService(nil, queryLimits(cfg.Query))
	keys := auth.NewAPIKeyValidator(auth.KeysFromConfig([]config.APIKeyConfig{{Key: "old", UserID: "a"}}))
	r := &reloader{logger: logger, interceptor: ic, query: querySvc, apiKeys: keys}

	next := config.DefaultConfig()
	next.Server.Auth.Keys = []config.APIKeyConfig{{Key: "new", UserID: "b"}}
	next.Capture.Enabled = false
	next.Capture.MaxPayloadSize = 128
	next.Query.MaxLimit = 200
	next.Telemetry.Logging.Level = "error"
	r.apply(next)

	if ic.Enabled() {
		t.Error("interceptor should be disabled after reload")
	}
	if got := ic.Defaults().MaxPayloadSize; got != 128 {
		t.Errorf("MaxPayloadSize = %d, want 128", got)
	}
	if got := querySvc.Limits().MaxLimit; got != 200 {
		t.Errorf("MaxLimit = %d, want 200", got)
	}
	if got := logger.Level().String(); got != "ERROR" {
		t.Errorf("log level = %s, want ERROR", got)
	}
	if _, err := keys.Validate("new"); err != nil {
		t.Errorf("reloaded API key rejected: %v", err)
	}
	if _, err := keys.Validate("old"); err == nil {
		t.Error("removed API key still accepted")
	}

	_, _ = capture.Intercept(context.Background(), ic, capture.Invocation{Component: "Test", Operation: "noop"},
		func(ctx context.Context) (int, error) { return 1, nil })
	if sink.n != 0 {
		t.Errorf("disabled interceptor wrote %d records", sink.n)
	}

	next.Capture.Enabled = true
	r.apply(next)
	_, _ = capture.Intercept(context.Background(), ic, capture.Invocation{Component: "Test", Operation: "noop"},
		func(ctx context.Context) (int, error) { return 1, nil })
	if sink.n != 1 {
		t.Errorf("re-enabled interceptor wrote %d records, want 1", sink.n)
	}
}

// seed saves n records one minute apart starting at base; every third one
// is a failure.
func seed(t *testing.T, store audit.Storage, base time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		rec := &audit.Record{
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
			CorrelationID: "corr-seed",
			Handler:       "Seed#op [OP]",
			Success:       i%3 != 0,
		}
		if _, err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
}
