package config

import (
	"context"
	"os"
	"testing"
	"time"
)

func writeTo(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	path := writeConfig(t, "capture:\n  max_payload_size: 100\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	reloaded := make(chan int, 4)
	defer Subscribe(func(cfg *Config) {
		reloaded <- cfg.Capture.MaxPayloadSize
	})()

	w, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- w.Watch(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeTo(t, path, "capture:\n  max_payload_size: 200\n")

	select {
	case size := <-reloaded:
		if size != 200 {
			t.Errorf("reloaded max payload = %d, want 200", size)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("configuration was not reloaded")
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	var calls int
	path := writeConfig(t, "")

	w, err := NewWatcher(path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.reload = func(string) error {
		calls++
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Watch(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	writeTo(t, path+".bak", "ignored")

	<-done
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if calls != 0 {
		t.Errorf("reload called %d times for an unrelated file", calls)
	}
}

func TestWatcher_StopWithoutWatch(t *testing.T) {
	w, err := NewWatcher(writeConfig(t, ""), 0)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)

	fired := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		n := i
		d.trigger(func() { fired <- n })
	}

	select {
	case n := <-fired:
		if n != 3 {
			t.Errorf("debouncer fired callback %d, want the last one", n)
		}
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}

	d.stop()
	d.trigger(func() { fired <- 99 })
	select {
	case <-fired:
		t.Error("stopped debouncer fired")
	case <-time.After(100 * time.Millisecond):
	}
}
