package cli

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestRecordProgress(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Exporting")

	progress.Start(100)
	progress.Update(50)
	progress.Finish()

	output := buf.String()
	for _, want := range []string{"Exporting:", "(50/100 records)", "(100/100 records)", "records/s", "✓ 100 records in"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
}

func TestRecordProgressZeroTotal(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Exporting")

	progress.Start(0)
	progress.Update(0)
	progress.Finish()

	output := buf.String()
	if strings.Contains(output, "Exporting:") {
		t.Errorf("no bar expected for an empty result: %q", output)
	}
	if !strings.Contains(output, "✓ 0 records") {
		t.Errorf("output = %q", output)
	}
}

func TestRecordProgressError(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Exporting")

	progress.Start(10)
	progress.Update(4)
	progress.Error(errors.New("stream closed"))

	if !strings.Contains(buf.String(), "✗ Error after 4 of 10 records: stream closed") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRecordProgressIgnoresStaleUpdates(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "").(*RecordProgress)

	progress.Start(10)
	progress.Update(7)
	progress.Update(3)

	if progress.current != 7 {
		t.Errorf("current = %d, want 7", progress.current)
	}
	if progress.label != "Processing" {
		t.Errorf("label = %q, want default", progress.label)
	}
}

func TestRecordProgressConcurrent(t *testing.T) {
	buf := &bytes.Buffer{}
	progress := NewProgressReporter(buf, "Exporting")
	progress.Start(1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				progress.Update(int64(start*100 + j))
			}
		}(i)
	}
	wg.Wait()
	progress.Finish()

	if !strings.Contains(buf.String(), "(1000/1000 records)") {
		t.Error("expected a final complete bar")
	}
}

func TestNewProgressReporterNilWriter(t *testing.T) {
	progress := NewProgressReporter(nil, "Exporting")
	if progress == nil {
		t.Fatal("NewProgressReporter(nil) should not return nil")
	}
	if progress.(*RecordProgress).writer == nil {
		t.Error("nil writer should default to stderr")
	}
}
