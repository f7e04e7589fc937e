package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressReporter follows a command walking the call history record by
// record.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

const progressBarWidth = 40

// RecordProgress renders a single-line bar of records handled out of the
// number matching the command's filter.
type RecordProgress struct {
	mu      sync.Mutex
	label   string
	total   int64
	current int64
	started time.Time
	writer  io.Writer
}

// NewProgressReporter creates a reporter writing to w, os.Stderr when nil.
// label names the operation, e.g. "Exporting".
func NewProgressReporter(w io.Writer, label string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	if label == "" {
		label = "Processing"
	}
	return &RecordProgress{writer: w, label: label}
}

// Start resets the reporter for total matching records.
func (p *RecordProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()

	p.render()
}

// Update records that current records have been handled.
func (p *RecordProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if current < p.current {
		return
	}
	p.current = current
	p.render()
}

// Finish ends the bar with a summary line.
func (p *RecordProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	if p.total > 0 {
		fmt.Fprintln(p.writer)
	}
	fmt.Fprintf(p.writer, "✓ %d records in %s\n", p.total, time.Since(p.started).Round(time.Millisecond))
}

// Error ends the bar with the failure and how many records were handled.
func (p *RecordProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error after %d of %d records: %v\n", p.current, p.total, err)
}

func (p *RecordProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	filled := int(float64(progressBarWidth) * percent / 100)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)

	rate := 0.0
	if elapsed := time.Since(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.writer, "\r%s: [%s] %.1f%% (%d/%d records) %.1f records/s",
		p.label, bar, percent, p.current, p.total, rate)
}
