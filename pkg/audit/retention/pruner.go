package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mercator-hq/callaudit/pkg/audit"
	"mercator-hq/callaudit/pkg/audit/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain call history.
	// 0 means keep records forever (no age-based pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete writes records to a JSON file before deleting them.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory archived records are written to.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
		MaxRecords:          0,
	}
}

// Prune reasons reported to Metrics.
const (
	ReasonAge   = "age"
	ReasonCount = "count"
)

// Metrics receives pruning results. Optional.
type Metrics interface {
	RecordPruned(reason string, deleted int64)
}

// Pruner enforces retention policies on call history records.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	metrics   Metrics
	logger    *slog.Logger
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a new retention pruner. metrics may be nil.
func NewPruner(storage audit.Storage, config *Config, metrics Metrics) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		metrics: metrics,
		logger:  slog.Default().With("component", "audit.retention"),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Result summarizes one pruning run.
type Result struct {
	DeletedByAge   int64    `json:"deleted_by_age"`
	DeletedByCount int64    `json:"deleted_by_count"`
	Archives       []string `json:"archives,omitempty"`
}

// Total returns the number of records deleted in the run.
func (r Result) Total() int64 {
	return r.DeletedByAge + r.DeletedByCount
}

// Prune deletes records older than the retention period, then deletes the
// oldest records beyond MaxRecords. Either phase is skipped when its limit
// is zero.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var result Result

	if p.config.RetentionDays > 0 {
		deleted, archive, err := p.pruneByAge(ctx)
		if err != nil {
			return result, fmt.Errorf("prune by age failed: %w", err)
		}
		result.DeletedByAge = deleted
		if archive != "" {
			result.Archives = append(result.Archives, archive)
		}
		p.record(ReasonAge, deleted)
	}

	if p.config.MaxRecords > 0 {
		deleted, archive, err := p.pruneByCount(ctx)
		if err != nil {
			return result, fmt.Errorf("prune by count failed: %w", err)
		}
		result.DeletedByCount = deleted
		if archive != "" {
			result.Archives = append(result.Archives, archive)
		}
		p.record(ReasonCount, deleted)
	}

	if result.Total() == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("call history pruning completed",
			"deleted_by_age", result.DeletedByAge,
			"deleted_by_count", result.DeletedByCount,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return result, nil
}

func (p *Pruner) record(reason string, deleted int64) {
	if p.metrics != nil && deleted > 0 {
		p.metrics.RecordPruned(reason, deleted)
	}
}

// pruneByAge deletes records created before now minus RetentionDays.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, string, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	var archive string
	if p.config.ArchiveBeforeDelete {
		// DeleteBefore is exclusive of the cutoff; the range filter is inclusive.
		filter := audit.ByDateRange(time.Unix(0, 0), cutoff.Add(-time.Nanosecond))
		count, err := p.storage.Count(ctx, filter)
		if err != nil {
			return 0, "", audit.NewRetentionError(p.config.RetentionDays, err)
		}
		if count > 0 {
			archive, err = p.archive(ctx, filter, 0, "age")
			if err != nil {
				return 0, "", audit.NewRetentionError(p.config.RetentionDays, err)
			}
		}
	}

	deleted, err := p.storage.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, archive, audit.NewRetentionError(p.config.RetentionDays, err)
	}

	return deleted, archive, nil
}

// pruneByCount deletes the oldest records when the total exceeds MaxRecords.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, string, error) {
	count, err := p.storage.Count(ctx, nil)
	if err != nil {
		return 0, "", fmt.Errorf("failed to count records: %w", err)
	}

	if count <= p.config.MaxRecords {
		p.logger.Debug("record count within limit",
			"current", count,
			"max", p.config.MaxRecords,
		)
		return 0, "", nil
	}

	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", count-p.config.MaxRecords,
	)

	var archive string
	if p.config.ArchiveBeforeDelete {
		// Stream is newest first: everything after the first MaxRecords goes.
		archive, err = p.archive(ctx, nil, p.config.MaxRecords, "count")
		if err != nil {
			return 0, "", fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.storage.DeleteOldest(ctx, p.config.MaxRecords)
	if err != nil {
		return 0, archive, fmt.Errorf("delete failed: %w", err)
	}

	return deleted, archive, nil
}

// archive streams the records matching filter, minus the first skip, into a
// JSON file under ArchivePath and returns the file name.
func (p *Pruner) archive(ctx context.Context, filter *audit.Filter, skip int64, label string) (string, error) {
	if err := os.MkdirAll(p.config.ArchivePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archiveFile := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("call-history-%s-%s.json", label, p.now().Format("2006-01-02-150405")))
	f, err := os.Create(archiveFile)
	if err != nil {
		return "", fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	recordsCh, errCh, err := p.storage.Stream(ctx, filter)
	if err != nil {
		return "", fmt.Errorf("failed to stream records for archiving: %w", err)
	}

	archived := make(chan *audit.Record, 100)
	go func() {
		defer close(archived)
		var seen int64
		for record := range recordsCh {
			seen++
			if seen <= skip {
				continue
			}
			select {
			case archived <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := export.NewJSONExporter(true).ExportStream(ctx, archived, f); err != nil {
		return "", fmt.Errorf("failed to export records to archive: %w", err)
	}
	if err := <-errCh; err != nil {
		return "", fmt.Errorf("failed to stream records for archiving: %w", err)
	}

	p.logger.Info("call history archived",
		"archive_file", archiveFile,
		"reason", label,
	)

	return archiveFile, nil
}

// Start starts the automatic pruning scheduler.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
