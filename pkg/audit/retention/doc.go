// Package retention enforces how long call history is kept.
//
// A Pruner runs in two phases: records older than RetentionDays are
// deleted, then the oldest records beyond MaxRecords. With
// ArchiveBeforeDelete set, each phase first streams the doomed records into
// a JSON file under ArchivePath.
//
// The Scheduler runs the pruner on a cron expression (robfig/cron, standard
// five-field syntax). The "callaudit prune" command runs it once.
package retention
