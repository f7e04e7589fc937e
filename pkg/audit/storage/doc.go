// Package storage provides storage backends for call history records.
//
// # Storage Backends
//
//   - SQLite: embedded database, the default for single-node deployments
//   - Memory: in-memory storage for tests and ephemeral runs
//
// The SQLite backend works with either database/sql driver in the module:
// github.com/mattn/go-sqlite3 ("sqlite3", requires cgo) or modernc.org/sqlite
// ("sqlite", pure Go). The schema is managed by goose migrations embedded in
// the binary and applied when the storage is opened.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:         "data/callaudit.db",
//	    Driver:       storage.DriverPure,
//	    MaxOpenConns: 10,
//	    MaxIdleConns: 5,
//	    WALMode:      true,
//	    BusyTimeout:  5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	page, err := store.FindAll(ctx, 20, 40) // third page of 20
//
// # Ordering and Pagination
//
// Every list operation returns records newest first (created_at, then id).
// FindAll uses whole-page semantics: the page index is offset/limit, so an
// offset of 25 with a limit of 10 returns the same page as an offset of 20.
//
// Timestamps are stored as Unix nanoseconds and read back in UTC.
package storage
