package storage

import (
	"fmt"

	"mercator-hq/callaudit/pkg/audit"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Open creates the storage backend named by backend. sqliteConfig is only
// used for BackendSQLite and may be nil to take the defaults.
func Open(backend string, sqliteConfig *SQLiteConfig) (audit.Storage, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLiteStorage(sqliteConfig)
	case BackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, audit.NewStorageError(backend, "open", fmt.Errorf("unsupported storage backend %q", backend))
	}
}
