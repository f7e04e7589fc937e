package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/callaudit/pkg/audit"
)

// Supported database/sql driver names.
const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"

	// DriverPure is modernc.org/sqlite, usable with CGO_ENABLED=0.
	DriverPure = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" forces a single connection.
	Path string

	// Driver selects the database/sql driver: "sqlite3" or "sqlite".
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/callaudit.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

const recordColumns = `id, created_at, correlation_id, trace_id, http_method, path, handler,
	http_status, success, duration_ms, client_ip, user_agent, user_id,
	query_params, request_body, response_body, error_type, error_message, error_stacktrace`

const insertRecord = `INSERT INTO call_history (
	created_at, correlation_id, trace_id, http_method, path, handler,
	http_status, success, duration_ms, client_ip, user_agent, user_id,
	query_params, request_body, response_body, error_type, error_message, error_stacktrace
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, applies pragmas and runs migrations.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPure {
		return nil, audit.NewStorageError("sqlite", "open",
			fmt.Errorf("unsupported driver %q (want %q or %q)", config.Driver, DriverCGO, DriverPure))
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(config.Driver, dsn(config))
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	// Every connection to ":memory:" is a separate database.
	if config.Path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// dsn appends the busy timeout to the path so that every pooled connection
// waits on a locked database, not only the first one.
func dsn(config *SQLiteConfig) string {
	ms := config.BusyTimeout.Milliseconds()
	if config.Driver == DriverPure {
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", config.Path, ms)
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", config.Path, ms)
}

// initialize enables WAL mode and migrates the schema.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if err := Migrate(s.db); err != nil {
		return audit.NewStorageError("sqlite", "migrate", err)
	}

	version, err := SchemaVersion(s.db)
	if err != nil {
		return audit.NewStorageError("sqlite", "schema_version", err)
	}
	s.logger.Debug("database schema ready", "version", version)

	return nil
}

// DB exposes the underlying handle for maintenance commands.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Save inserts a record and returns it with the assigned id.
func (s *SQLiteStorage) Save(ctx context.Context, record *audit.Record) (*audit.Record, error) {
	if record == nil {
		return nil, audit.NewStorageError("sqlite", "save", errors.New("nil record"))
	}

	stored := record.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, insertRecord,
		stored.CreatedAt.UnixNano(),
		stored.CorrelationID,
		nullString(stored.TraceID),
		nullString(stored.Method),
		nullString(stored.Path),
		stored.Handler,
		nullInt(stored.HTTPStatus),
		stored.Success,
		stored.DurationMs,
		nullString(stored.ClientIP),
		nullString(stored.UserAgent),
		nullString(stored.UserID),
		nullString(stored.QueryParams),
		nullString(stored.RequestBody),
		nullString(stored.ResponseBody),
		nullString(stored.ErrorType),
		nullString(stored.ErrorMessage),
		nullString(stored.ErrorStacktrace),
	)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "save", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "last_insert_id", err)
	}
	stored.ID = id

	s.logger.Debug("call history stored",
		"id", id,
		"handler", stored.Handler,
		"success", stored.Success,
	)

	return stored, nil
}

// FindByID returns the record with the given id, or nil.
func (s *SQLiteStorage) FindByID(ctx context.Context, id int64) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM call_history WHERE id = ?", id)

	record, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "find_by_id", err)
	}
	return record, nil
}

// FindAll lists records newest first using whole-page semantics.
func (s *SQLiteStorage) FindAll(ctx context.Context, limit, offset int) ([]*audit.Record, error) {
	return s.query(ctx, audit.Paginated(limit, offset))
}

// FindByDateRange returns records created in [from, to].
func (s *SQLiteStorage) FindByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Record, error) {
	return s.query(ctx, audit.ByDateRange(from, to))
}

// FindByCorrelationID returns all records sharing a correlation id.
func (s *SQLiteStorage) FindByCorrelationID(ctx context.Context, correlationID string) ([]*audit.Record, error) {
	return s.query(ctx, audit.ByCorrelationID(correlationID))
}

// FindByPath returns all records for an exact request path.
func (s *SQLiteStorage) FindByPath(ctx context.Context, path string) ([]*audit.Record, error) {
	return s.query(ctx, audit.ByPath(path))
}

// FindBySuccess returns all records with the given outcome.
func (s *SQLiteStorage) FindBySuccess(ctx context.Context, success bool) ([]*audit.Record, error) {
	return s.query(ctx, audit.BySuccess(success))
}

// query runs a filtered SELECT and collects the rows.
func (s *SQLiteStorage) query(ctx context.Context, filter *audit.Filter) ([]*audit.Record, error) {
	sqlQuery, args, err := buildSelect(filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "rows", err)
	}

	return records, nil
}

// Count returns the number of records matching filter. Pagination is ignored.
func (s *SQLiteStorage) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	where, args := buildWhereClause(filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM call_history"+where, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Stream returns a channel of matching records, newest first.
// The channels will be closed when the stream completes or errors.
func (s *SQLiteStorage) Stream(ctx context.Context, filter *audit.Filter) (<-chan *audit.Record, <-chan error, error) {
	sqlQuery, args, err := buildSelect(filter)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, nil, audit.NewStorageError("sqlite", "stream", err)
	}

	recordsCh := make(chan *audit.Record, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- audit.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- audit.NewStorageError("sqlite", "rows", err)
		}
	}()

	return recordsCh, errCh, nil
}

// DeleteBefore removes records created strictly before cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM call_history WHERE created_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_before", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "rows_affected", err)
	}

	s.logger.Info("call history deleted", "cutoff", cutoff, "deleted_count", deleted)
	return deleted, nil
}

// DeleteOldest removes the oldest records so that at most keep remain.
func (s *SQLiteStorage) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		return 0, audit.NewStorageError("sqlite", "delete_oldest", errors.New("keep must be non-negative"))
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM call_history WHERE id NOT IN (
		SELECT id FROM call_history ORDER BY created_at DESC, id DESC LIMIT ?
	)`, keep)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete_oldest", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "rows_affected", err)
	}

	if deleted > 0 {
		s.logger.Info("oldest call history deleted", "kept", keep, "deleted_count", deleted)
	}
	return deleted, nil
}

// Ping verifies the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError("sqlite", "ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

// buildSelect builds the ordered SELECT for a filter, applying pagination
// for FilterPaginated.
func buildSelect(filter *audit.Filter) (string, []interface{}, error) {
	where, args := buildWhereClause(filter)
	query := "SELECT " + recordColumns + " FROM call_history" + where + " ORDER BY created_at DESC, id DESC"

	if filter != nil && filter.Kind == audit.FilterPaginated {
		start, err := audit.PageStart(filter.Limit, filter.Offset)
		if err != nil {
			return "", nil, audit.NewQueryError(filter, err)
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, start)
	}

	return query, args, nil
}

// buildWhereClause builds a WHERE clause from filter. Returns an empty
// string when the filter matches everything.
func buildWhereClause(filter *audit.Filter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []interface{}

	switch filter.Kind {
	case audit.FilterByID:
		conditions = append(conditions, "id = ?")
		args = append(args, filter.ID)
	case audit.FilterByDateRange:
		if filter.From != nil {
			conditions = append(conditions, "created_at >= ?")
			args = append(args, filter.From.UnixNano())
		}
		if filter.To != nil {
			conditions = append(conditions, "created_at <= ?")
			args = append(args, filter.To.UnixNano())
		}
	case audit.FilterByCorrelationID:
		conditions = append(conditions, "correlation_id = ?")
		args = append(args, filter.CorrelationID)
	case audit.FilterByPath:
		conditions = append(conditions, "path = ?")
		args = append(args, filter.Path)
	case audit.FilterBySuccess:
		if filter.Success != nil {
			conditions = append(conditions, "success = ?")
			args = append(args, *filter.Success)
		}
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRow scans a database row into a Record.
func scanRow(scanner rowScanner) (*audit.Record, error) {
	var (
		r               audit.Record
		createdAt       int64
		traceID         sql.NullString
		method          sql.NullString
		path            sql.NullString
		httpStatus      sql.NullInt64
		clientIP        sql.NullString
		userAgent       sql.NullString
		userID          sql.NullString
		queryParams     sql.NullString
		requestBody     sql.NullString
		responseBody    sql.NullString
		errorType       sql.NullString
		errorMessage    sql.NullString
		errorStacktrace sql.NullString
	)

	err := scanner.Scan(
		&r.ID,
		&createdAt,
		&r.CorrelationID,
		&traceID,
		&method,
		&path,
		&r.Handler,
		&httpStatus,
		&r.Success,
		&r.DurationMs,
		&clientIP,
		&userAgent,
		&userID,
		&queryParams,
		&requestBody,
		&responseBody,
		&errorType,
		&errorMessage,
		&errorStacktrace,
	)
	if err != nil {
		return nil, err
	}

	r.CreatedAt = time.Unix(0, createdAt).UTC()
	r.TraceID = stringPtr(traceID)
	r.Method = stringPtr(method)
	r.Path = stringPtr(path)
	r.ClientIP = stringPtr(clientIP)
	r.UserAgent = stringPtr(userAgent)
	r.UserID = stringPtr(userID)
	r.QueryParams = stringPtr(queryParams)
	r.RequestBody = stringPtr(requestBody)
	r.ResponseBody = stringPtr(responseBody)
	r.ErrorType = stringPtr(errorType)
	r.ErrorMessage = stringPtr(errorMessage)
	r.ErrorStacktrace = stringPtr(errorStacktrace)
	if httpStatus.Valid {
		status := int(httpStatus.Int64)
		r.HTTPStatus = &status
	}

	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
