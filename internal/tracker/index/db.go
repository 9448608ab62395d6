// Package index is the relational tracking store. SQLite is the default
// backend; PostgreSQL is supported through lib/pq with the same schema.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/dl-alexandre/medialib/internal/logging"
	"github.com/dl-alexandre/medialib/internal/metrics"
	"github.com/dl-alexandre/medialib/internal/tracker/status"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ParseDriver accepts the configured driver name.
func ParseDriver(name string) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pq":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", name)
	}
}

type dialect struct {
	driver       Driver
	numbered     bool
	serialType   string
	blobType     string
	maxOpenConns int
}

var dialects = map[Driver]dialect{
	DriverSQLite: {
		driver:       DriverSQLite,
		serialType:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		blobType:     "BLOB",
		maxOpenConns: 1,
	},
	DriverPostgres: {
		driver:       DriverPostgres,
		numbered:     true,
		serialType:   "BIGSERIAL PRIMARY KEY",
		blobType:     "BYTEA",
		maxOpenConns: 10,
	},
}

// rebind rewrites ? placeholders into $n for drivers that need it.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			sb.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func (d dialect) schema() string {
	return fmt.Sprintf(schemaSQL, d.serialType, d.blobType)
}

// Store implements status.Repository.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  logging.Logger
	now     func() time.Time
}

var _ status.Repository = (*Store)(nil)

// Open connects to the database and applies the schema. For SQLite dsn is a
// file path whose parent directory is created when missing.
func Open(ctx context.Context, driver Driver, dsn string, logger logging.Logger) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	logger = logging.OrNoOp(logger)

	dataSource := dsn
	if driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dataSource = dsn + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(string(driver), dataSource)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(d.maxOpenConns)
	db.SetMaxIdleConns(d.maxOpenConns)
	if driver == DriverPostgres {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{
		db:      db,
		dialect: d,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("tracking store opened", logging.String("driver", string(driver)), logging.String("dsn", dsn))
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(s.dialect.schema(), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// %[1]s is the serial primary key type, %[2]s the binary type.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS collections (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	root_path TEXT NOT NULL UNIQUE,
	root_url TEXT NOT NULL,
	exclude_patterns TEXT,
	max_depth INTEGER NOT NULL DEFAULT 0,
	created_at BIGINT NOT NULL,
	last_sweep_at BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tracked_directories (
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	status TEXT NOT NULL,
	digest %[2]s NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (collection_id, path)
);

CREATE INDEX IF NOT EXISTS idx_tracked_directories_status ON tracked_directories(collection_id, status);

CREATE TABLE IF NOT EXISTS media_sources (
	id %[1]s,
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	content_path TEXT NOT NULL,
	dir_path TEXT NOT NULL,
	file_name TEXT NOT NULL,
	fingerprint %[2]s NOT NULL,
	registered_at BIGINT NOT NULL,
	UNIQUE (collection_id, content_path)
);

CREATE INDEX IF NOT EXISTS idx_media_sources_dir ON media_sources(collection_id, dir_path);
CREATE INDEX IF NOT EXISTS idx_media_sources_fingerprint ON media_sources(collection_id, file_name, fingerprint);

CREATE TABLE IF NOT EXISTS tracks (
	source_id BIGINT PRIMARY KEY REFERENCES media_sources(id) ON DELETE CASCADE,
	rating INTEGER,
	play_count BIGINT NOT NULL DEFAULT 0
);
`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) exec(ctx context.Context, q execer, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, q execer, query string, args ...interface{}) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, q execer, query string, args ...interface{}) *sql.Row {
	return q.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// inTx runs fn in a transaction and commits when fn returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// observe records metrics for one store operation. Use as
// defer s.observe("op", time.Now(), &err).
func (s *Store) observe(operation string, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	if errors.Is(err, status.ErrNotFound) {
		err = nil
	}
	metrics.RecordStoreQuery(operation, time.Since(started), err)
}

// prefixMatch returns a clause selecting rows whose column starts with
// prefix. The comparison is case sensitive on every backend.
func prefixMatch(column, prefix string) (string, []interface{}) {
	clause := fmt.Sprintf(" AND substr(%s, 1, ?) = ?", column)
	return clause, []interface{}{utf8.RuneCountInString(prefix), prefix}
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
