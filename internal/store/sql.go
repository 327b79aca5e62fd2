package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"subcon/internal/logging"
)

// SQLStore keeps records in a SQLite table.
type SQLStore struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// NewSQLStore opens (and creates) the database at path using driver
// "sqlite" or "sqlite3".
func NewSQLStore(driver, path string) (*SQLStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLStore")
	defer timer.Stop()

	if driver == "" {
		driver = "sqlite"
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("%s failed: %v", pragma, err)
		}
	}

	s := &SQLStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Store("SQLStore ready at %s (driver %s)", path, driver)
	return s, nil
}

func (s *SQLStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		payload TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_kind_created ON records(kind, created_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	return nil
}

// Put inserts or replaces a record.
func (s *SQLStore) Put(ctx context.Context, rec Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	version := rec.SchemaVersion
	if version == 0 {
		version = SchemaVersion
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (id, kind, schema_version, created_at, payload) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), version, rec.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return fmt.Errorf("insert record %s: %w", rec.ID, err)
	}
	logging.StoreDebug("stored record %s (%d turns)", rec.ID, rec.Len())
	return nil
}

// Get loads one record.
func (s *SQLStore) Get(ctx context.Context, id string) (Record, error) {
	var payload string
	var created int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, created_at FROM records WHERE id = ?`, id).Scan(&payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("query record %s: %w", id, err)
	}
	return Decode([]byte(payload), id, time.Unix(0, created).UTC())
}

// List returns records newest first.
func (s *SQLStore) List(ctx context.Context, kind Kind, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT id, payload, created_at FROM records`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id, payload string
		var created int64
		if err := rows.Scan(&id, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec, err := Decode([]byte(payload), id, time.Unix(0, created).UTC())
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("skipping unreadable record %s: %v", id, err)
			continue
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Path returns the database file.
func (s *SQLStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *SQLStore) Close() error {
	logging.StoreDebug("closing SQLStore at %s", s.dbPath)
	return s.db.Close()
}
