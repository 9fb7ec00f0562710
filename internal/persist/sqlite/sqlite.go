// Package sqlite provides a persist.Adapter backed by a SQLite database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/wesm/ologbrowse/internal/fileutil"
	"github.com/wesm/ologbrowse/internal/persist"
)

const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000"

const schema = `
CREATE TABLE IF NOT EXISTS session_state (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0 -- unix millis, 0 = never
);`

// Store is a SQLite-backed persist.Adapter.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time checks.
var (
	_ persist.Adapter = (*Store)(nil)
	_ persist.Purger  = (*Store)(nil)
)

// Open opens or creates the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := fileutil.SecureMkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+defaultSQLiteParams)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements persist.Adapter.
func (s *Store) Get(key string) (string, error) {
	var value string
	var expiresAt int64
	err := s.db.QueryRow(
		`SELECT value, expires_at FROM session_state WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", persist.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	if expiresAt != 0 && s.now().UnixMilli() >= expiresAt {
		return "", persist.ErrNotFound
	}
	return value, nil
}

// Set implements persist.Adapter.
func (s *Store) Set(key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.Exec(`
		INSERT INTO session_state (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// PurgeExpired implements persist.Purger.
func (s *Store) PurgeExpired() (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM session_state WHERE expires_at != 0 AND expires_at <= ?`,
		s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return int(n), nil
}
