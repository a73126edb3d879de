package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite is a Storage backed by a single-table sqlite database, for callers
// that want the trust cache to survive process restarts.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Set(key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
