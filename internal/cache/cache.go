// Package cache persists compiled chunks keyed by a fingerprint of the
// source text. A changed source produces a new fingerprint, so stale
// entries are never served; they are only ever evicted.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	fingerprint TEXT PRIMARY KEY,
	chunk       BLOB NOT NULL,
	created_at  INTEGER NOT NULL
);
`

// Store is a SQLite-backed chunk cache. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint derives the cache key for a source text.
func Fingerprint(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Get returns the cached chunk for fingerprint, with found=false on a
// miss.
func (s *Store) Get(fingerprint string) ([]byte, bool, error) {
	var chunk []byte
	err := s.db.QueryRow(
		`SELECT chunk FROM chunks WHERE fingerprint = ?`, fingerprint).Scan(&chunk)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	return chunk, true, nil
}

// Put stores chunk under fingerprint, replacing any previous entry.
func (s *Store) Put(fingerprint string, chunk []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO chunks (fingerprint, chunk, created_at) VALUES (?, ?, ?)`,
		fingerprint, chunk, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Purge drops entries older than maxAge and reports how many were
// removed.
func (s *Store) Purge(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.Exec(`DELETE FROM chunks WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache purge: %w", err)
	}
	return res.RowsAffected()
}

// Len reports the number of cached chunks.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return n, nil
}
