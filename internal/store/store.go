package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed reference entity repository. It is a host
// collaborator, not part of the effect core: the engine reaches it only
// through the persist/spawn/despawn capabilities bound by Bind.
type Store struct {
	db  *sql.DB
	gen IDGenerator
	seq int64
}

// Open creates or opens a SQLite database at the given path. Use
// ":memory:" for an ephemeral store in tests.
//
// The database is configured with:
//   - WAL mode for concurrent read access
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY errors under the single-threaded host model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db, gen: UUIDv7Generator{}}

	// The write counter must continue where the last process left off,
	// or reopened databases would interleave new rows before old ones.
	row := db.QueryRow(`SELECT COALESCE(MAX(seq), 0) FROM entities`)
	if err := row.Scan(&s.seq); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to restore write counter: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetIDGenerator replaces the entity ID generator. Tests install a
// FixedGenerator for deterministic ids.
func (s *Store) SetIDGenerator(gen IDGenerator) {
	s.gen = gen
}

// nextSeq returns the next logical write counter value. Ordering uses
// this counter, never wall-clock timestamps.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}
	return nil
}
