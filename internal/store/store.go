// Package store is the sqlite-backed persistence layer (§6.4): trades,
// settings, signals and the activity log. It follows the donor's
// store/strategy.go and store/tactics.go idiom of raw database/sql with a
// JSON-blob config column and CREATE TABLE IF NOT EXISTS migrations, over
// the pure-Go modernc.org/sqlite driver instead of the donor's cgo-free
// equivalent.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps a single sqlite connection shared by every sub-area
// (trades, settings, signals, activity log). A single *sql.DB is safe for
// concurrent use; sqlite's own locking serializes writers.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and runs
// every sub-area's migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite allows one writer; avoid pool-level lock contention

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTables() error {
	if err := s.initTradeTables(); err != nil {
		return err
	}
	if err := s.initSettingsTables(); err != nil {
		return err
	}
	if err := s.initLogTables(); err != nil {
		return err
	}
	return nil
}
