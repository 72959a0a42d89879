// Package store keeps a SQLite snapshot of the most recently generated
// manifest so the CLI can list tools and resources without re-scanning.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoManifest is returned by queries against a database that has never
// had a manifest saved into it.
var ErrNoManifest = errors.New("store: no manifest saved")

// Store wraps a SQLite database connection.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes if they don't exist.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  run_id           TEXT PRIMARY KEY,
  manifest_version TEXT NOT NULL,
  generated_at     TEXT NOT NULL,
  project_name     TEXT NOT NULL,
  project          TEXT NOT NULL,
  statistics       TEXT NOT NULL,
  warnings         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tools (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(run_id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  source_file     TEXT NOT NULL,
  category        TEXT NOT NULL,
  description     TEXT NOT NULL,
  return_type     TEXT NOT NULL,
  parameters      TEXT NOT NULL,
  examples        TEXT NOT NULL,
  input_schema    TEXT NOT NULL,
  signature_hash  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS resources (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(run_id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  source_file     TEXT NOT NULL,
  dialect         TEXT NOT NULL,
  columns         TEXT NOT NULL,
  indexes         TEXT NOT NULL,
  foreign_keys    TEXT NOT NULL,
  last_modified   TEXT NOT NULL,
  signature_hash  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tools_category ON tools(category);
CREATE INDEX IF NOT EXISTS idx_resources_dialect ON resources(dialect);
`
