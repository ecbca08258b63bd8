// Package store persists classification runs in SQLite.
//
// Each batch run becomes one row in runs and one row per input point in
// classifications. Missing numeric inputs are stored as NULL and come back
// as NaN.
//
// Usage Example:
//
//	st, _ := store.Open("data/bioclas.db")
//	defer st.Close()
//
//	_ = st.SaveRun(ctx, report, store.RunMeta{Input: "points.csv"})
//	run, _ := st.Run(ctx, report.RunID)
//	rows, _ := st.Results(ctx, report.RunID)
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"bioclas/internal/logging"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite-backed run archive. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at path, creating parent
// directories and the schema as needed. ":memory:" is accepted.
func Open(path string) (*Store, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening run store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.StoreError("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.StoreError("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("%s failed: %v", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.StoreError("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Run store schema ready")
	return s, nil
}

func (s *Store) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at INTEGER NOT NULL, -- unix nanos
		finished_at INTEGER NOT NULL,
		total INTEGER NOT NULL,
		classified INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		p50_us INTEGER,
		p99_us INTEGER,
		variables_path TEXT,
		rules_path TEXT,
		input_path TEXT,
		output_path TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	classificationsTable := `
	CREATE TABLE IF NOT EXISTS classifications (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		row INTEGER NOT NULL,
		longitude REAL,
		latitude REAL,
		abt REAL,
		app REAL,
		per REAL,
		z1 TEXT,
		z2 TEXT,
		z3 TEXT,
		r INTEGER,
		g INTEGER,
		b INTEGER,
		error TEXT,
		PRIMARY KEY(run_id, row)
	);
	CREATE INDEX IF NOT EXISTS idx_classifications_z1 ON classifications(z1);
	`

	for _, table := range []string{runsTable, classificationsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database path.
func (s *Store) Path() string { return s.dbPath }

// Stats returns row counts per table.
func (s *Store) Stats() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int64)
	for _, table := range []string{"runs", "classifications"} {
		var count int64
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		stats[table] = count
	}
	return stats, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logging.StoreDebug("Closing run store %s", s.dbPath)
	return s.db.Close()
}
