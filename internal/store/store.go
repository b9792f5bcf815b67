// Package store persists simulation runs to SQLite.
//
// A run groups the replicates of one scenario execution: the runs table
// holds the scenario name, seed, and summary counts, and the trees table
// holds one NHX-annotated Newick string per replicate.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunStore is a SQLite-backed archive of simulation runs. Safe for
// concurrent use.
type RunStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Run is a stored run record.
type Run struct {
	ID         string
	Scenario   string
	Seed       uint64
	Replicates int
	CreatedAt  time.Time
	Duration   time.Duration
	Status     string
}

// Tree is a stored replicate tree.
type Tree struct {
	RunID     string
	Replicate int
	Survivors int
	Sampled   int
	Newick    string
}

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Open initializes the run store at the given path, creating the database
// and schema as needed.
func Open(path string) (*RunStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("store: creating directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
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
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	s := &RunStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *RunStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		scenario    TEXT NOT NULL,
		seed        INTEGER NOT NULL,
		replicates  INTEGER NOT NULL,
		created_at  TIMESTAMP NOT NULL,
		duration_ms INTEGER NOT NULL,
		status      TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS trees (
		run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		replicate INTEGER NOT NULL,
		survivors INTEGER NOT NULL,
		sampled   INTEGER NOT NULL,
		newick    TEXT NOT NULL,
		PRIMARY KEY (run_id, replicate)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_scenario ON runs(scenario);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: initializing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveRun stores a run and its replicate trees in one transaction.
func (s *RunStore) SaveRun(run Run, trees []Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, scenario, seed, replicates, created_at, duration_ms, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Scenario, int64(run.Seed), run.Replicates,
		run.CreatedAt.UTC(), run.Duration.Milliseconds(), run.Status,
	)
	if err != nil {
		return fmt.Errorf("store: inserting run %s: %w", run.ID, err)
	}
	for _, tr := range trees {
		_, err = tx.Exec(
			`INSERT INTO trees (run_id, replicate, survivors, sampled, newick)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, tr.Replicate, tr.Survivors, tr.Sampled, tr.Newick,
		)
		if err != nil {
			return fmt.Errorf("store: inserting tree %s/%d: %w", run.ID, tr.Replicate, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns runs ordered newest first.
func (s *RunStore) ListRuns() ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT id, scenario, seed, replicates, created_at, duration_ms, status
		 FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns a run and its trees.
func (s *RunStore) GetRun(id string) (Run, []Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT id, scenario, seed, replicates, created_at, duration_ms, status
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return Run{}, nil, fmt.Errorf("store: run %s not found", id)
	}
	if err != nil {
		return Run{}, nil, err
	}

	rows, err := s.db.Query(
		`SELECT run_id, replicate, survivors, sampled, newick
		 FROM trees WHERE run_id = ? ORDER BY replicate`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("store: loading trees for %s: %w", id, err)
	}
	defer rows.Close()

	var trees []Tree
	for rows.Next() {
		var tr Tree
		if err := rows.Scan(&tr.RunID, &tr.Replicate, &tr.Survivors, &tr.Sampled, &tr.Newick); err != nil {
			return Run{}, nil, fmt.Errorf("store: scanning tree: %w", err)
		}
		trees = append(trees, tr)
	}
	return run, trees, rows.Err()
}

// DeleteRun removes a run and (via cascade) its trees.
func (s *RunStore) DeleteRun(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: deleting run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("store: run %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var seed int64
	var durationMs int64
	if err := row.Scan(&run.ID, &run.Scenario, &seed, &run.Replicates,
		&run.CreatedAt, &durationMs, &run.Status); err != nil {
		return Run{}, err
	}
	run.Seed = uint64(seed)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}
