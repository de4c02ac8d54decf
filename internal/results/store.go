// Package results persists run output to SQLite: one row per run with its
// configuration snapshot, and one row per simulated day with the infected
// and resistant counts.
package results

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is the stored metadata of one simulation run.
type Run struct {
	ID        string
	Model     string // stochastic, ode, network
	Seed      int64
	Days      int
	Config    string // YAML snapshot of the effective configuration
	CreatedAt time.Time
}

// Store is a SQLite-backed results store.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open initializes the database at the given path, creating the directory
// and schema if needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		seed INTEGER NOT NULL,
		days INTEGER NOT NULL,
		config TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS series (
		run_id TEXT NOT NULL REFERENCES runs(id),
		day INTEGER NOT NULL,
		infected INTEGER NOT NULL,
		resistant INTEGER NOT NULL,
		PRIMARY KEY (run_id, day)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_model ON runs(model);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRun stores one run and its per-day series, returning the generated
// run ID. The two series must have equal length.
func (s *Store) SaveRun(model string, seed int64, configYAML string, infected, resistant []int) (string, error) {
	if len(infected) != len(resistant) {
		return "", fmt.Errorf("series length mismatch: %d infected vs %d resistant",
			len(infected), len(resistant))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if _, err := tx.Exec(
		`INSERT INTO runs (id, model, seed, days, config) VALUES (?, ?, ?, ?, ?)`,
		id, model, seed, len(infected), configYAML,
	); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO series (run_id, day, infected, resistant) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare series insert: %w", err)
	}
	defer stmt.Close()

	for day := range infected {
		if _, err := stmt.Exec(id, day, infected[day], resistant[day]); err != nil {
			return "", fmt.Errorf("failed to insert day %d: %w", day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// Series loads the two series of a stored run in day order.
func (s *Store) Series(runID string) (infected, resistant []int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT infected, resistant FROM series WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var inf, res int
		if err := rows.Scan(&inf, &res); err != nil {
			return nil, nil, fmt.Errorf("failed to scan series row: %w", err)
		}
		infected = append(infected, inf)
		resistant = append(resistant, res)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("series iteration failed: %w", err)
	}
	if infected == nil {
		return nil, nil, fmt.Errorf("no series for run %s", runID)
	}
	return infected, resistant, nil
}

// ListRuns returns stored run metadata, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, model, seed, days, config, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Model, &r.Seed, &r.Days, &r.Config, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run iteration failed: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
