// Package store archives generations in SQLite so past runs can be listed
// and reopened.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"testcrafter/internal/logging"
	"testcrafter/internal/types"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when no archived run matches.
var ErrRunNotFound = errors.New("run not found")

// Archive is the SQLite-backed run history.
type Archive struct {
	db *sql.DB
	mu sync.Mutex
}

// RunSummary is one row of ListRuns.
type RunSummary struct {
	RunID      string
	SourcePath string
	LanguageID string
	CreatedAt  time.Time
	Total      int
	Counts     map[types.Status]int
	Failed     []string  // categories whose completion call failed
	UpdatedAt  time.Time // last status write; zero if never run
}

// NewArchive opens (creating if needed) the archive at path.
func NewArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	a := &Archive{db: db}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Archive opened at %s", path)
	return a, nil
}

func (a *Archive) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		source_path TEXT,
		language_id TEXT,
		failed_categories TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`

	testsTable := `
	CREATE TABLE IF NOT EXISTS test_cases (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		test_id TEXT NOT NULL,
		title TEXT,
		category TEXT,
		code TEXT,
		input TEXT,
		expected_output TEXT,
		status TEXT NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_tests_run_id ON test_cases(run_id, test_id);
	`

	for _, table := range []string{runsTable, testsTable} {
		if _, err := a.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return RunMigrations(a.db)
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveGeneration stores gen and its tests. Saving the same RunID again
// replaces the earlier copy.
func (a *Archive) SaveGeneration(ctx context.Context, gen *types.Generation) error {
	if gen == nil || gen.RunID == "" {
		return errors.New("generation has no run ID")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	failed, err := json.Marshal(gen.FailedCategories)
	if err != nil {
		return fmt.Errorf("failed to encode failed categories: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM test_cases WHERE run_id = ?`, gen.RunID); err != nil {
		return fmt.Errorf("failed to clear tests: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, source_path, language_id, failed_categories, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		gen.RunID, gen.SourcePath, gen.LanguageID, string(failed), gen.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO test_cases (run_id, position, test_id, title, category, code, input, expected_output, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, tc := range gen.Tests {
		if _, err := stmt.ExecContext(ctx, gen.RunID, i, tc.ID, tc.Title, tc.Category, tc.Code,
			tc.Input, tc.ExpectedOutput, string(tc.Status), tc.Error); err != nil {
			return fmt.Errorf("failed to insert test %s: %w", tc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	logging.Get(logging.CategoryStore).With("run_id", gen.RunID).Info("archived %d tests", len(gen.Tests))
	return nil
}

// UpdateStatuses writes the status and error of each test back to the run.
func (a *Archive) UpdateStatuses(ctx context.Context, runID string, tests []types.TestCase) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	for _, tc := range tests {
		if _, err := tx.ExecContext(ctx,
			`UPDATE test_cases SET status = ?, error = ? WHERE run_id = ? AND test_id = ?`,
			string(tc.Status), tc.Error, runID, tc.ID); err != nil {
			return fmt.Errorf("failed to update %s: %w", tc.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET updated_at = ? WHERE run_id = ?`,
		time.Now().UTC().Format(timeLayout), runID); err != nil {
		return fmt.Errorf("failed to touch run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	logging.StoreDebug("Updated %d statuses for run %s", len(tests), runID)
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means all.
func (a *Archive) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `SELECT run_id, source_path, language_id, failed_categories, created_at, updated_at FROM runs ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var sourcePath, languageID, failed, updated sql.NullString
		var created string
		if err := rows.Scan(&s.RunID, &sourcePath, &languageID, &failed, &created, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.SourcePath = sourcePath.String
		s.LanguageID = languageID.String
		s.CreatedAt = parseTime(created)
		s.UpdatedAt = parseTime(updated.String)
		s.Failed = decodeCategories(failed.String)
		s.Counts = make(map[types.Status]int)
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range runs {
		if err := a.countStatuses(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (a *Archive) countStatuses(ctx context.Context, s *RunSummary) error {
	rows, err := a.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM test_cases WHERE run_id = ? GROUP BY status`, s.RunID)
	if err != nil {
		return fmt.Errorf("failed to count tests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		s.Counts[types.Status(status)] = n
		s.Total += n
	}
	return rows.Err()
}

// ResolveRunID expands a unique prefix to a full run ID.
func (a *Archive) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("%w: empty run ID", ErrRunNotFound)
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE substr(run_id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run ID prefix %q is ambiguous", prefix)
	}
}

// LoadRun returns the archived generation with the given run ID (or unique
// prefix of one).
func (a *Archive) LoadRun(ctx context.Context, runID string) (*types.Generation, error) {
	fullID, err := a.ResolveRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	gen := &types.Generation{RunID: fullID, Tests: []types.TestCase{}}
	var sourcePath, languageID, failed sql.NullString
	var created string
	err = a.db.QueryRowContext(ctx,
		`SELECT source_path, language_id, failed_categories, created_at FROM runs WHERE run_id = ?`, fullID).
		Scan(&sourcePath, &languageID, &failed, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	gen.SourcePath = sourcePath.String
	gen.LanguageID = languageID.String
	gen.CreatedAt = parseTime(created)
	gen.FailedCategories = decodeCategories(failed.String)

	rows, err := a.db.QueryContext(ctx,
		`SELECT test_id, title, category, code, input, expected_output, status, error
		 FROM test_cases WHERE run_id = ? ORDER BY position`, fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tests: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc types.TestCase
		var title, category, code, input, expected, errText sql.NullString
		var status string
		if err := rows.Scan(&tc.ID, &title, &category, &code, &input, &expected, &status, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tc.Title = title.String
		tc.Category = category.String
		tc.Code = code.String
		tc.Input = input.String
		tc.ExpectedOutput = expected.String
		tc.Status = types.Status(status)
		tc.Error = errText.String
		gen.Tests = append(gen.Tests, tc)
	}
	return gen, rows.Err()
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeCategories(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
