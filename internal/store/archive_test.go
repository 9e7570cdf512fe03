package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testcrafter/internal/types"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := NewArchive(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func sampleGeneration(runID string, created time.Time) *types.Generation {
	return &types.Generation{
		RunID:      runID,
		SourcePath: "/src/add.js",
		LanguageID: "javascript",
		CreatedAt:  created,
		Tests: []types.TestCase{
			{ID: "Basic Test Cases-0", Title: "adds", Category: "Basic Test Cases", Code: "assert(add(1,2)===3)", Input: "1,2", ExpectedOutput: "3", Status: types.StatusPending},
			{ID: "Negative Test Cases-0", Title: "rejects", Category: "Negative Test Cases", Code: "assert.throws(...)", Status: types.StatusPending},
		},
		FailedCategories: []string{"Database Test Cases"},
	}
}

func TestArchiveSaveAndLoad(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	gen := sampleGeneration("3f1c9a52-0000-4000-8000-000000000001", created)
	require.NoError(t, a.SaveGeneration(ctx, gen))

	loaded, err := a.LoadRun(ctx, gen.RunID)
	require.NoError(t, err)
	if diff := cmp.Diff(gen, loaded); diff != "" {
		t.Errorf("LoadRun() mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveLoadByPrefix(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	require.NoError(t, a.SaveGeneration(ctx, sampleGeneration("abc-111", time.Now())))
	require.NoError(t, a.SaveGeneration(ctx, sampleGeneration("abd-222", time.Now())))

	gen, err := a.LoadRun(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc-111", gen.RunID)

	_, err = a.LoadRun(ctx, "ab")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = a.LoadRun(ctx, "zzz")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestArchiveUpdateStatuses(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	gen := sampleGeneration("run-1", time.Now())
	require.NoError(t, a.SaveGeneration(ctx, gen))

	gen.Tests[0].Status = types.StatusPassed
	gen.Tests[1].Status = types.StatusFailed
	gen.Tests[1].Error = "expected throw"
	require.NoError(t, a.UpdateStatuses(ctx, "run-1", gen.Tests))

	loaded, err := a.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPassed, loaded.Tests[0].Status)
	assert.Equal(t, types.StatusFailed, loaded.Tests[1].Status)
	assert.Equal(t, "expected throw", loaded.Tests[1].Error)

	err = a.UpdateStatuses(ctx, "missing", gen.Tests)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestArchiveListRuns(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := sampleGeneration("run-old", base)
	newer := sampleGeneration("run-new", base.Add(time.Hour))
	newer.Tests[0].Status = types.StatusAccepted
	newer.FailedCategories = nil
	require.NoError(t, a.SaveGeneration(ctx, older))
	require.NoError(t, a.SaveGeneration(ctx, newer))

	runs, err := a.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Counts[types.StatusAccepted])
	assert.Equal(t, 1, runs[0].Counts[types.StatusPending])
	assert.Nil(t, runs[0].Failed)
	assert.Equal(t, []string{"Database Test Cases"}, runs[1].Failed)
	assert.True(t, runs[1].CreatedAt.Equal(base))

	runs, err = a.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestArchiveResaveReplaces(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	gen := sampleGeneration("run-1", time.Now())
	require.NoError(t, a.SaveGeneration(ctx, gen))
	gen.Tests = gen.Tests[:1]
	require.NoError(t, a.SaveGeneration(ctx, gen))

	loaded, err := a.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, loaded.Tests, 1)
}

func TestArchiveRejectsMissingRunID(t *testing.T) {
	a := newTestArchive(t)
	assert.Error(t, a.SaveGeneration(context.Background(), &types.Generation{}))
	assert.Error(t, a.SaveGeneration(context.Background(), nil))
}

func TestArchiveMigratesOldSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE runs (
		run_id TEXT PRIMARY KEY,
		source_path TEXT,
		language_id TEXT,
		failed_categories TEXT,
		created_at TEXT NOT NULL
	)`)
	require.NoError(t, err)
	require.False(t, columnExists(db, "runs", "updated_at"))
	require.NoError(t, db.Close())

	a, err := NewArchive(path)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, columnExists(a.db, "runs", "updated_at"))

	ctx := context.Background()
	gen := sampleGeneration("run-1", time.Now())
	require.NoError(t, a.SaveGeneration(ctx, gen))

	runs, err := a.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].UpdatedAt.IsZero())

	gen.Tests[0].Status = types.StatusPassed
	require.NoError(t, a.UpdateStatuses(ctx, "run-1", gen.Tests))
	runs, err = a.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.False(t, runs[0].UpdatedAt.IsZero())

	require.NoError(t, RunMigrations(a.db), "re-running is a no-op")
}
