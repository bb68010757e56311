package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocitation/autocite/internal/testutil"
	"github.com/autocitation/autocite/pkg/core"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(testutil.NewTestLogger(t))
	require.NoError(t, store.Open(MemoryPath))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	v, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	for _, table := range []string{"runs", "snapshots"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, table)
		_ = rows.Close()
	}
}

func TestStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".autocite", "state.db")
	store := NewStore(nil)
	require.NoError(t, store.Open(path))
	assert.Equal(t, path, store.Path())

	_, err := store.CreateRun(context.Background(), "/refs", "run")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewStore(nil)
	require.NoError(t, reopened.Open(path))
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	run, err := store.CreateRun(ctx, "/refs", "run")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "/refs", got.Folder)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.Stats)

	stats := map[string]int{"records_loaded": 3}
	require.NoError(t, store.CompleteRun(ctx, run.ID, RunStatusCompleted, "", stats))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.JSONEq(t, `{"records_loaded": 3}`, string(got.Stats))

	failed, err := store.CreateRun(ctx, "/other", "check")
	require.NoError(t, err)
	require.NoError(t, store.CompleteRun(ctx, failed.ID, RunStatusFailed, "boom", nil))

	all, err := store.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, failed.ID, all[0].ID, "newest first")
	assert.Equal(t, "boom", all[0].Error)

	only, err := store.ListRuns(ctx, "/refs", 10)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, run.ID, only[0].ID)

	limited, err := store.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_RunNotFound(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	_, err := store.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = store.CompleteRun(ctx, "nope", RunStatusCompleted, "", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	proj, runID, err := store.LatestSnapshot(ctx, "/refs")
	require.NoError(t, err)
	assert.Nil(t, proj)
	assert.Empty(t, runID)

	p := core.NewProject("/refs", core.DefaultProjectSettings())
	p.AddRecords(core.NewRecord(core.NewRecordParams{Title: "first", Year: 2020}))

	run1, err := store.CreateRun(ctx, "/refs", "run")
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, run1.ID, p))

	p.AddRecords(core.NewRecord(core.NewRecordParams{Title: "second", Year: 2021}))
	run2, err := store.CreateRun(ctx, "/refs", "run")
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, run2.ID, p))

	got, gotRun, err := store.LatestSnapshot(ctx, "/refs")
	require.NoError(t, err)
	assert.Equal(t, run2.ID, gotRun)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "second", got.Records[1].Title)

	err = store.SaveSnapshot(ctx, "missing-run", p)
	assert.Error(t, err, "snapshots reference runs")
}

func TestStore_NotOpen(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.CreateRun(ctx, "/", "run")
	assert.Error(t, err)
	_, err = store.ListRuns(ctx, "", 0)
	assert.Error(t, err)
	_, _, err = store.LatestSnapshot(ctx, "/")
	assert.Error(t, err)
	assert.Error(t, store.Migrate())
	assert.NoError(t, store.Close())
}

func TestStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewWithDB(db, nil)
	ctx := context.Background()
	dbErr := errors.New("disk full")

	mock.ExpectExec("INSERT INTO runs").WillReturnError(dbErr)
	_, err = store.CreateRun(ctx, "/refs", "run")
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectExec("UPDATE runs").WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.CompleteRun(ctx, "r1", RunStatusCompleted, "", nil)
	assert.ErrorIs(t, err, ErrRunNotFound)

	mock.ExpectQuery("SELECT .* FROM runs").WillReturnError(dbErr)
	_, err = store.ListRuns(ctx, "", 0)
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectQuery("FROM snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "project"}).AddRow("r1", "{not json"))
	_, _, err = store.LatestSnapshot(ctx, "/refs")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
