package runstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resell-reports/internal/model"
)

var testNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func newTestRun(id, userID string) *model.Run {
	return model.NewRun(id, userID, "sales-summary",
		model.Filters{model.FilterPlatform: "ebay"}, model.DefaultExportOptions(), testNow)
}

func TestMemory_CompleteLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	require.NoError(t, store.CreateRun(ctx, newTestRun("r1", "u1")))

	run, err := store.GetRun(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, model.ProgressStarted, run.Progress)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, store.SetProgress(ctx, "r1", model.ProgressFetched))

	result := model.RunResult{
		RowCount: 2,
		Preview:  json.RawMessage(`[{"a":1},{"a":2}]`),
		Metrics:  model.Metrics{"total_sales": 2},
	}
	done := testNow.Add(time.Second)
	require.NoError(t, store.CompleteRun(ctx, "r1", result, done))

	run, err = store.GetRun(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, model.ProgressDone, run.Progress)
	assert.Equal(t, 2, run.RowCount)
	assert.JSONEq(t, `[{"a":1},{"a":2}]`, string(run.Preview))
	assert.Equal(t, 2, run.Metrics["total_sales"])
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, done, *run.CompletedAt)
}

func TestMemory_TerminalWritesAreOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateRun(ctx, newTestRun("r1", "u1")))

	require.NoError(t, store.FailRun(ctx, "r1", "boom", testNow))

	err := store.CompleteRun(ctx, "r1", model.RunResult{}, testNow)
	assert.ErrorIs(t, err, model.ErrRunFinalized)

	err = store.FailRun(ctx, "r1", "again", testNow)
	assert.ErrorIs(t, err, model.ErrRunFinalized)

	err = store.SetProgress(ctx, "r1", 60)
	assert.ErrorIs(t, err, model.ErrRunFinalized)

	run, err := store.GetRun(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, "boom", run.Error)
}

func TestMemory_GetRunScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateRun(ctx, newTestRun("r1", "u1")))

	_, err := store.GetRun(ctx, "u2", "r1")
	assert.ErrorIs(t, err, model.ErrRunNotFound)

	_, err = store.GetRun(ctx, "u1", "missing")
	assert.ErrorIs(t, err, model.ErrRunNotFound)
}

func TestMemory_UnknownRunWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	assert.ErrorIs(t, store.SetProgress(ctx, "nope", 60), model.ErrRunNotFound)
	assert.ErrorIs(t, store.FailRun(ctx, "nope", "x", testNow), model.ErrRunNotFound)
}

func TestMemory_DuplicateCreate(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateRun(ctx, newTestRun("r1", "u1")))
	assert.Error(t, store.CreateRun(ctx, newTestRun("r1", "u1")))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	require.NoError(t, store.CreateRun(ctx, newTestRun("r1", "u1")))

	run, err := store.GetRun(ctx, "u1", "r1")
	require.NoError(t, err)
	run.Status = model.RunStatusCompleted
	run.Filters[model.FilterPlatform] = "vinted"

	again, err := store.GetRun(ctx, "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, again.Status)
	assert.Equal(t, "ebay", again.Filters.String(model.FilterPlatform))
}

func TestMemory_ReapStale(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	old := newTestRun("old", "u1")
	old.StartedAt = testNow.Add(-time.Hour)
	require.NoError(t, store.CreateRun(ctx, old))

	fresh := newTestRun("fresh", "u1")
	require.NoError(t, store.CreateRun(ctx, fresh))

	finished := newTestRun("finished", "u1")
	finished.StartedAt = testNow.Add(-time.Hour)
	require.NoError(t, store.CreateRun(ctx, finished))
	require.NoError(t, store.CompleteRun(ctx, "finished", model.RunResult{}, testNow.Add(-50*time.Minute)))

	n, err := store.ReapStale(ctx, testNow.Add(-15*time.Minute), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	run, err := store.GetRun(ctx, "u1", "old")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, run.Status)
	assert.Equal(t, model.StaleRunMessage, run.Error)

	run, err = store.GetRun(ctx, "u1", "fresh")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	run, err = store.GetRun(ctx, "u1", "finished")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
}
