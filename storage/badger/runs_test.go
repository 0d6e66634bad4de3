package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepository_SaveLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Microsecond)

	run := &core.IngestionRun{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Outcomes: []core.DocumentOutcome{
			{FileName: "a.pdf", State: core.DocumentDone, TextbookId: 1, Chapters: 1, Chunks: 2, CommittedAt: start.Add(time.Millisecond)},
			{FileName: "b.pdf", State: core.DocumentFailed, FailedAt: core.DocumentStart, Error: "bad"},
		},
	}
	require.NoError(t, store.Runs.SaveRun(ctx, run))

	got, err := store.Runs.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	_, err = store.Runs.LoadRun(ctx, "run-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunRepository_LatestRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Runs.LatestRun(ctx)
	require.ErrorIs(t, err, storage.ErrNotFound)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, id := range []string{"older", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		require.NoError(t, store.Runs.SaveRun(ctx, &core.IngestionRun{ID: id, StartedAt: base.Add(offsets[i])}))
	}

	latest, err := store.Runs.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "newest", latest.ID)
}

func TestRunRepository_SaveReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, store.Runs.SaveRun(ctx, &core.IngestionRun{ID: "a", StartedAt: base.Add(time.Hour)}))
	require.NoError(t, store.Runs.SaveRun(ctx, &core.IngestionRun{ID: "b", StartedAt: base.Add(30 * time.Minute)}))
	// Moving "a" earlier must drop its old date index entry.
	require.NoError(t, store.Runs.SaveRun(ctx, &core.IngestionRun{ID: "a", StartedAt: base}))

	latest, err := store.Runs.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestRunRepository_SaveInvalid(t *testing.T) {
	store := newTestStore(t)

	err := store.Runs.SaveRun(context.Background(), &core.IngestionRun{})
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
