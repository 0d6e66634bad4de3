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

func TestCountProcessed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)

	tb, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{
		FileName: "a.pdf", Title: "A", Status: core.StatusReady, ProcessedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	ch, err := store.Chapters.AddChapter(ctx, &core.Chapter{TextbookId: tb.Id, Title: "One"})
	require.NoError(t, err)
	_, err = store.Chapters.AddChapter(ctx, &core.Chapter{TextbookId: tb.Id, Title: "Two"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := store.Chunks.AddChunk(ctx, &core.ContentChunk{ChapterId: ch.Id, ChunkIndex: i, Content: "c"})
		require.NoError(t, err)
	}
	// Textbook without a processed time is never counted.
	_, _, err = store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "b.pdf", Title: "B"})
	require.NoError(t, err)

	after := time.Now().UTC().Add(time.Second)

	counts, err := store.Stats.CountProcessed(ctx, before, after)
	require.NoError(t, err)
	assert.Equal(t, &core.Counts{Textbooks: 1, Chapters: 2, Chunks: 4}, counts)

	empty, err := store.Stats.CountProcessed(ctx, after, after.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, &core.Counts{}, empty)
}

func TestCountProcessed_ReprocessedTextbookCountedOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.Now().UTC().Add(-time.Minute)

	for i := 0; i < 3; i++ {
		_, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{
			FileName: "a.pdf", Title: "A", ProcessedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	counts, err := store.Stats.CountProcessed(ctx, start, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Textbooks)
}

func TestCountProcessed_InvalidWindow(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	_, err := store.Stats.CountProcessed(context.Background(), now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}
