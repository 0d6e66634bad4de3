package badger

import (
	"context"
	"testing"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addChapter(t *testing.T, store *Store) *core.Chapter {
	t.Helper()
	tb := addTextbook(t, store, "chunks.pdf")
	ch, err := store.Chapters.AddChapter(context.Background(), &core.Chapter{TextbookId: tb.Id, Title: "Chunks"})
	require.NoError(t, err)
	return ch
}

func TestAddChunk_OrderedByIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ch := addChapter(t, store)

	for _, idx := range []int{2, 0, 1} {
		_, err := store.Chunks.AddChunk(ctx, &core.ContentChunk{
			ChapterId:   ch.Id,
			ChunkIndex:  idx,
			Content:     "content",
			ContentType: "text",
			TokenCount:  3,
			PageNumber:  idx + 1,
		})
		require.NoError(t, err)
	}

	chunks, err := store.Chunks.GetChunks(ctx, ch.Id)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, ch.Id, c.ChapterId)
		assert.False(t, c.CreatedAt.IsZero())
	}
}

func TestAddChunk_DuplicateIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ch := addChapter(t, store)

	_, err := store.Chunks.AddChunk(ctx, &core.ContentChunk{ChapterId: ch.Id, ChunkIndex: 0, Content: "a"})
	require.NoError(t, err)

	_, err = store.Chunks.AddChunk(ctx, &core.ContentChunk{ChapterId: ch.Id, ChunkIndex: 0, Content: "b"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestAddChunk_MissingChapter(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Chunks.AddChunk(context.Background(), &core.ContentChunk{ChapterId: 404, ChunkIndex: 0, Content: "a"})
	assert.ErrorIs(t, err, storage.ErrForeignKey)
}

func TestAddChunk_Constraints(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ch := addChapter(t, store)

	tests := []struct {
		name  string
		chunk *core.ContentChunk
	}{
		{"empty content", &core.ContentChunk{ChapterId: ch.Id, Content: ""}},
		{"negative index", &core.ContentChunk{ChapterId: ch.Id, ChunkIndex: -1, Content: "a"}},
		{"negative tokens", &core.ContentChunk{ChapterId: ch.Id, Content: "a", TokenCount: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Chunks.AddChunk(ctx, tt.chunk)
			assert.ErrorIs(t, err, storage.ErrConstraint)
		})
	}
}
