package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextbookWriter_SetsStatusAndProcessedAt(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

	w := NewTextbookWriter(store.Textbooks, nil)
	w.now = func() time.Time { return fixed }

	id, err := w.Write(ctx, &core.Document{FileName: "hist-9.pdf", Title: "History 9", Grade: 9})
	require.NoError(t, err)
	assert.NotZero(t, id)

	tb, err := store.Textbooks.GetTextbook(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusReady, tb.Status)
	assert.Equal(t, fixed, tb.ProcessedAt)

	again, err := w.Write(ctx, &core.Document{FileName: "hist-9.pdf", Title: "History 9 (2nd ed.)"})
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestTextbookWriter_RejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	w := NewTextbookWriter(store.Textbooks, nil)

	_, err := w.Write(context.Background(), &core.Document{FileName: "x.pdf"})
	assert.ErrorIs(t, err, core.ErrEmptyTitle)
}

func TestChapterWriter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tw := NewTextbookWriter(store.Textbooks, nil)
	cw := NewChapterWriter(store.Chapters, nil)

	textbookID, err := tw.Write(ctx, &core.Document{FileName: "a.pdf", Title: "A"})
	require.NoError(t, err)

	chapter := core.DocumentChapter{Number: 4, Title: "Rivers", StartPage: 50, EndPage: 64}
	first, err := cw.Write(ctx, textbookID, chapter)
	require.NoError(t, err)
	second, err := cw.Write(ctx, textbookID, chapter)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	chapters, err := store.Chapters.GetChapters(ctx, textbookID)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, []string{}, chapters[0].Topics)
	assert.Equal(t, 50, chapters[0].StartPage)

	n, err := cw.Purge(ctx, textbookID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestChapterWriter_UnknownTextbook(t *testing.T) {
	store := newTestStore(t)
	cw := NewChapterWriter(store.Chapters, nil)

	_, err := cw.Write(context.Background(), 777, core.DocumentChapter{Title: "Orphan"})
	assert.ErrorIs(t, err, storage.ErrForeignKey)
}

func TestChunkWriter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	tw := NewTextbookWriter(store.Textbooks, nil)
	cw := NewChapterWriter(store.Chapters, nil)
	kw := NewChunkWriter(store.Chunks, nil)

	textbookID, err := tw.Write(ctx, &core.Document{FileName: "a.pdf", Title: "A"})
	require.NoError(t, err)
	chapterID, err := cw.Write(ctx, textbookID, core.DocumentChapter{Title: "One"})
	require.NoError(t, err)

	// The index is stored as given, without re-deriving order.
	_, err = kw.Write(ctx, chapterID, 7, core.DocumentChunk{Content: "twelve chars"})
	require.NoError(t, err)

	chunks, err := store.Chunks.GetChunks(ctx, chapterID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 7, chunks[0].ChunkIndex)
	assert.Equal(t, 3, chunks[0].TokenCount)
	assert.Equal(t, core.DefaultContentType, chunks[0].ContentType)

	_, err = kw.Write(ctx, chapterID, 7, core.DocumentChunk{Content: "again"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = kw.Write(ctx, 9999, 0, core.DocumentChunk{Content: "orphan"})
	assert.ErrorIs(t, err, storage.ErrForeignKey)
}
