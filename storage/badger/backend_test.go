package badger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := OpenBackend(path, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	// Second close is a no-op.
	require.NoError(t, backend.Close())

	err = backend.WithTransaction(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestWithTransaction_CommitsAcrossRepositories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var chapterID core.ID
	err := store.Backend.WithTransaction(ctx, func(ctx context.Context) error {
		tb, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "a.pdf", Title: "A"})
		if err != nil {
			return err
		}
		ch, err := store.Chapters.AddChapter(ctx, &core.Chapter{TextbookId: tb.Id, Number: 1, Title: "One"})
		if err != nil {
			return err
		}
		chapterID = ch.Id
		_, err = store.Chunks.AddChunk(ctx, &core.ContentChunk{ChapterId: ch.Id, ChunkIndex: 0, Content: "text"})
		return err
	})
	require.NoError(t, err)

	chunks, err := store.Chunks.GetChunks(ctx, chapterID)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Backend.WithTransaction(ctx, func(ctx context.Context) error {
		tb, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "a.pdf", Title: "A"})
		if err != nil {
			return err
		}
		if _, err := store.Chapters.AddChapter(ctx, &core.Chapter{TextbookId: tb.Id, Title: "One"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Textbooks.GetTextbookByFileName(ctx, "a.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWithTransaction_NestedJoinsOuter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Textbooks.WithTransaction(ctx, func(ctx context.Context) error {
		inner := store.Chapters.WithTransaction(ctx, func(ctx context.Context) error {
			_, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "a.pdf", Title: "A"})
			return err
		})
		require.NoError(t, inner)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Textbooks.GetTextbookByFileName(ctx, "a.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWithTransaction_ConflictIsRetryable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "a.pdf", Title: "A"})
	require.NoError(t, err)

	err = store.Backend.WithTransaction(ctx, func(txCtx context.Context) error {
		// Read inside the transaction, then let a concurrent writer change the key.
		if _, err := store.Textbooks.GetTextbookByFileName(txCtx, "a.pdf"); err != nil {
			return err
		}
		if _, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "a.pdf", Title: "A2"}); err != nil {
			return err
		}
		_, _, err := store.Textbooks.UpsertTextbook(txCtx, &core.Textbook{FileName: "a.pdf", Title: "A3"})
		return err
	})
	assert.ErrorIs(t, err, storage.ErrTransactionFailed)
}

func TestWithTransaction_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Backend.WithTransaction(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithMemTableSize_Invalid(t *testing.T) {
	_, err := OpenBackend("", true, WithMemTableSize(0))
	assert.Error(t, err)
}

func TestWithTransaction_TooLarge(t *testing.T) {
	store, err := Open("", true, WithMemTableSize(1<<20))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	content := strings.Repeat("x", 2048)
	err = store.Backend.WithTransaction(ctx, func(ctx context.Context) error {
		tb, _, err := store.Textbooks.UpsertTextbook(ctx, &core.Textbook{FileName: "big.pdf", Title: "Big"})
		if err != nil {
			return err
		}
		ch, err := store.Chapters.AddChapter(ctx, &core.Chapter{TextbookId: tb.Id, Number: 1, Title: "One"})
		if err != nil {
			return err
		}
		for i := 0; i < 200; i++ {
			if _, err := store.Chunks.AddChunk(ctx, &core.ContentChunk{
				ChapterId: ch.Id, ChunkIndex: i, Content: content, ContentType: "text",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrTransactionTooLarge), "err = %v", err)
	assert.False(t, errors.Is(err, storage.ErrTransactionFailed))

	// Nothing from the rolled back transaction is visible.
	_, err = store.Textbooks.GetTextbookByFileName(ctx, "big.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
