package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// ChapterRepository implements storage.ChapterRepository for BadgerDB.
type ChapterRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChapterRepository = (*ChapterRepository)(nil)

// NewChapterRepository creates a new ChapterRepository.
func NewChapterRepository(backend *Backend) (*ChapterRepository, error) {
	idSeq, err := backend.GetSequence(chapterIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChapterRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChapterRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChapterRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddChapter inserts a new chapter row.
func (r *ChapterRepository) AddChapter(ctx context.Context, chapter *core.Chapter) (*core.Chapter, error) {
	if chapter == nil || chapter.Title == "" {
		return nil, storage.ErrConstraint
	}

	record := *chapter
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		ok, err := exists(tx, makeTextbookKey(record.TextbookId))
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrForeignKey
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		record.Id = core.ID(id)
		record.CreatedAt = now()
		if record.Topics == nil {
			record.Topics = []string{}
		}

		if err := tx.Set(makeChapterKey(record.Id), storage.MarshalChapter(&record)); err != nil {
			return err
		}
		if err := tx.Set(makeChapterParentKey(record.TextbookId, record.Id), nil); err != nil {
			return err
		}
		return tx.Set(makeDateKey(chapterDatePrefix, record.CreatedAt, record.Id), storage.MarshalID(record.Id))
	}, true)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// GetChapters returns the chapters of a textbook ordered by ID.
func (r *ChapterRepository) GetChapters(ctx context.Context, textbookID core.ID) ([]*core.Chapter, error) {
	var results []*core.Chapter
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		for _, key := range collectKeys(tx, makePartialChapterParentKey(textbookID)) {
			chapter, err := readValue(tx, makeChapterKey(idFromCompositeKey(key)), storage.UnmarshalChapter)
			if err != nil {
				return err
			}
			results = append(results, chapter)
		}
		return nil
	}, false)
	return results, err
}

// DeleteChapters removes every chapter of a textbook and their chunks.
func (r *ChapterRepository) DeleteChapters(ctx context.Context, textbookID core.ID) (int, error) {
	deleted := 0
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		for _, parentKey := range collectKeys(tx, makePartialChapterParentKey(textbookID)) {
			chapterID := idFromCompositeKey(parentKey)
			chapter, err := readValue(tx, makeChapterKey(chapterID), storage.UnmarshalChapter)
			if err != nil {
				return err
			}
			if err := deleteChunks(tx, chapterID); err != nil {
				return err
			}
			for _, key := range [][]byte{
				makeDateKey(chapterDatePrefix, chapter.CreatedAt, chapterID),
				parentKey,
				makeChapterKey(chapterID),
			} {
				if err := tx.Delete(key); err != nil {
					return err
				}
			}
			deleted++
		}
		return nil
	}, true)
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
