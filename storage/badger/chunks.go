package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddChunk inserts a new content chunk row.
func (r *ChunkRepository) AddChunk(ctx context.Context, chunk *core.ContentChunk) (*core.ContentChunk, error) {
	if chunk == nil || chunk.Content == "" || chunk.ChunkIndex < 0 || chunk.TokenCount < 0 {
		return nil, storage.ErrConstraint
	}

	record := *chunk
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		ok, err := exists(tx, makeChapterKey(record.ChapterId))
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrForeignKey
		}

		indexKey := makeChunkIndexKey(record.ChapterId, record.ChunkIndex)
		taken, err := exists(tx, indexKey)
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrDuplicateKey
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		record.Id = core.ID(id)
		record.CreatedAt = now()

		if err := tx.Set(makeChunkKey(record.Id), storage.MarshalChunk(&record)); err != nil {
			return err
		}
		if err := tx.Set(indexKey, storage.MarshalID(record.Id)); err != nil {
			return err
		}
		return tx.Set(makeDateKey(chunkDatePrefix, record.CreatedAt, record.Id), storage.MarshalID(record.Id))
	}, true)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// GetChunks returns the chunks of a chapter ordered by ChunkIndex.
func (r *ChunkRepository) GetChunks(ctx context.Context, chapterID core.ID) ([]*core.ContentChunk, error) {
	var results []*core.ContentChunk
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		for _, key := range collectKeys(tx, makePartialChunkIndexKey(chapterID)) {
			id, err := readValue(tx, key, storage.UnmarshalID)
			if err != nil {
				return err
			}
			chunk, err := readValue(tx, makeChunkKey(id), storage.UnmarshalChunk)
			if err != nil {
				return err
			}
			results = append(results, chunk)
		}
		return nil
	}, false)
	return results, err
}

// deleteChunks removes every chunk of a chapter together with its index entries.
func deleteChunks(tx *badger.Txn, chapterID core.ID) error {
	for _, indexKey := range collectKeys(tx, makePartialChunkIndexKey(chapterID)) {
		id, err := readValue(tx, indexKey, storage.UnmarshalID)
		if err != nil {
			return err
		}
		chunk, err := readValue(tx, makeChunkKey(id), storage.UnmarshalChunk)
		if err != nil {
			return err
		}
		for _, key := range [][]byte{
			makeDateKey(chunkDatePrefix, chunk.CreatedAt, id),
			indexKey,
			makeChunkKey(id),
		} {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
	}
	return nil
}
