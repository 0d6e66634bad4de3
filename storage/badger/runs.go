package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{
		backend: backend,
	}
}

// SaveRun persists a run report, replacing an earlier report with the same ID.
func (r *RunRepository) SaveRun(ctx context.Context, run *core.IngestionRun) error {
	if run == nil || run.ID == "" {
		return storage.ErrInvalidQuery
	}

	return r.backend.withTx(ctx, func(tx *badger.Txn) error {
		key := makeRunKey(run.ID)
		old, err := readValue(tx, key, storage.UnmarshalRun)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if old != nil {
			if err := tx.Delete(makeRunDateKey(old.StartedAt, old.ID)); err != nil {
				return err
			}
		}

		if err := tx.Set(key, storage.MarshalRun(run)); err != nil {
			return err
		}
		return tx.Set(makeRunDateKey(run.StartedAt, run.ID), []byte(run.ID))
	}, true)
}

// LoadRun retrieves a run report by ID.
func (r *RunRepository) LoadRun(ctx context.Context, id string) (*core.IngestionRun, error) {
	var run *core.IngestionRun
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		var err error
		run, err = readValue(tx, makeRunKey(id), storage.UnmarshalRun)
		return err
	}, false)
	return run, err
}

// LatestRun retrieves the report with the most recent start time.
func (r *RunRepository) LatestRun(ctx context.Context) (*core.IngestionRun, error) {
	var run *core.IngestionRun
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		prefix := []byte(runDatePrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)

		// Reverse iteration starts at the largest key below the seek key.
		iter.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !iter.Valid() {
			iter.Close()
			return storage.ErrNotFound
		}
		id, err := iter.Item().ValueCopy(nil)
		iter.Close()
		if err != nil {
			return err
		}

		run, err = readValue(tx, makeRunKey(string(id)), storage.UnmarshalRun)
		return err
	}, false)
	return run, err
}
