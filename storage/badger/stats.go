package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// StatsRepository implements storage.StatsRepository over the date indexes.
type StatsRepository struct {
	backend *Backend
}

var _ storage.StatsRepository = (*StatsRepository)(nil)

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(backend *Backend) *StatsRepository {
	return &StatsRepository{
		backend: backend,
	}
}

// CountProcessed counts rows whose timestamp falls in [start, end).
func (r *StatsRepository) CountProcessed(ctx context.Context, start, end time.Time) (*core.Counts, error) {
	if end.Before(start) {
		return nil, storage.ErrInvalidQuery
	}

	counts := &core.Counts{}
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		counts.Textbooks = countWindow(tx, textbookDatePrefix, start, end)
		counts.Chapters = countWindow(tx, chapterDatePrefix, start, end)
		counts.Chunks = countWindow(tx, chunkDatePrefix, start, end)
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func countWindow(tx *badger.Txn, prefix string, start, end time.Time) int {
	return countRange(tx,
		[]byte(prefix+":"),
		makePartialDateKey(prefix, start),
		makePartialDateKey(prefix, end),
	)
}
