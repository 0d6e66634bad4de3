package postgres

import (
	"context"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

const countProcessedSQL = `
SELECT
	(SELECT count(*) FROM textbooks WHERE processed_at >= $1 AND processed_at < $2),
	(SELECT count(*) FROM chapters WHERE created_at >= $1 AND created_at < $2),
	(SELECT count(*) FROM content_chunks WHERE created_at >= $1 AND created_at < $2)`

// CountProcessed counts rows whose timestamp falls in [start, end).
func (s *Store) CountProcessed(ctx context.Context, start, end time.Time) (*core.Counts, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, storage.ErrInvalidQuery
	}

	var textbooks, chapters, chunks int64
	err := s.querier(ctx).QueryRow(ctx, countProcessedSQL, start, end).Scan(&textbooks, &chapters, &chunks)
	if err != nil {
		return nil, translateError(err)
	}
	return &core.Counts{
		Textbooks: int(textbooks),
		Chapters:  int(chapters),
		Chunks:    int(chunks),
	}, nil
}
