package postgres

import (
	"context"

	"github.com/poiesic/lectern/core"
)

// AddChunk inserts a new content chunk row.
func (s *Store) AddChunk(ctx context.Context, chunk *core.ContentChunk) (*core.ContentChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	record := *chunk
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO content_chunks (chapter_id, chunk_index, content, content_type, token_count, page_number, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		int64(record.ChapterId),
		record.ChunkIndex,
		record.Content,
		record.ContentType,
		record.TokenCount,
		record.PageNumber,
		record.ContentHash,
	).Scan((*int64)(&record.Id), &record.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return &record, nil
}

// GetChunks returns the chunks of a chapter ordered by chunk index.
func (s *Store) GetChunks(ctx context.Context, chapterID core.ID) ([]*core.ContentChunk, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.querier(ctx).Query(ctx, `
		SELECT id, chapter_id, chunk_index, content, content_type, token_count, page_number, content_hash, created_at
		FROM content_chunks WHERE chapter_id = $1 ORDER BY chunk_index`, int64(chapterID))
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var results []*core.ContentChunk
	for rows.Next() {
		var ck core.ContentChunk
		if err := rows.Scan(
			(*int64)(&ck.Id),
			(*int64)(&ck.ChapterId),
			&ck.ChunkIndex,
			&ck.Content,
			&ck.ContentType,
			&ck.TokenCount,
			&ck.PageNumber,
			&ck.ContentHash,
			&ck.CreatedAt,
		); err != nil {
			return nil, translateError(err)
		}
		ck.CreatedAt = ck.CreatedAt.UTC()
		results = append(results, &ck)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return results, nil
}
