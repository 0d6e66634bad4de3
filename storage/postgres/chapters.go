package postgres

import (
	"context"

	"github.com/poiesic/lectern/core"
)

// AddChapter inserts a new chapter row.
func (s *Store) AddChapter(ctx context.Context, chapter *core.Chapter) (*core.Chapter, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	record := *chapter
	if record.Topics == nil {
		record.Topics = []string{}
	}
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO chapters (textbook_id, chapter_number, title, topics, start_page, end_page)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		int64(record.TextbookId),
		record.Number,
		record.Title,
		record.Topics,
		record.StartPage,
		record.EndPage,
	).Scan((*int64)(&record.Id), &record.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	record.CreatedAt = record.CreatedAt.UTC()
	return &record, nil
}

// GetChapters returns the chapters of a textbook ordered by ID.
func (s *Store) GetChapters(ctx context.Context, textbookID core.ID) ([]*core.Chapter, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	rows, err := s.querier(ctx).Query(ctx, `
		SELECT id, textbook_id, chapter_number, title, topics, start_page, end_page, created_at
		FROM chapters WHERE textbook_id = $1 ORDER BY id`, int64(textbookID))
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var results []*core.Chapter
	for rows.Next() {
		var ch core.Chapter
		if err := rows.Scan(
			(*int64)(&ch.Id),
			(*int64)(&ch.TextbookId),
			&ch.Number,
			&ch.Title,
			&ch.Topics,
			&ch.StartPage,
			&ch.EndPage,
			&ch.CreatedAt,
		); err != nil {
			return nil, translateError(err)
		}
		ch.CreatedAt = ch.CreatedAt.UTC()
		results = append(results, &ch)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return results, nil
}

// DeleteChapters removes every chapter of a textbook. Chunks go with them
// through ON DELETE CASCADE.
func (s *Store) DeleteChapters(ctx context.Context, textbookID core.ID) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	tag, err := s.querier(ctx).Exec(ctx, `DELETE FROM chapters WHERE textbook_id = $1`, int64(textbookID))
	if err != nil {
		return 0, translateError(err)
	}
	return int(tag.RowsAffected()), nil
}
