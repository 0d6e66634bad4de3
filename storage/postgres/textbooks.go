package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/poiesic/lectern/core"
)

const textbookColumns = `id, file_name, title, grade, subject, total_pages, file_size_mb, status, processed_at`

const upsertTextbookSQL = `
INSERT INTO textbooks (file_name, title, grade, subject, total_pages, file_size_mb, status, processed_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, ''), 'pending'), $8)
ON CONFLICT (file_name) DO UPDATE
SET title = EXCLUDED.title,
    status = EXCLUDED.status,
    processed_at = EXCLUDED.processed_at
RETURNING ` + textbookColumns + `, (xmax = 0) AS inserted`

// UpsertTextbook inserts a textbook or updates the row with the same file name.
func (s *Store) UpsertTextbook(ctx context.Context, textbook *core.Textbook) (*core.Textbook, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}

	var inserted bool
	row := s.querier(ctx).QueryRow(ctx, upsertTextbookSQL,
		textbook.FileName,
		textbook.Title,
		textbook.Grade,
		textbook.Subject,
		textbook.TotalPages,
		textbook.FileSizeMB,
		string(textbook.Status),
		nullTime(textbook.ProcessedAt),
	)
	result, err := scanTextbook(row, &inserted)
	if err != nil {
		return nil, false, translateError(err)
	}
	return result, inserted, nil
}

// GetTextbook retrieves a textbook by ID.
func (s *Store) GetTextbook(ctx context.Context, id core.ID) (*core.Textbook, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	row := s.querier(ctx).QueryRow(ctx, `SELECT `+textbookColumns+` FROM textbooks WHERE id = $1`, int64(id))
	result, err := scanTextbook(row)
	return result, translateError(err)
}

// GetTextbookByFileName retrieves a textbook by its natural key.
func (s *Store) GetTextbookByFileName(ctx context.Context, fileName string) (*core.Textbook, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	row := s.querier(ctx).QueryRow(ctx, `SELECT `+textbookColumns+` FROM textbooks WHERE file_name = $1`, fileName)
	result, err := scanTextbook(row)
	return result, translateError(err)
}

func scanTextbook(row pgx.Row, extra ...any) (*core.Textbook, error) {
	var (
		tb          core.Textbook
		status      string
		processedAt *time.Time
	)
	dest := append([]any{
		(*int64)(&tb.Id),
		&tb.FileName,
		&tb.Title,
		&tb.Grade,
		&tb.Subject,
		&tb.TotalPages,
		&tb.FileSizeMB,
		&status,
		&processedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	tb.Status = core.TextbookStatus(status)
	tb.ProcessedAt = fromNullTime(processedAt)
	return &tb, nil
}
