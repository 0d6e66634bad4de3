package postgres

import (
	"context"
	"fmt"
)

// schema creates the hierarchy tables and the run report tables.
// Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS textbooks (
		id           BIGSERIAL PRIMARY KEY,
		file_name    TEXT NOT NULL UNIQUE CHECK (file_name <> ''),
		title        TEXT NOT NULL,
		grade        INTEGER NOT NULL DEFAULT 0 CHECK (grade >= 0),
		subject      TEXT NOT NULL DEFAULT '',
		total_pages  INTEGER NOT NULL DEFAULT 0 CHECK (total_pages >= 0),
		file_size_mb DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (file_size_mb >= 0),
		status       TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'ready', 'failed')),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS textbooks_processed_at_idx ON textbooks (processed_at)`,
	`CREATE TABLE IF NOT EXISTS chapters (
		id             BIGSERIAL PRIMARY KEY,
		textbook_id    BIGINT NOT NULL REFERENCES textbooks (id) ON DELETE CASCADE,
		chapter_number INTEGER NOT NULL DEFAULT 0,
		title          TEXT NOT NULL CHECK (title <> ''),
		topics         TEXT[] NOT NULL DEFAULT '{}',
		start_page     INTEGER NOT NULL DEFAULT 0,
		end_page       INTEGER NOT NULL DEFAULT 0,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS chapters_textbook_id_idx ON chapters (textbook_id)`,
	`CREATE INDEX IF NOT EXISTS chapters_created_at_idx ON chapters (created_at)`,
	`CREATE TABLE IF NOT EXISTS content_chunks (
		id           BIGSERIAL PRIMARY KEY,
		chapter_id   BIGINT NOT NULL REFERENCES chapters (id) ON DELETE CASCADE,
		chunk_index  INTEGER NOT NULL CHECK (chunk_index >= 0),
		content      TEXT NOT NULL CHECK (content <> ''),
		content_type TEXT NOT NULL DEFAULT 'text',
		token_count  INTEGER NOT NULL DEFAULT 0 CHECK (token_count >= 0),
		page_number  INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (chapter_id, chunk_index)
	)`,
	`CREATE INDEX IF NOT EXISTS content_chunks_created_at_idx ON content_chunks (created_at)`,
	`CREATE TABLE IF NOT EXISTS ingestion_runs (
		id          TEXT PRIMARY KEY,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS ingestion_runs_started_at_idx ON ingestion_runs (started_at)`,
	`CREATE TABLE IF NOT EXISTS ingestion_run_documents (
		run_id      TEXT NOT NULL REFERENCES ingestion_runs (id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		file_name   TEXT NOT NULL,
		state       TEXT NOT NULL,
		failed_at   TEXT NOT NULL DEFAULT '',
		error       TEXT NOT NULL DEFAULT '',
		textbook_id BIGINT NOT NULL DEFAULT 0,
		chapters    INTEGER NOT NULL DEFAULT 0,
		chunks      INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, position)
	)`,
	`ALTER TABLE ingestion_run_documents ADD COLUMN IF NOT EXISTS committed_at TIMESTAMPTZ`,
}

// Migrate installs the schema inside one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.querier(ctx)
		for i, stmt := range schema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("schema statement %d: %w", i+1, translateError(err))
			}
		}
		s.logger.Info("schema migrated", "statements", len(schema))
		return nil
	})
}
