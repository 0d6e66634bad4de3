package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

var runDocumentColumns = []string{
	"run_id", "position", "file_name", "state", "failed_at", "error", "textbook_id", "chapters", "chunks", "committed_at",
}

// SaveRun stores a run report, replacing any report with the same ID.
func (s *Store) SaveRun(ctx context.Context, run *core.IngestionRun) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if run == nil || run.ID == "" {
		return storage.ErrInvalidQuery
	}

	return s.WithTransaction(ctx, func(ctx context.Context) error {
		q := s.querier(ctx)
		if _, err := q.Exec(ctx, `DELETE FROM ingestion_runs WHERE id = $1`, run.ID); err != nil {
			return translateError(err)
		}
		if _, err := q.Exec(ctx,
			`INSERT INTO ingestion_runs (id, started_at, finished_at) VALUES ($1, $2, $3)`,
			run.ID, run.StartedAt, nullTime(run.FinishedAt),
		); err != nil {
			return translateError(err)
		}

		rows := make([][]any, 0, len(run.Outcomes))
		for i, o := range run.Outcomes {
			failedAt := ""
			if o.State == core.DocumentFailed {
				failedAt = o.FailedAt.String()
			}
			rows = append(rows, []any{
				run.ID, i, o.FileName, o.State.String(), failedAt, o.Error,
				int64(o.TextbookId), o.Chapters, o.Chunks, nullTime(o.CommittedAt),
			})
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := q.CopyFrom(ctx, pgx.Identifier{"ingestion_run_documents"}, runDocumentColumns, pgx.CopyFromRows(rows))
		return translateError(err)
	})
}

// LoadRun retrieves a run report by ID.
func (s *Store) LoadRun(ctx context.Context, id string) (*core.IngestionRun, error) {
	return s.loadRun(ctx, `SELECT id, started_at, finished_at FROM ingestion_runs WHERE id = $1`, id)
}

// LatestRun retrieves the report with the most recent start time.
func (s *Store) LatestRun(ctx context.Context) (*core.IngestionRun, error) {
	return s.loadRun(ctx, `SELECT id, started_at, finished_at FROM ingestion_runs ORDER BY started_at DESC LIMIT 1`)
}

func (s *Store) loadRun(ctx context.Context, query string, args ...any) (*core.IngestionRun, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	q := s.querier(ctx)

	var (
		run        core.IngestionRun
		finishedAt *time.Time
	)
	if err := q.QueryRow(ctx, query, args...).Scan(&run.ID, &run.StartedAt, &finishedAt); err != nil {
		return nil, translateError(err)
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = fromNullTime(finishedAt)

	rows, err := q.Query(ctx, `
		SELECT file_name, state, failed_at, error, textbook_id, chapters, chunks, committed_at
		FROM ingestion_run_documents WHERE run_id = $1 ORDER BY position`, run.ID)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o               core.DocumentOutcome
			state, failedAt string
			committedAt     *time.Time
		)
		if err := rows.Scan(&o.FileName, &state, &failedAt, &o.Error, (*int64)(&o.TextbookId), &o.Chapters, &o.Chunks, &committedAt); err != nil {
			return nil, translateError(err)
		}
		o.CommittedAt = fromNullTime(committedAt)
		if o.State, err = core.ParseDocumentState(state); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if failedAt != "" {
			if o.FailedAt, err = core.ParseDocumentState(failedAt); err != nil {
				return nil, fmt.Errorf("run %s: %w", run.ID, err)
			}
		}
		run.Outcomes = append(run.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return &run, nil
}
