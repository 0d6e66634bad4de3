package storage

import (
	"context"
	"time"

	"github.com/poiesic/lectern/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// Repository calls using the context passed to fn join the transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// TextbookRepository provides operations for textbook roots.
type TextbookRepository interface {
	Repository
	// UpsertTextbook writes a textbook keyed on FileName.
	// If no row has that file name, inserts one with a new ID.
	// Otherwise updates Title, Status and ProcessedAt of the existing row and
	// keeps its ID and remaining fields.
	// Returns the stored record and whether it was inserted.
	UpsertTextbook(ctx context.Context, textbook *core.Textbook) (*core.Textbook, bool, error)

	// GetTextbook retrieves a textbook by ID.
	// Returns ErrNotFound if the textbook doesn't exist.
	GetTextbook(ctx context.Context, id core.ID) (*core.Textbook, error)

	// GetTextbookByFileName retrieves a textbook by its natural key.
	// Returns ErrNotFound if the textbook doesn't exist.
	GetTextbookByFileName(ctx context.Context, fileName string) (*core.Textbook, error)
}

// ChapterRepository provides operations for chapters.
type ChapterRepository interface {
	Repository
	// AddChapter inserts a new chapter row and populates its ID and CreatedAt.
	// No deduplication: identical input produces a second row.
	// Returns ErrForeignKey if TextbookId does not exist.
	AddChapter(ctx context.Context, chapter *core.Chapter) (*core.Chapter, error)

	// GetChapters returns the chapters of a textbook in insertion order.
	GetChapters(ctx context.Context, textbookID core.ID) ([]*core.Chapter, error)

	// DeleteChapters removes every chapter of a textbook together with their
	// chunks. Returns the number of chapters removed.
	DeleteChapters(ctx context.Context, textbookID core.ID) (int, error)
}

// ChunkRepository provides operations for content chunks.
type ChunkRepository interface {
	Repository
	// AddChunk inserts a new chunk row and populates its ID and CreatedAt.
	// Returns ErrForeignKey if ChapterId does not exist and ErrDuplicateKey if
	// the chapter already has a chunk with the same ChunkIndex.
	AddChunk(ctx context.Context, chunk *core.ContentChunk) (*core.ContentChunk, error)

	// GetChunks returns the chunks of a chapter ordered by ChunkIndex.
	GetChunks(ctx context.Context, chapterID core.ID) ([]*core.ContentChunk, error)
}

// StatsRepository provides read-only aggregates.
type StatsRepository interface {
	// CountProcessed counts textbooks with start <= ProcessedAt < end and
	// chapters and chunks with start <= CreatedAt < end.
	CountProcessed(ctx context.Context, start, end time.Time) (*core.Counts, error)
}

// RunRepository persists batch reports.
type RunRepository interface {
	// SaveRun stores a run report, replacing any report with the same ID.
	SaveRun(ctx context.Context, run *core.IngestionRun) error

	// LoadRun retrieves a run report by ID.
	// Returns ErrNotFound if the run doesn't exist.
	LoadRun(ctx context.Context, id string) (*core.IngestionRun, error)

	// LatestRun retrieves the run with the most recent StartedAt.
	// Returns ErrNotFound if no run was saved yet.
	LatestRun(ctx context.Context) (*core.IngestionRun, error)
}
