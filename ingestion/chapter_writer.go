package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// ChapterWriter inserts chapter rows. It never deduplicates: writing the same
// chapter twice yields two rows.
type ChapterWriter struct {
	repo   storage.ChapterRepository
	logger *slog.Logger
}

// NewChapterWriter creates a ChapterWriter.
func NewChapterWriter(repo storage.ChapterRepository, logger *slog.Logger) *ChapterWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChapterWriter{
		repo:   repo,
		logger: logger.With("writer", "chapter"),
	}
}

// Write inserts chapter under textbookID and returns the new chapter ID.
// An unknown textbookID fails with storage.ErrForeignKey.
func (w *ChapterWriter) Write(ctx context.Context, textbookID core.ID, chapter core.DocumentChapter) (core.ID, error) {
	topics := chapter.Topics
	if topics == nil {
		topics = []string{}
	}

	stored, err := w.repo.AddChapter(ctx, &core.Chapter{
		TextbookId: textbookID,
		Number:     chapter.Number,
		Title:      chapter.Title,
		Topics:     topics,
		StartPage:  chapter.StartPage,
		EndPage:    chapter.EndPage,
	})
	if err != nil {
		return 0, fmt.Errorf("write chapter %d %q: %w", chapter.Number, chapter.Title, err)
	}

	w.logger.Debug("chapter written", "textbook_id", textbookID, "id", stored.Id, "number", stored.Number)
	return stored.Id, nil
}

// Purge deletes every chapter of textbookID together with their chunks.
func (w *ChapterWriter) Purge(ctx context.Context, textbookID core.ID) (int, error) {
	n, err := w.repo.DeleteChapters(ctx, textbookID)
	if err != nil {
		return 0, fmt.Errorf("purge chapters of textbook %d: %w", textbookID, err)
	}
	if n > 0 {
		w.logger.Debug("chapters purged", "textbook_id", textbookID, "count", n)
	}
	return n, nil
}
