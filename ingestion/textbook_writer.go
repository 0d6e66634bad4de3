package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// TextbookWriter upserts textbook roots keyed on file name.
// It is the only writer that sets a textbook's status.
type TextbookWriter struct {
	repo   storage.TextbookRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewTextbookWriter creates a TextbookWriter.
func NewTextbookWriter(repo storage.TextbookRepository, logger *slog.Logger) *TextbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextbookWriter{
		repo:   repo,
		now:    time.Now,
		logger: logger.With("writer", "textbook"),
	}
}

// Write inserts the document's textbook, or updates title, status and
// processed time of the existing row with the same file name. It returns the
// textbook's stable ID.
func (w *TextbookWriter) Write(ctx context.Context, doc *core.Document) (core.ID, error) {
	textbook := doc.Textbook()
	textbook.Status = core.StatusReady
	textbook.ProcessedAt = w.now().UTC()
	if err := core.ValidateTextbook(textbook); err != nil {
		return 0, err
	}

	stored, inserted, err := w.repo.UpsertTextbook(ctx, textbook)
	if err != nil {
		return 0, fmt.Errorf("upsert textbook %q: %w", textbook.FileName, err)
	}

	w.logger.Debug("textbook written", "file", stored.FileName, "id", stored.Id, "inserted", inserted)
	return stored.Id, nil
}
