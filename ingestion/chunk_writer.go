package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
	"github.com/poiesic/lectern/tokenizer"
)

// ChunkWriter inserts content chunks at caller-assigned positions.
type ChunkWriter struct {
	repo     storage.ChunkRepository
	estimate tokenizer.Estimator
}

// NewChunkWriter creates a ChunkWriter. A nil estimator selects
// tokenizer.Approximate.
func NewChunkWriter(repo storage.ChunkRepository, estimate tokenizer.Estimator) *ChunkWriter {
	if estimate == nil {
		estimate = tokenizer.Approximate
	}
	return &ChunkWriter{
		repo:     repo,
		estimate: estimate,
	}
}

// Write inserts chunk under chapterID at index. The index is stored as given.
// A zero token count is filled in by the estimator and an empty content type
// defaults to core.DefaultContentType.
func (w *ChunkWriter) Write(ctx context.Context, chapterID core.ID, index int, chunk core.DocumentChunk) (core.ID, error) {
	contentType := chunk.ContentType
	if contentType == "" {
		contentType = core.DefaultContentType
	}
	tokens := chunk.TokenCount
	if tokens == 0 {
		tokens = w.estimate(chunk.Content)
	}

	stored, err := w.repo.AddChunk(ctx, &core.ContentChunk{
		ChapterId:   chapterID,
		ChunkIndex:  index,
		Content:     chunk.Content,
		ContentType: contentType,
		TokenCount:  tokens,
		PageNumber:  chunk.PageNumber,
		ContentHash: core.ContentHash(chunk.Content),
	})
	if err != nil {
		return 0, fmt.Errorf("write chunk %d of chapter %d: %w", index, chapterID, err)
	}
	return stored.Id, nil
}
