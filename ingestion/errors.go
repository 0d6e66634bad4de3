package ingestion

import "errors"

var (
	// ErrTextbookRepositoryRequired is returned when a textbook repository is not provided.
	ErrTextbookRepositoryRequired = errors.New("textbook repository required")

	// ErrChapterRepositoryRequired is returned when a chapter repository is not provided.
	ErrChapterRepositoryRequired = errors.New("chapter repository required")

	// ErrChunkRepositoryRequired is returned when a chunk repository is not provided.
	ErrChunkRepositoryRequired = errors.New("chunk repository required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
