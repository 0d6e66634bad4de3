package badger

import (
	"errors"
)

// Store bundles the BadgerDB repositories sharing one backend.
type Store struct {
	Backend   *Backend
	Textbooks *TextbookRepository
	Chapters  *ChapterRepository
	Chunks    *ChunkRepository
	Stats     *StatsRepository
	Runs      *RunRepository
}

// Open opens a BadgerDB store at path, or an in-memory one when inMemory is set.
func Open(path string, inMemory bool, opts ...BackendOption) (*Store, error) {
	backend, err := OpenBackend(path, inMemory, opts...)
	if err != nil {
		return nil, err
	}

	s := &Store{
		Backend: backend,
		Stats:   NewStatsRepository(backend),
		Runs:    NewRunRepository(backend),
	}
	if s.Textbooks, err = NewTextbookRepository(backend); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if s.Chapters, err = NewChapterRepository(backend); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	if s.Chunks, err = NewChunkRepository(backend); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}

// Close releases the ID sequences and closes the backend.
func (s *Store) Close() error {
	var errs []error
	if s.Chunks != nil {
		errs = append(errs, s.Chunks.Close())
	}
	if s.Chapters != nil {
		errs = append(errs, s.Chapters.Close())
	}
	if s.Textbooks != nil {
		errs = append(errs, s.Textbooks.Close())
	}
	errs = append(errs, s.Backend.Close())
	return errors.Join(errs...)
}
