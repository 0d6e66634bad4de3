// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

// TextbookRepository implements storage.TextbookRepository for BadgerDB.
type TextbookRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.TextbookRepository = (*TextbookRepository)(nil)

// NewTextbookRepository creates a new TextbookRepository.
func NewTextbookRepository(backend *Backend) (*TextbookRepository, error) {
	idSeq, err := backend.GetSequence(textbookIDSeq)
	if err != nil {
		return nil, err
	}

	return &TextbookRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *TextbookRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *TextbookRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertTextbook inserts textbook or updates the row sharing its FileName.
// On update only Title, Status and ProcessedAt change.
func (r *TextbookRepository) UpsertTextbook(ctx context.Context, textbook *core.Textbook) (*core.Textbook, bool, error) {
	if textbook == nil || strings.TrimSpace(textbook.FileName) == "" {
		return nil, false, storage.ErrConstraint
	}

	status := textbook.Status
	if status == "" {
		status = core.StatusPending
	}

	var (
		result   *core.Textbook
		inserted bool
	)
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		existing, err := r.lookupByFileName(tx, textbook.FileName)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		if existing != nil {
			oldDateKey := makeDateKey(textbookDatePrefix, existing.ProcessedAt, existing.Id)
			existing.Title = textbook.Title
			existing.Status = status
			existing.ProcessedAt = toMicros(textbook.ProcessedAt)
			if err := tx.Delete(oldDateKey); err != nil {
				return err
			}
			if err := r.write(tx, existing); err != nil {
				return err
			}
			result = existing
			return nil
		}

		id, err := nextID(r.idSeq)
		if err != nil {
			return err
		}
		record := *textbook
		record.Id = core.ID(id)
		record.Status = status
		record.ProcessedAt = toMicros(record.ProcessedAt)
		if err := tx.Set(makeTextbookFileNameKey(record.FileName), storage.MarshalID(record.Id)); err != nil {
			return err
		}
		if err := r.write(tx, &record); err != nil {
			return err
		}
		result = &record
		inserted = true
		return nil
	}, true)
	if err != nil {
		return nil, false, err
	}

	return result, inserted, nil
}

// GetTextbook retrieves a textbook by ID.
func (r *TextbookRepository) GetTextbook(ctx context.Context, id core.ID) (*core.Textbook, error) {
	var result *core.Textbook
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readValue(tx, makeTextbookKey(id), storage.UnmarshalTextbook)
		return err
	}, false)
	return result, err
}

// GetTextbookByFileName retrieves a textbook by its natural key.
func (r *TextbookRepository) GetTextbookByFileName(ctx context.Context, fileName string) (*core.Textbook, error) {
	var result *core.Textbook
	err := r.backend.withTx(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = r.lookupByFileName(tx, fileName)
		return err
	}, false)
	return result, err
}

func (r *TextbookRepository) lookupByFileName(tx *badger.Txn, fileName string) (*core.Textbook, error) {
	id, err := readValue(tx, makeTextbookFileNameKey(fileName), storage.UnmarshalID)
	if err != nil {
		return nil, err
	}
	return readValue(tx, makeTextbookKey(id), storage.UnmarshalTextbook)
}

// write stores the record and its processed date index entry.
func (r *TextbookRepository) write(tx *badger.Txn, textbook *core.Textbook) error {
	if err := tx.Set(makeTextbookKey(textbook.Id), storage.MarshalTextbook(textbook)); err != nil {
		return err
	}
	if textbook.ProcessedAt.IsZero() {
		return nil
	}
	return tx.Set(makeDateKey(textbookDatePrefix, textbook.ProcessedAt, textbook.Id), storage.MarshalID(textbook.Id))
}
