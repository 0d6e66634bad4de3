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


package core

import (
	"fmt"
	"strings"
)

// ValidateDocument checks a parsed document before any of it is written.
//
// Validation rules:
//   - FileName and Title must not be blank
//   - Grade, TotalPages and FileSizeMB must not be negative
//   - every chapter passes ValidateDocumentChapter
//
// NOT validated:
//   - chapter number uniqueness (repeated numbers are distinct chapters)
//   - chapters without chunks (valid, the chapter row is still created)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if strings.TrimSpace(doc.FileName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyFileName)
	}

	if strings.TrimSpace(doc.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	if doc.Grade < 0 || doc.TotalPages < 0 || doc.FileSizeMB < 0 {
		return fmt.Errorf("%w: grade, total pages and file size: %w", ErrInvalidDocument, ErrNegativeValue)
	}

	for i := range doc.Chapters {
		if err := ValidateDocumentChapter(&doc.Chapters[i]); err != nil {
			return fmt.Errorf("%w: chapter %d: %w", ErrInvalidDocument, i, err)
		}
	}

	return nil
}

// ValidateDocumentChapter checks one chapter descriptor and its chunks.
// A zero page means "unknown" and is not range-checked.
func ValidateDocumentChapter(ch *DocumentChapter) error {
	if strings.TrimSpace(ch.Title) == "" {
		return ErrEmptyTitle
	}

	if ch.Number < 0 || ch.StartPage < 0 || ch.EndPage < 0 {
		return fmt.Errorf("number and pages: %w", ErrNegativeValue)
	}

	if ch.StartPage > 0 && ch.EndPage > 0 && ch.EndPage < ch.StartPage {
		return fmt.Errorf("%w: %d-%d", ErrInvalidPageRange, ch.StartPage, ch.EndPage)
	}

	for j, chunk := range ch.Chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			return fmt.Errorf("chunk %d: %w", j, ErrEmptyContent)
		}
		if chunk.TokenCount < 0 || chunk.PageNumber < 0 {
			return fmt.Errorf("chunk %d: token count and page: %w", j, ErrNegativeValue)
		}
	}

	return nil
}

// ValidateTextbook validates a textbook record before it is written.
func ValidateTextbook(tb *Textbook) error {
	if tb == nil {
		return fmt.Errorf("%w: textbook is nil", ErrInvalidTextbook)
	}

	if strings.TrimSpace(tb.FileName) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTextbook, ErrEmptyFileName)
	}

	if strings.TrimSpace(tb.Title) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTextbook, ErrEmptyTitle)
	}

	if tb.Status != "" && !tb.Status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidTextbook, ErrInvalidStatus, tb.Status)
	}

	return nil
}
