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
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored entities.
// It is generated by the storage backend (database sequences).
type ID int64

// ContentHash returns a deterministic 64-bit BLAKE2b digest of text, hex encoded.
// Identical content always produces the identical hash.
func ContentHash(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// TextbookStatus is the processing state of a textbook row.
type TextbookStatus string

const (
	StatusPending TextbookStatus = "pending"
	StatusReady   TextbookStatus = "ready"
	StatusFailed  TextbookStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s TextbookStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Textbook is the root record for one source document.
// FileName is the natural key: re-ingesting a file updates the existing row.
type Textbook struct {
	Id          ID
	FileName    string
	Title       string
	Grade       int
	Subject     string
	TotalPages  int
	FileSizeMB  float64
	Status      TextbookStatus
	ProcessedAt time.Time
}

// Chapter is one logical section of a textbook.
// Number is neither contiguous nor unique within a textbook.
type Chapter struct {
	Id         ID
	TextbookId ID
	Number     int
	Title      string
	Topics     []string
	StartPage  int
	EndPage    int
	CreatedAt  time.Time
}

// ContentChunk is one span of extracted text owned by a chapter.
// ChunkIndex is zero-based and unique within the chapter.
type ContentChunk struct {
	Id          ID
	ChapterId   ID
	ChunkIndex  int
	Content     string
	ContentType string
	TokenCount  int
	PageNumber  int
	ContentHash string
	CreatedAt   time.Time
}

// DefaultContentType is used for chunks whose parser did not tag them.
const DefaultContentType = "text"

// Document is a parsed textbook as handed over by the parsing stage.
// Chapters and their chunks are in source order.
type Document struct {
	FileName   string            `yaml:"file_name" json:"file_name"`
	Title      string            `yaml:"title" json:"title"`
	Grade      int               `yaml:"grade" json:"grade"`
	Subject    string            `yaml:"subject" json:"subject"`
	TotalPages int               `yaml:"total_pages" json:"total_pages"`
	FileSizeMB float64           `yaml:"file_size_mb" json:"file_size_mb"`
	Chapters   []DocumentChapter `yaml:"chapters" json:"chapters"`
}

// DocumentChapter is a chapter descriptor inside a Document.
type DocumentChapter struct {
	Number    int             `yaml:"number" json:"number"`
	Title     string          `yaml:"title" json:"title"`
	Topics    []string        `yaml:"topics" json:"topics"`
	StartPage int             `yaml:"start_page" json:"start_page"`
	EndPage   int             `yaml:"end_page" json:"end_page"`
	Chunks    []DocumentChunk `yaml:"chunks" json:"chunks"`
}

// DocumentChunk is a text span descriptor inside a DocumentChapter.
// A zero TokenCount means "not provided"; the chunk writer estimates it.
type DocumentChunk struct {
	Content     string `yaml:"content" json:"content"`
	ContentType string `yaml:"content_type" json:"content_type"`
	TokenCount  int    `yaml:"token_count" json:"token_count"`
	PageNumber  int    `yaml:"page_number" json:"page_number"`
}

// Textbook returns the textbook record described by the document.
func (d *Document) Textbook() *Textbook {
	return &Textbook{
		FileName:   d.FileName,
		Title:      d.Title,
		Grade:      d.Grade,
		Subject:    d.Subject,
		TotalPages: d.TotalPages,
		FileSizeMB: d.FileSizeMB,
	}
}

// ChunkCount returns the number of chunks across all chapters.
func (d *Document) ChunkCount() int {
	n := 0
	for _, ch := range d.Chapters {
		n += len(ch.Chunks)
	}
	return n
}

// ReloadMode controls what happens to a textbook's existing chapters when the
// same file is ingested again.
type ReloadMode string

const (
	// ReloadAppend inserts new chapter and chunk rows next to the existing ones.
	ReloadAppend ReloadMode = "append"
	// ReloadReplace deletes the textbook's chapters (and their chunks) before
	// inserting, inside the document's transaction.
	ReloadReplace ReloadMode = "replace"
)

// ParseReloadMode converts a string to a ReloadMode.
func ParseReloadMode(s string) (ReloadMode, error) {
	switch ReloadMode(s) {
	case ReloadAppend, ReloadReplace:
		return ReloadMode(s), nil
	case "":
		return ReloadAppend, nil
	}
	return "", ErrInvalidReloadMode
}

// Counts is an aggregate of stored rows per entity type.
type Counts struct {
	Textbooks int
	Chapters  int
	Chunks    int
}
