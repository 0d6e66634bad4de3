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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed pre-flight validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidTextbook indicates a Textbook failed validation.
	ErrInvalidTextbook = errors.New("invalid textbook")

	// ErrEmptyFileName indicates the FileName natural key is empty.
	ErrEmptyFileName = errors.New("file name cannot be empty")

	// ErrEmptyTitle indicates a required title is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrNegativeValue indicates a count, page or size field is negative.
	ErrNegativeValue = errors.New("value cannot be negative")

	// ErrInvalidPageRange indicates a chapter ends before it starts.
	ErrInvalidPageRange = errors.New("end page before start page")

	// ErrEmptyContent indicates a chunk has no content.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidStatus indicates an unknown TextbookStatus value.
	ErrInvalidStatus = errors.New("invalid textbook status")

	// ErrInvalidReloadMode indicates an unknown ReloadMode value.
	ErrInvalidReloadMode = errors.New("invalid reload mode")

	// ErrInvalidDocumentState indicates an unknown DocumentState name.
	ErrInvalidDocumentState = errors.New("invalid document state")
)
