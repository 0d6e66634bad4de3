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

import "time"

// DocumentState is a step of the per-document ingestion state machine:
// Start -> TextbookWritten -> ChaptersWritten -> ChunksWritten -> Done,
// with Failed reachable from any step.
type DocumentState int

const (
	// DocumentSkipped marks a document that was never attempted (batch interrupted).
	DocumentSkipped DocumentState = iota
	DocumentStart
	DocumentTextbookWritten
	DocumentChaptersWritten
	DocumentChunksWritten
	DocumentDone
	DocumentFailed
)

var documentStateNames = map[DocumentState]string{
	DocumentSkipped:         "skipped",
	DocumentStart:           "start",
	DocumentTextbookWritten: "textbook_written",
	DocumentChaptersWritten: "chapters_written",
	DocumentChunksWritten:   "chunks_written",
	DocumentDone:            "done",
	DocumentFailed:          "failed",
}

func (s DocumentState) String() string {
	if name, ok := documentStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseDocumentState converts a state name back to a DocumentState.
func ParseDocumentState(name string) (DocumentState, error) {
	for state, n := range documentStateNames {
		if n == name {
			return state, nil
		}
	}
	return DocumentSkipped, ErrInvalidDocumentState
}

// DocumentOutcome records what happened to one document of a batch.
// For failed documents FailedAt is the last state reached before the failure;
// the document's writes were rolled back, so the counts are zero.
// CommittedAt is set only for committed documents.
type DocumentOutcome struct {
	FileName    string
	State       DocumentState
	FailedAt    DocumentState
	Error       string
	TextbookId  ID
	Chapters    int
	Chunks      int
	CommittedAt time.Time
}

// Succeeded reports whether the document was committed.
func (o DocumentOutcome) Succeeded() bool {
	return o.State == DocumentDone
}

// IngestionRun is the report of one batch: one outcome per input document, in
// input order.
type IngestionRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []DocumentOutcome
}

// Succeeded returns the number of committed documents.
func (r *IngestionRun) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed documents.
func (r *IngestionRun) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == DocumentFailed {
			n++
		}
	}
	return n
}

// Skipped returns the number of documents that were never attempted.
func (r *IngestionRun) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.State == DocumentSkipped {
			n++
		}
	}
	return n
}

// FailedFileNames returns the file names of failed and skipped documents, in
// input order and without duplicates. These are the documents an operator
// re-runs.
func (r *IngestionRun) FailedFileNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, o := range r.Outcomes {
		if o.Succeeded() || seen[o.FileName] {
			continue
		}
		seen[o.FileName] = true
		names = append(names, o.FileName)
	}
	return names
}
