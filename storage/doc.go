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


// Package storage provides the storage abstraction layer for lectern.
//
// This package defines repository interfaces that decouple the ingestion logic
// from the store that holds the textbook → chapter → content chunk hierarchy.
// Two backends implement it:
//
//   - storage/postgres: the relational store (PostgreSQL via pgx)
//   - storage/badger: an embedded store (BadgerDB) enforcing the same rules in code
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - Repository: transaction support and lifecycle shared by all repositories
//   - TextbookRepository: upsert and lookup of textbook roots
//   - ChapterRepository: chapter inserts, listing and cascade delete
//   - ChunkRepository: content chunk inserts and listing
//   - StatsRepository: read-only aggregate counts
//   - RunRepository: persisted batch reports
//
// # Integrity rules
//
// Every backend must enforce, independently of its callers:
//
//   - textbook file names are unique (ErrDuplicateKey on a plain insert conflict)
//   - chapters reference an existing textbook, chunks an existing chapter (ErrForeignKey)
//   - a chunk index is unique within its chapter (ErrDuplicateKey)
//   - deleting chapters deletes their chunks
//
// # Transactions
//
// WithTransaction runs fn inside one transaction. Repository calls made with
// the context passed to fn join that transaction, across all repositories of
// the same backend. If fn returns an error nothing fn wrote is kept. Nested
// calls join the outer transaction. Conflicts detected at commit are reported
// as ErrTransactionFailed and may be retried by the caller.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
