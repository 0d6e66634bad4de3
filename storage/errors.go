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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates a duplicate key violation.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrForeignKey indicates a reference to a parent row that does not exist.
	ErrForeignKey = errors.New("foreign key violation")

	// ErrConstraint indicates a NOT NULL or CHECK style constraint violation.
	ErrConstraint = errors.New("constraint violation")

	// ErrTransactionFailed indicates that a transaction failed to commit
	// because of a conflict with a concurrent transaction. Safe to retry.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrTransactionTooLarge indicates that a transaction exceeded the size the
	// backend accepts in one commit. Retrying does not help.
	ErrTransactionTooLarge = errors.New("transaction too large")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
