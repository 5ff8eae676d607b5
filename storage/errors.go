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
	// Not-found is a normal outcome, distinct from storage failure.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey indicates an insert that would overwrite an existing
	// record. Chunk IDs are never silently replaced.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrDanglingReference indicates a relationship naming a chunk that
	// does not exist at write time.
	ErrDanglingReference = errors.New("referenced chunk does not exist")

	// ErrTransactionFailed indicates that a transaction failed.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrDimensionMismatch indicates a vector whose length disagrees with
	// the dimension already registered for its (model, provider) pair.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
