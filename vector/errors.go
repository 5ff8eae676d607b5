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


package vector

import (
	"errors"

	"github.com/poiesic/weave/storage"
)

var (
	// ErrSemanticUnavailable indicates that no similarity backend is
	// configured or reachable. Callers should treat this as a capability
	// signal and fall back to keyword search, not as an empty result.
	ErrSemanticUnavailable = errors.New("semantic search unavailable")

	// ErrDimensionMismatch mirrors the storage-level sentinel so callers
	// of the store don't need to import the storage package to match it.
	ErrDimensionMismatch = storage.ErrDimensionMismatch

	// ErrEmptyVector indicates an upsert or query with a zero-length vector.
	ErrEmptyVector = errors.New("vector must not be empty")
)
