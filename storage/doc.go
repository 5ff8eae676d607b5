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


// Package storage defines the persistence interfaces for chunks,
// relationships, and embedding vectors, along with the binary
// serialization used by the backing stores.
//
// Repositories follow a repository pattern: callers work with the
// interfaces declared here and the concrete implementation (see the
// badger subpackage) maintains every secondary index inside the same
// transaction as the primary record, so an interrupted write never
// leaves the text index or relationship graph referencing a chunk
// that does not exist.
package storage
