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


// Package vector implements the embedding store: durable per-chunk
// vectors, pluggable similarity search backends, and a bounded result
// cache invalidated synchronously on every write.
//
// The shipped backend is an exact cosine scan; approximate or re-ranking
// backends plug in behind the same Backend interface. When no backend is
// configured, searches fail with ErrSemanticUnavailable so callers can
// fall back to keyword retrieval instead of mistaking the condition for
// an empty result.
package vector
