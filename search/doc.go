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


// Package search provides hybrid keyword and semantic retrieval.
//
// The Engine type runs the two sub-searches concurrently and fuses them:
//   - Keyword search over the inverted text index (TF-IDF, min-max
//     normalized per query)
//   - Semantic search over the embedding store (cosine similarity)
//
// Scores merge by chunk ID as a weighted sum, ranked descending with
// insertion-order tie-breaking so identical queries return identical
// orderings. When the semantic side is unavailable the engine degrades
// to keyword-only scoring instead of failing the query.
package search
