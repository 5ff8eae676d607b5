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


// Package chunker splits documents into bounded, retrievable chunks.
//
// A Chunker holds a table of boundary Strategy implementations keyed by
// content type; the fixed strategy backstops any type without a dedicated
// one. Strategies only decide where regions begin. The chunker then enforces
// the token budget with the Tokenizer, merges regions that fall under
// minChunkSize, applies inter-chunk overlap, derives deterministic chunk IDs
// from content and position, and links sequence and hierarchy metadata.
//
// Configuration is validated before any chunking happens: invalid values and
// unrecognized option keys fail fast with field-level errors instead of
// best-effort defaults.
//
// For identical (document, config) inputs a chunking run is fully
// reproducible, which makes re-chunking idempotent.
package chunker
