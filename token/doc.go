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


// Package token provides token counting and length-bounded text splitting.
//
// Chunking strategies use a Tokenizer to enforce size budgets. Two
// implementations are provided:
//
//   - Heuristic: a deterministic characters-per-token estimate, the default.
//   - Tiktoken: exact BPE counts via tiktoken encodings.
//
// Both satisfy the Tokenizer interface, so the choice is configuration, not
// a caller contract change. Split never cuts a sentence in half: a sentence
// larger than the budget is emitted as its own oversized segment rather than
// silently truncated.
package token
