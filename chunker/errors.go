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


package chunker

import "errors"

var (
	// ErrInvalidConfig indicates the chunker configuration failed validation.
	ErrInvalidConfig = errors.New("invalid chunker config")

	// ErrUnknownOption indicates an unrecognized configuration key.
	ErrUnknownOption = errors.New("unknown option")

	// ErrTokenizerRequired is returned when no tokenizer is provided.
	ErrTokenizerRequired = errors.New("tokenizer required")

	// ErrEmbedderRequired is returned when the semantic strategy has no embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrNoStrategy indicates no strategy is registered for a content type
	// and no fallback is available.
	ErrNoStrategy = errors.New("no strategy registered")
)
