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


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - DocID must not be empty
//   - ContentType, if set, must be a recognized value
//   - Confidence must be in [0,1]
//   - A chunk must not list itself as previous, next, or parent
//
// NOT validated (populated by the store):
//   - Seq, InsertedAt, UpdatedAt
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.DocID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyDocID)
	}

	if chunk.Metadata.ContentType != 0 {
		if _, ok := contentTypeNames[chunk.Metadata.ContentType]; !ok {
			return fmt.Errorf("%w: %w: value %d", ErrInvalidChunk, ErrInvalidContentType, chunk.Metadata.ContentType)
		}
	}

	if chunk.Metadata.Confidence < 0 || chunk.Metadata.Confidence > 1 {
		return fmt.Errorf("%w: %w: value %f", ErrInvalidChunk, ErrInvalidConfidence, chunk.Metadata.Confidence)
	}

	if chunk.Id != 0 {
		md := chunk.Metadata
		if md.PreviousChunk == chunk.Id || md.NextChunk == chunk.Id || md.ParentChunk == chunk.Id {
			return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrSelfReference)
		}
	}

	return nil
}

// ValidateRelationship validates a Relationship according to domain rules.
//
// Validation rules:
//   - Source and target must be set and distinct
//   - Type must be a recognized value
//   - Strength must be in [0,1]
func ValidateRelationship(rel *Relationship) error {
	if rel == nil {
		return fmt.Errorf("%w: relationship is nil", ErrInvalidRelationship)
	}

	if rel.SourceChunkID == 0 || rel.TargetChunkID == 0 {
		return fmt.Errorf("%w: source and target required", ErrInvalidRelationship)
	}

	if rel.SourceChunkID == rel.TargetChunkID {
		return fmt.Errorf("%w: %w", ErrInvalidRelationship, ErrSelfReference)
	}

	if _, ok := relationshipTypeNames[rel.Type]; !ok {
		return fmt.Errorf("%w: %w: value %d", ErrInvalidRelationship, ErrInvalidRelationshipType, rel.Type)
	}

	if rel.Strength < 0 || rel.Strength > 1 {
		return fmt.Errorf("%w: %w: value %f", ErrInvalidRelationship, ErrInvalidStrength, rel.Strength)
	}

	return nil
}
