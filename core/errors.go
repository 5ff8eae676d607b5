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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidRelationship indicates a Relationship failed validation.
	ErrInvalidRelationship = errors.New("invalid relationship")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyDocID indicates the DocID field is empty.
	ErrEmptyDocID = errors.New("doc id cannot be empty")

	// ErrInvalidContentType indicates an unrecognized ContentType value.
	ErrInvalidContentType = errors.New("invalid content type")

	// ErrInvalidRelationshipType indicates an unrecognized RelationshipType value.
	ErrInvalidRelationshipType = errors.New("invalid relationship type")

	// ErrSelfReference indicates a relationship whose source and target are the same chunk.
	ErrSelfReference = errors.New("chunk cannot relate to itself")

	// ErrInvalidStrength indicates a relationship strength outside [0,1].
	ErrInvalidStrength = errors.New("strength must be in [0,1]")

	// ErrInvalidConfidence indicates a confidence value outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be in [0,1]")
)
