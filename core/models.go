package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Chunk IDs are derived from content and position so that re-chunking the
// same document with the same configuration is idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// ChunkID derives the ID of a chunk from its owning document, its position
// within that document, and its content.
func ChunkID(docID string, index int, content string) ID {
	return IDFromContent(fmt.Sprintf("%s\x00%d\x00%s", docID, index, content))
}

// String renders the ID as a fixed-width hex string.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ContentType classifies what kind of memory a chunk carries.
type ContentType int

const (
	ContentTypeEpisodic ContentType = iota + 1
	ContentTypeSemantic
	ContentTypePreference
	ContentTypeProcedural
	ContentTypeWorking
	ContentTypeDocument
)

var contentTypeNames = map[ContentType]string{
	ContentTypeEpisodic:   "episodic",
	ContentTypeSemantic:   "semantic",
	ContentTypePreference: "preference",
	ContentTypeProcedural: "procedural",
	ContentTypeWorking:    "working",
	ContentTypeDocument:   "document",
}

func (t ContentType) String() string { return contentTypeNames[t] }

// ParseContentType parses a content type name.
// Returns ErrInvalidContentType for unrecognized names.
func ParseContentType(name string) (ContentType, error) {
	for t, n := range contentTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidContentType, name)
}

// MemoryLevel places a chunk in the memory hierarchy.
type MemoryLevel int

const (
	MemoryLevelAtomic MemoryLevel = iota + 1
	MemoryLevelEpisodic
	MemoryLevelSemantic
	MemoryLevelStrategic
)

var memoryLevelNames = map[MemoryLevel]string{
	MemoryLevelAtomic:    "atomic",
	MemoryLevelEpisodic:  "episodic",
	MemoryLevelSemantic:  "semantic",
	MemoryLevelStrategic: "strategic",
}

func (l MemoryLevel) String() string { return memoryLevelNames[l] }

// BoundaryType records which kind of boundary produced a chunk.
type BoundaryType int

const (
	BoundaryNone BoundaryType = iota
	BoundaryEvent
	BoundarySemantic
	BoundaryStep
	BoundaryDecision
	BoundaryFixed
)

var boundaryTypeNames = map[BoundaryType]string{
	BoundaryNone:     "",
	BoundaryEvent:    "event",
	BoundarySemantic: "semantic",
	BoundaryStep:     "step",
	BoundaryDecision: "decision",
	BoundaryFixed:    "fixed",
}

func (b BoundaryType) String() string { return boundaryTypeNames[b] }

// DecayFunction tags how a chunk's relevance should decay over time.
// Decay itself is applied by consumers; only the tag is modeled here.
type DecayFunction int

const (
	DecayNone DecayFunction = iota
	DecayExponential
	DecayLinear
)

// RelationshipType is the kind of a directed edge between two chunks.
type RelationshipType int

const (
	RelationParent RelationshipType = iota + 1
	RelationChild
	RelationPrevious
	RelationNext
	RelationRelated
)

var relationshipTypeNames = map[RelationshipType]string{
	RelationParent:   "parent",
	RelationChild:    "child",
	RelationPrevious: "previous",
	RelationNext:     "next",
	RelationRelated:  "related",
}

func (t RelationshipType) String() string { return relationshipTypeNames[t] }

// Chunk is the atomic retrievable unit: bounded text plus its metadata.
// Embeddings live in the vector store, correlated by chunk ID; a chunk record
// never holds a live reference to another chunk, only IDs.
type Chunk struct {
	Id         ID
	DocID      string
	SourcePath string
	Index      int
	Content    string
	Metadata   ChunkMetadata
	Seq        uint64 // insertion order, assigned by the store
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// ChunkMetadata describes provenance, classification, and relations of a chunk.
type ChunkMetadata struct {
	ContentType   ContentType
	MemoryLevel   MemoryLevel
	Strategy      string
	SizeTokens    int
	OverlapTokens int
	BoundaryType  BoundaryType

	SourceTimestamp time.Time
	DecayFunction   DecayFunction

	ParentChunk   ID
	ChildChunks   []ID
	PreviousChunk ID
	NextChunk     ID
	RelatedChunks []ID

	Concepts      []string
	Entities      []string
	Confidence    float64
	ContextBefore string
	ContextAfter  string
	Summary       string
}

// Relationship is a directed, typed edge between two chunks.
// Strength is interpreted as edge weight: how strongly the target informs the
// source, in [0,1]. Zero means unweighted.
type Relationship struct {
	SourceChunkID ID
	TargetChunkID ID
	Type          RelationshipType
	Strength      float64
	CreatedAt     time.Time
}

// VectorRecord maps a chunk to its embedding under a specific model.
// Dimensions is fixed per (model, provider) pair and enforced at write time.
type VectorRecord struct {
	ChunkID    ID
	Vector     []float32
	Model      string
	Provider   string
	Dimensions int
	CreatedAt  time.Time
}

// SearchResult is a retrieved chunk with its relevance score.
type SearchResult struct {
	Chunk *Chunk
	Score float64
}

// SimilarityMatch is a vector store hit before chunk resolution.
type SimilarityMatch struct {
	ChunkID    ID
	Similarity float64
	Model      string
	Provider   string
}
