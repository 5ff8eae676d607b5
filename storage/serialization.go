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


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/weave/core"
)

// Records are encoded with MUS primitives, field by field in declaration
// order. Times are Unix microseconds (zero time encodes as 0); floats are
// bit-cast to integers; slices are a varint length followed by elements.

// writer appends MUS-encoded values to a pre-sized buffer.
type writer struct {
	bs []byte
	n  int
}

func (w *writer) uint64(v uint64)  { w.n += varint.Uint64.Marshal(v, w.bs[w.n:]) }
func (w *writer) int(v int)        { w.n += varint.Int.Marshal(v, w.bs[w.n:]) }
func (w *writer) int64(v int64)    { w.n += varint.Int64.Marshal(v, w.bs[w.n:]) }
func (w *writer) string(v string)  { w.n += ord.String.Marshal(v, w.bs[w.n:]) }
func (w *writer) id(v core.ID)     { w.uint64(uint64(v)) }
func (w *writer) float64(v float64) { w.uint64(math.Float64bits(v)) }
func (w *writer) float32(v float32) { w.uint64(uint64(math.Float32bits(v))) }

func (w *writer) time(v time.Time) {
	if v.IsZero() {
		w.int64(0)
		return
	}
	w.int64(v.UnixMicro())
}

func (w *writer) ids(v []core.ID) {
	w.int(len(v))
	for _, id := range v {
		w.id(id)
	}
}

func (w *writer) strings(v []string) {
	w.int(len(v))
	for _, s := range v {
		w.string(s)
	}
}

func (w *writer) vector(v []float32) {
	w.int(len(v))
	for _, f := range v {
		w.float32(f)
	}
}

// reader decodes MUS-encoded values, latching the first error.
type reader struct {
	bs  []byte
	n   int
	err error
}

func (r *reader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) int() int {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) int64() int64 {
	if r.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) string() string {
	if r.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	r.err = err
	return v
}

func (r *reader) id() core.ID { return core.ID(r.uint64()) }

func (r *reader) float64() float64 { return math.Float64frombits(r.uint64()) }

func (r *reader) float32() float32 { return math.Float32frombits(uint32(r.uint64())) }

func (r *reader) time() time.Time {
	v := r.int64()
	if r.err != nil || v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (r *reader) ids() []core.ID {
	n := r.int()
	if r.err != nil || n <= 0 {
		return nil
	}
	out := make([]core.ID, n)
	for i := range out {
		out[i] = r.id()
	}
	return out
}

func (r *reader) strings() []string {
	n := r.int()
	if r.err != nil || n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = r.string()
	}
	return out
}

func (r *reader) vector() []float32 {
	n := r.int()
	if r.err != nil || n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = r.float32()
	}
	return out
}

// sizer accumulates the encoded size of a record before allocation.
type sizer struct {
	n int
}

func (s *sizer) uint64(v uint64)  { s.n += varint.Uint64.Size(v) }
func (s *sizer) int(v int)        { s.n += varint.Int.Size(v) }
func (s *sizer) int64(v int64)    { s.n += varint.Int64.Size(v) }
func (s *sizer) string(v string)  { s.n += ord.String.Size(v) }
func (s *sizer) id(v core.ID)     { s.uint64(uint64(v)) }
func (s *sizer) float64(v float64) { s.uint64(math.Float64bits(v)) }
func (s *sizer) float32(v float32) { s.uint64(uint64(math.Float32bits(v))) }

func (s *sizer) time(v time.Time) {
	if v.IsZero() {
		s.int64(0)
		return
	}
	s.int64(v.UnixMicro())
}

func (s *sizer) ids(v []core.ID) {
	s.int(len(v))
	for _, id := range v {
		s.id(id)
	}
}

func (s *sizer) strings(v []string) {
	s.int(len(v))
	for _, str := range v {
		s.string(str)
	}
}

func (s *sizer) vector(v []float32) {
	s.int(len(v))
	for _, f := range v {
		s.float32(f)
	}
}

// chunkFields walks a chunk's fields in encoding order against any codec.
type chunkCodec interface {
	uint64(uint64)
	int(int)
	string(string)
	id(core.ID)
	float64(float64)
	time(time.Time)
	ids([]core.ID)
	strings([]string)
}

func writeChunk(c *core.Chunk, codec chunkCodec) {
	codec.id(c.Id)
	codec.string(c.DocID)
	codec.string(c.SourcePath)
	codec.int(c.Index)
	codec.string(c.Content)
	codec.uint64(c.Seq)
	codec.time(c.InsertedAt)
	codec.time(c.UpdatedAt)

	md := &c.Metadata
	codec.int(int(md.ContentType))
	codec.int(int(md.MemoryLevel))
	codec.string(md.Strategy)
	codec.int(md.SizeTokens)
	codec.int(md.OverlapTokens)
	codec.int(int(md.BoundaryType))
	codec.time(md.SourceTimestamp)
	codec.int(int(md.DecayFunction))
	codec.id(md.ParentChunk)
	codec.ids(md.ChildChunks)
	codec.id(md.PreviousChunk)
	codec.id(md.NextChunk)
	codec.ids(md.RelatedChunks)
	codec.strings(md.Concepts)
	codec.strings(md.Entities)
	codec.float64(md.Confidence)
	codec.string(md.ContextBefore)
	codec.string(md.ContextAfter)
	codec.string(md.Summary)
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(c *core.Chunk) []byte {
	s := &sizer{}
	writeChunk(c, s)
	w := &writer{bs: make([]byte, s.n)}
	writeChunk(c, w)
	return w.bs
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	r := &reader{bs: data}
	c := &core.Chunk{}
	c.Id = r.id()
	c.DocID = r.string()
	c.SourcePath = r.string()
	c.Index = r.int()
	c.Content = r.string()
	c.Seq = r.uint64()
	c.InsertedAt = r.time()
	c.UpdatedAt = r.time()

	md := &c.Metadata
	md.ContentType = core.ContentType(r.int())
	md.MemoryLevel = core.MemoryLevel(r.int())
	md.Strategy = r.string()
	md.SizeTokens = r.int()
	md.OverlapTokens = r.int()
	md.BoundaryType = core.BoundaryType(r.int())
	md.SourceTimestamp = r.time()
	md.DecayFunction = core.DecayFunction(r.int())
	md.ParentChunk = r.id()
	md.ChildChunks = r.ids()
	md.PreviousChunk = r.id()
	md.NextChunk = r.id()
	md.RelatedChunks = r.ids()
	md.Concepts = r.strings()
	md.Entities = r.strings()
	md.Confidence = r.float64()
	md.ContextBefore = r.string()
	md.ContextAfter = r.string()
	md.Summary = r.string()

	if r.err != nil {
		return nil, fmt.Errorf("%w: chunk: %w", ErrSerializationFailed, r.err)
	}
	return c, nil
}

// MarshalRelationship serializes a Relationship to bytes.
func MarshalRelationship(rel *core.Relationship) []byte {
	s := &sizer{}
	s.id(rel.SourceChunkID)
	s.id(rel.TargetChunkID)
	s.int(int(rel.Type))
	s.float64(rel.Strength)
	s.time(rel.CreatedAt)

	w := &writer{bs: make([]byte, s.n)}
	w.id(rel.SourceChunkID)
	w.id(rel.TargetChunkID)
	w.int(int(rel.Type))
	w.float64(rel.Strength)
	w.time(rel.CreatedAt)
	return w.bs
}

// UnmarshalRelationship deserializes a Relationship from bytes.
func UnmarshalRelationship(data []byte) (*core.Relationship, error) {
	r := &reader{bs: data}
	rel := &core.Relationship{}
	rel.SourceChunkID = r.id()
	rel.TargetChunkID = r.id()
	rel.Type = core.RelationshipType(r.int())
	rel.Strength = r.float64()
	rel.CreatedAt = r.time()
	if r.err != nil {
		return nil, fmt.Errorf("%w: relationship: %w", ErrSerializationFailed, r.err)
	}
	return rel, nil
}

// MarshalVectorRecord serializes a VectorRecord to bytes.
func MarshalVectorRecord(rec *core.VectorRecord) []byte {
	s := &sizer{}
	s.id(rec.ChunkID)
	s.vector(rec.Vector)
	s.string(rec.Model)
	s.string(rec.Provider)
	s.int(rec.Dimensions)
	s.time(rec.CreatedAt)

	w := &writer{bs: make([]byte, s.n)}
	w.id(rec.ChunkID)
	w.vector(rec.Vector)
	w.string(rec.Model)
	w.string(rec.Provider)
	w.int(rec.Dimensions)
	w.time(rec.CreatedAt)
	return w.bs
}

// UnmarshalVectorRecord deserializes a VectorRecord from bytes.
func UnmarshalVectorRecord(data []byte) (*core.VectorRecord, error) {
	r := &reader{bs: data}
	rec := &core.VectorRecord{}
	rec.ChunkID = r.id()
	rec.Vector = r.vector()
	rec.Model = r.string()
	rec.Provider = r.string()
	rec.Dimensions = r.int()
	rec.CreatedAt = r.time()
	if r.err != nil {
		return nil, fmt.Errorf("%w: vector record: %w", ErrSerializationFailed, r.err)
	}
	return rec, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	v, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %w", ErrSerializationFailed, err)
	}
	return core.ID(v), nil
}

// MarshalInt serializes an int to bytes (used for index posting values).
func MarshalInt(v int) []byte {
	buf := make([]byte, varint.Int.Size(v))
	varint.Int.Marshal(v, buf)
	return buf
}

// UnmarshalInt deserializes an int from bytes.
func UnmarshalInt(data []byte) (int, error) {
	v, _, err := varint.Int.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: int: %w", ErrSerializationFailed, err)
	}
	return v, nil
}
