package badger

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/poiesic/weave/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix  = "chkrec"
	chunkDocPrefix     = "chkdoc"
	chunkTextPrefix    = "chktxt"
	chunkSeqName       = "chkseq"
	relationPrefix     = "relrec"
	relationRevPrefix  = "relrev"
	vectorRecordPrefix = "vecrec"
	vectorDimPrefix    = "vecdim"
)

// keyEscaper protects the ':' separator inside caller-supplied key parts
// (doc IDs, terms, model names). Without it a doc ID like "a:b" would fall
// under the scan prefix of doc "a".
var keyEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

func escapeKeyPart(s string) string {
	if !strings.ContainsAny(s, `\:`) {
		return s
	}
	return keyEscaper.Replace(s)
}

// makeChunkKey generates a key for a chunk record by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}

// makeDocIndexKey generates a composite key for the document position index.
// Format: prefix:docID:index, with the index in BigEndian so lexicographic
// iteration yields document order.
func makeDocIndexKey(docID string, index int) []byte {
	prefix := []byte(chunkDocPrefix + ":" + escapeKeyPart(docID) + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(index))
	return buf
}

// makeDocIndexPrefix generates the scan prefix for a document's index entries.
func makeDocIndexPrefix(docID string) []byte {
	return []byte(chunkDocPrefix + ":" + escapeKeyPart(docID) + ":")
}

// makeTextIndexKey generates a composite key for an inverted index posting.
// Format: prefix:term:chunkID
func makeTextIndexKey(term string, id core.ID) []byte {
	prefix := []byte(chunkTextPrefix + ":" + escapeKeyPart(term) + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeTextIndexPrefix generates the scan prefix for a term's postings.
func makeTextIndexPrefix(term string) []byte {
	return []byte(chunkTextPrefix + ":" + escapeKeyPart(term) + ":")
}

// makeRelationKey generates a composite key for a directed edge.
// Format: prefix:source:type:target
func makeRelationKey(source core.ID, relType core.RelationshipType, target core.ID) []byte {
	prefix := []byte(relationPrefix + ":")
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(source))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(relType))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(target))
	return buf
}

// makeRelationSourcePrefix generates the scan prefix for a source's edges.
func makeRelationSourcePrefix(source core.ID) []byte {
	prefix := []byte(relationPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(source))
	return buf
}

// makeRelationRevKey generates the reverse index entry for an edge.
// Format: prefix:target:source:type, used to find inbound edges on delete.
func makeRelationRevKey(source core.ID, relType core.RelationshipType, target core.ID) []byte {
	prefix := []byte(relationRevPrefix + ":")
	buf := make([]byte, len(prefix)+24)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(target))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(source))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(relType))
	return buf
}

// makeRelationRevPrefix generates the scan prefix for a target's inbound edges.
func makeRelationRevPrefix(target core.ID) []byte {
	prefix := []byte(relationRevPrefix + ":")
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(target))
	return buf
}

// parseRelationRevKey extracts (source, type) from a reverse index key.
func parseRelationRevKey(key []byte) (source core.ID, relType core.RelationshipType, ok bool) {
	prefixLen := len(relationRevPrefix) + 1
	if len(key) != prefixLen+24 {
		return 0, 0, false
	}
	source = core.ID(binary.BigEndian.Uint64(key[prefixLen+8:]))
	relType = core.RelationshipType(binary.BigEndian.Uint64(key[prefixLen+16:]))
	return source, relType, true
}

// makeVectorKey generates a key for a vector record by chunk ID.
func makeVectorKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", vectorRecordPrefix, id))
}

// makeVectorDimKey generates the dimension registry key for a model pair.
func makeVectorDimKey(model, provider string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorDimPrefix, escapeKeyPart(model), escapeKeyPart(provider)))
}
