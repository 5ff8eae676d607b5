package vector

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/weave/core"
)

const (
	// DefaultCacheSize bounds the number of cached query results.
	DefaultCacheSize = 128

	// querySignatureScale quantizes query vector components before hashing,
	// so near-identical query embeddings share a cache entry.
	querySignatureScale = 1000
)

// resultCache is a bounded cache of similarity search results keyed by a
// quantized query signature. It is the only shared mutable state in the
// store; every write to the underlying vectors must invalidate it before
// the write returns.
type resultCache struct {
	mu      sync.Mutex
	entries map[uint64][]*core.SimilarityMatch
	order   []uint64
	maxSize int

	// gen advances on every invalidation. A query captures it before
	// hitting the backend; put refuses entries computed under an older
	// generation, so an in-flight query cannot resurrect pre-write
	// results after the write's invalidation.
	gen uint64

	hits   int64
	misses int64
}

func newResultCache(maxSize int) *resultCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &resultCache{
		entries: make(map[uint64][]*core.SimilarityMatch),
		maxSize: maxSize,
	}
}

// querySignature hashes the quantized query vector together with the
// search parameters.
func querySignature(query []float32, limit int, minSimilarity float64) uint64 {
	h, _ := blake2b.New(8, nil)
	buf := make([]byte, 8)
	for _, v := range query {
		q := int64(math.Round(float64(v) * querySignatureScale))
		binary.LittleEndian.PutUint64(buf, uint64(q))
		h.Write(buf)
	}
	binary.LittleEndian.PutUint64(buf, uint64(limit))
	h.Write(buf)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(minSimilarity))
	h.Write(buf)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

func (c *resultCache) get(sig uint64) ([]*core.SimilarityMatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	matches, ok := c.entries[sig]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return matches, ok
}

// generation returns the current invalidation generation.
func (c *resultCache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// put stores matches computed under the given generation. Stale entries
// (an invalidation ran since the caller read the generation) are dropped.
func (c *resultCache) put(sig uint64, matches []*core.SimilarityMatch, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if _, exists := c.entries[sig]; !exists {
		// Evict oldest entries once full.
		for len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, sig)
	}
	c.entries[sig] = matches
}

// invalidate drops every cached result. Called synchronously from every
// mutation so queries never observe pre-write results after the write
// completes.
func (c *resultCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64][]*core.SimilarityMatch)
	c.order = c.order[:0]
	c.gen++
}

// hitRate returns hits/(hits+misses), 0 before any lookup.
func (c *resultCache) hitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}
