package search

import "github.com/poiesic/weave/core"

// Monitor provides hooks to observe the query process.
// Implement this interface to track intermediate steps and results during search.
type Monitor interface {
	Start(query string)
	AfterKeywordSearch(ids []core.ID)
	AfterVectorSearch(ids []core.ID)
	SemanticDegraded()
	AfterChunkRetrieval(chunks []*core.Chunk)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterKeywordSearch(_ []core.ID)        {}
func (n *noopMonitor) AfterVectorSearch(_ []core.ID)         {}
func (n *noopMonitor) SemanticDegraded()                     {}
func (n *noopMonitor) AfterChunkRetrieval(_ []*core.Chunk)   {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)         {}
