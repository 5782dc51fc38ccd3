package rag

import (
	"context"
	"fmt"
	"sync"
)

var _ Searcher = (*MemorySearcher)(nil)

// MemorySearcher is an in-memory Searcher for tests and single-binary
// deployments that seed their corpus at startup.
type MemorySearcher struct {
	mu     sync.RWMutex
	docs   map[string]Document
	chunks []Chunk
}

// NewMemorySearcher creates an empty in-memory corpus.
func NewMemorySearcher() *MemorySearcher {
	return &MemorySearcher{docs: make(map[string]Document)}
}

// AddDocument stores a document and its chunks, replacing any previous
// chunks for the same document.
func (m *MemorySearcher) AddDocument(doc Document, chunks []Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[doc.ID] = doc
	kept := m.chunks[:0]
	for _, c := range m.chunks {
		if c.DocID != doc.ID {
			kept = append(kept, c)
		}
	}
	m.chunks = kept
	for i, c := range chunks {
		c.DocID = doc.ID
		c.Ordinal = i
		if c.ID == "" {
			c.ID = fmt.Sprintf("%s#%d", doc.ID, i)
		}
		m.chunks = append(m.chunks, c)
	}
}

// Search implements Searcher.
func (m *MemorySearcher) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []scored
	for _, c := range m.chunks {
		title := m.docs[c.DocID].Title
		score := scoreChunk(queryTerms, title, c.Content)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{
			ordinal: c.Ordinal,
			result: SearchResult{
				DocID:   c.DocID,
				ChunkID: c.ID,
				Title:   title,
				Snippet: snippet(c.Content),
				Score:   score,
			},
		})
	}
	return rank(queryTerms, candidates, limit), nil
}
