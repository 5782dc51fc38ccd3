// Package rag provides the document retrieval collaborator behind the
// search-docs tool: a small corpus of chunked documents with lexical
// overlap ranking.
package rag

import "context"

// SearchResult is one ranked chunk returned to the caller.
type SearchResult struct {
	DocID   string  `json:"docId"`
	ChunkID string  `json:"chunkId"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Searcher ranks document chunks against a free-text query.
type Searcher interface {
	// Search returns up to limit results ordered by descending score.
	// Chunks with no term overlap are omitted.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Document is a titled source of one or more chunks.
type Document struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// Chunk is a contiguous slice of a document's text.
type Chunk struct {
	ID      string `json:"id"`
	DocID   string `json:"docId"`
	Ordinal int    `json:"ordinal"`
	Content string `json:"content"`
}
