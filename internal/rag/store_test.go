package rag

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(StoreConfig{Path: filepath.Join(t.TempDir(), "rag.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddDocument(ctx, Document{ID: "doc-billing", Title: "Billing and invoices"}, []Chunk{
		{Content: "Invoices are generated on the first of each month."},
		{Content: "To change your payment method, open Settings and select Billing."},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDocument(ctx, Document{ID: "doc-export", Title: "Exporting data"}, []Chunk{
		{Content: "Use the export button on the dashboard to download a CSV."},
	}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "change payment method", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	top := results[0]
	if top.DocID != "doc-billing" || top.ChunkID != "doc-billing#1" {
		t.Errorf("top result = %+v", top)
	}
	if top.Title != "Billing and invoices" {
		t.Errorf("title = %q", top.Title)
	}
	if top.Snippet == "" || top.Score <= 0 {
		t.Errorf("result incomplete: %+v", top)
	}
}

func TestStoreReplaceAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddDocument(ctx, Document{ID: "doc-a", Title: "Guide"}, []Chunk{
		{Content: "old paragraph about widgets"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDocument(ctx, Document{ID: "doc-a", Title: "Guide"}, []Chunk{
		{Content: "fresh paragraph about gadgets"},
	}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, "widgets", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("stale chunk still searchable: %+v", results)
	}

	if err := s.DeleteDocument(ctx, "doc-a"); err != nil {
		t.Fatal(err)
	}
	docs, chunks, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if docs != 0 || chunks != 0 {
		t.Errorf("stats after delete = %d docs, %d chunks", docs, chunks)
	}
}

func TestStoreInMemory(t *testing.T) {
	s, err := NewStore(StoreConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.AddDocument(ctx, Document{Title: "Untitled"}, []Chunk{
		{Content: "searchable text"},
	}); err != nil {
		t.Fatal(err)
	}
	results, err := s.Search(ctx, "searchable", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d", len(results))
	}
	if results[0].DocID == "" {
		t.Error("document id not generated")
	}
}
