package docsearch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/haasonsaas/copilot/internal/rag"
)

func seededSearcher() *rag.MemorySearcher {
	m := rag.NewMemorySearcher()
	m.AddDocument(rag.Document{ID: "doc-billing", Title: "Billing"}, []rag.Chunk{
		{Content: "Invoices are generated monthly and sent to the billing contact."},
		{Content: "Payment methods can be changed in Settings."},
	})
	return m
}

func TestSearchDocs(t *testing.T) {
	def := Definition(seededSearcher())

	raw, err := def.Run(context.Background(), nil, json.RawMessage(`{"query":"billing invoices"}`))
	if err != nil {
		t.Fatal(err)
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) == 0 {
		t.Fatal("no results")
	}
	top := out.Results[0]
	if top.DocID != "doc-billing" || top.ChunkID == "" || top.Snippet == "" {
		t.Errorf("top result incomplete: %+v", top)
	}
}

func TestSearchDocsHonorsLimit(t *testing.T) {
	def := Definition(seededSearcher())
	raw, err := def.Run(context.Background(), nil, json.RawMessage(`{"query":"billing","limit":1}`))
	if err != nil {
		t.Fatal(err)
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 {
		t.Errorf("results = %d, want 1", len(out.Results))
	}
}

func TestSearchDocsEmptyQueryRejected(t *testing.T) {
	def := Definition(seededSearcher())
	if _, err := def.Run(context.Background(), nil, json.RawMessage(`{"query":"  "}`)); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearchDocsNoMatchesReturnsEmptyArray(t *testing.T) {
	def := Definition(seededSearcher())
	raw, err := def.Run(context.Background(), nil, json.RawMessage(`{"query":"kubernetes"}`))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"results":[]}` {
		t.Errorf("payload = %s", raw)
	}
}
