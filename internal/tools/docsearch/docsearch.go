// Package docsearch provides the search-docs read tool over the document
// retrieval collaborator.
package docsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/rag"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

// ToolID is the registered identifier.
const ToolID = "search-docs"

// Input are the tool arguments.
type Input struct {
	Query string `json:"query" jsonschema:"required,description=Free-text search query."`
	Limit int    `json:"limit,omitempty" jsonschema:"minimum=1,maximum=20,description=Maximum results to return. Defaults to 5."`
}

// Output is the tool result.
type Output struct {
	Results []rag.SearchResult `json:"results"`
}

var inputSchema = schema.MustFor[Input]()

// Definition builds the tool over the given searcher.
func Definition(searcher rag.Searcher) *agent.ToolDefinition {
	return &agent.ToolDefinition{
		ID:          ToolID,
		Name:        "Search Docs",
		Description: "Searches the product documentation and returns ranked snippets with document and chunk ids.",
		Effect:      models.ToolEffectRead,
		InputSchema: inputSchema,
		Run: func(ctx context.Context, ic *agent.Context, args json.RawMessage) (json.RawMessage, error) {
			var in Input
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			if strings.TrimSpace(in.Query) == "" {
				return nil, fmt.Errorf("query is required")
			}
			limit := in.Limit
			if limit <= 0 {
				limit = rag.DefaultLimit
			}

			results, err := searcher.Search(ctx, in.Query, limit)
			if err != nil {
				return nil, fmt.Errorf("search: %w", err)
			}
			if results == nil {
				results = []rag.SearchResult{}
			}
			return json.Marshal(Output{Results: results})
		},
	}
}
