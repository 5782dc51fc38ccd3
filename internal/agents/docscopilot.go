package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/internal/tools/docsearch"
	"github.com/haasonsaas/copilot/pkg/models"
)

// DocsCopilotID is the registered identifier of the documentation agent.
const DocsCopilotID = "docs-copilot"

// DocsCopilotInput is the run input.
type DocsCopilotInput struct {
	Question string `json:"question" jsonschema:"required,description=The documentation question."`
}

// Citation points at the retrieved chunk backing part of an answer.
type Citation struct {
	DocID   string `json:"docId" jsonschema:"required"`
	ChunkID string `json:"chunkId" jsonschema:"required"`
	Snippet string `json:"snippet,omitempty"`
}

// DocsCopilotOutput is the structured, cited answer.
type DocsCopilotOutput struct {
	Answer    string     `json:"answer" jsonschema:"required"`
	Citations []Citation `json:"citations,omitempty"`
}

const docsCopilotSystemPrompt = `You are a documentation assistant. You must search the documentation with the search-docs tool before answering; never answer from memory alone.
Respond with a JSON object: {"answer": string, "citations": array of {"docId": string, "chunkId": string, "snippet": string}}.
Cite only chunks returned by search-docs.`

var (
	docsCopilotInputSchema  = schema.MustFor[DocsCopilotInput]()
	docsCopilotOutputSchema = schema.MustFor[DocsCopilotOutput]()
)

// NewDocsCopilot builds the documentation agent. Every accepted answer is
// grounded in at least one successful search-docs call, and citations are
// reconciled against what that call actually returned.
func NewDocsCopilot(runner *agent.Runner, loop agent.LoopConfig) *agent.AgentDefinition {
	return &agent.AgentDefinition{
		ID:           DocsCopilotID,
		Name:         "Docs Copilot",
		Description:  "Answers documentation questions with citations grounded in retrieval results.",
		InputSchema:  docsCopilotInputSchema,
		OutputSchema: docsCopilotOutputSchema,
		Run: func(ctx context.Context, ic *agent.Context, input json.RawMessage) (json.RawMessage, error) {
			out, err := runner.Run(ctx, ic, agent.RunnerConfig{
				AgentID:       DocsCopilotID,
				SystemPrompt:  docsCopilotSystemPrompt,
				BuildPrompt:   buildDocsCopilotPrompt,
				OutputSchema:  docsCopilotOutputSchema,
				GroundingTool: docsearch.ToolID,
				Loop:          loop,
			}, input)
			if err != nil {
				return nil, err
			}
			return reconcileCitations(out)
		},
	}
}

func buildDocsCopilotPrompt(input json.RawMessage) (string, error) {
	var in DocsCopilotInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode input: %w", err)
	}
	return "Question: " + in.Question, nil
}

// reconcileCitations drops citations pointing at chunks the retrieval
// calls never returned, and falls back to the retrieved chunks themselves
// when the model cited nothing usable.
func reconcileCitations(out *agent.RunOutput) (json.RawMessage, error) {
	retrieved := retrievedChunks(out.ToolResults)

	var doc DocsCopilotOutput
	if err := json.Unmarshal(out.Output, &doc); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}

	kept := doc.Citations[:0]
	for _, c := range doc.Citations {
		hit, ok := retrieved[c.ChunkID]
		if !ok {
			continue
		}
		c.DocID = hit.DocID
		if c.Snippet == "" {
			c.Snippet = hit.Snippet
		}
		kept = append(kept, c)
	}
	doc.Citations = kept

	if len(doc.Citations) == 0 {
		for _, hit := range orderedChunks(out.ToolResults) {
			doc.Citations = append(doc.Citations, Citation{
				DocID:   hit.DocID,
				ChunkID: hit.ChunkID,
				Snippet: hit.Snippet,
			})
			if len(doc.Citations) == 3 {
				break
			}
		}
	}

	return json.Marshal(doc)
}

type retrievedChunk struct {
	DocID   string
	ChunkID string
	Snippet string
}

func retrievedChunks(results []models.ToolCallResult) map[string]retrievedChunk {
	index := make(map[string]retrievedChunk)
	for _, hit := range orderedChunks(results) {
		if _, ok := index[hit.ChunkID]; !ok {
			index[hit.ChunkID] = hit
		}
	}
	return index
}

func orderedChunks(results []models.ToolCallResult) []retrievedChunk {
	var out []retrievedChunk
	for _, res := range results {
		if res.Name != docsearch.ToolID || res.IsError {
			continue
		}
		var payload docsearch.Output
		if err := json.Unmarshal(res.Output, &payload); err != nil {
			continue
		}
		for _, r := range payload.Results {
			out = append(out, retrievedChunk{DocID: r.DocID, ChunkID: r.ChunkID, Snippet: r.Snippet})
		}
	}
	return out
}
