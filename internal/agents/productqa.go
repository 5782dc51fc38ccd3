// Package agents defines the built-in copilot agents on top of the shared
// runner template.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
)

// ProductQAID is the registered identifier of the product Q&A agent.
const ProductQAID = "product-qa"

// ProductQAInput is the run input.
type ProductQAInput struct {
	Question string `json:"question" jsonschema:"required,description=The user's question about the product."`
	Context  string `json:"context,omitempty" jsonschema:"description=Optional extra context such as the screen the user is on."`
}

// ProductQAOutput is the structured answer.
type ProductQAOutput struct {
	Answer     string   `json:"answer" jsonschema:"required"`
	Confidence float64  `json:"confidence,omitempty" jsonschema:"minimum=0,maximum=1"`
	Sources    []string `json:"sources,omitempty"`
}

const productQASystemPrompt = `You are an in-app product assistant. Answer the user's question about the product.
Use the available tools when they help: look up the current time, calculate, or search the documentation.
Respond with a JSON object: {"answer": string, "confidence": number between 0 and 1, "sources": array of strings}.`

var (
	productQAInputSchema  = schema.MustFor[ProductQAInput]()
	productQAOutputSchema = schema.MustFor[ProductQAOutput]()
)

// NewProductQA builds the product Q&A agent.
func NewProductQA(runner *agent.Runner, loop agent.LoopConfig) *agent.AgentDefinition {
	return &agent.AgentDefinition{
		ID:           ProductQAID,
		Name:         "Product Q&A",
		Description:  "Answers product questions, using tools for time, arithmetic, and documentation lookups.",
		InputSchema:  productQAInputSchema,
		OutputSchema: productQAOutputSchema,
		Run: func(ctx context.Context, ic *agent.Context, input json.RawMessage) (json.RawMessage, error) {
			out, err := runner.Run(ctx, ic, agent.RunnerConfig{
				AgentID:      ProductQAID,
				SystemPrompt: productQASystemPrompt,
				BuildPrompt:  buildProductQAPrompt,
				OutputSchema: productQAOutputSchema,
				Loop:         loop,
			}, input)
			if err != nil {
				return nil, err
			}
			return out.Output, nil
		},
	}
}

func buildProductQAPrompt(input json.RawMessage) (string, error) {
	var in ProductQAInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode input: %w", err)
	}
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(in.Question)
	if in.Context != "" {
		b.WriteString("\nContext: ")
		b.WriteString(in.Context)
	}
	return b.String(), nil
}
