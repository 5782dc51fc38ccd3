// Package agent implements the copilot execution core: tool and agent
// registries, the guarded tool invocation pipeline, the bounded
// tool-calling loop, and the agent runner template.
package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/copilot/pkg/models"
)

// ToolHandler executes a tool with validated arguments. It returns the raw
// JSON result or an error; errors are translated to the safe error
// vocabulary before the model or a client sees them.
type ToolHandler func(ctx context.Context, ic *Context, args json.RawMessage) (json.RawMessage, error)

// ToolDefinition is a registered tool: identity, typed contract, safety
// classification, and the handler itself.
type ToolDefinition struct {
	// ID is the unique tool identifier.
	ID string

	// Name is the human-readable label shown in listings and
	// confirmation prompts.
	Name string

	// Description tells the model what the tool does.
	Description string

	// Effect classifies the tool as read or write.
	Effect models.ToolEffect

	// RequiresConfirmation gates execution behind the pending-action
	// workflow. Write tools normally set this.
	RequiresConfirmation bool

	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema json.RawMessage

	// Permissions restricts callers by role and tenant.
	Permissions models.ToolPermissions

	// Run executes the tool.
	Run ToolHandler
}

// Descriptor returns the externally visible view of the tool.
func (d *ToolDefinition) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		ID:                   d.ID,
		Name:                 d.Name,
		Description:          d.Description,
		Effect:               d.Effect,
		RequiresConfirmation: d.RequiresConfirmation,
		InputSchema:          d.InputSchema,
	}
}

// Ref returns the {id, name} pair used in allowlist listings.
func (d *ToolDefinition) Ref() models.ToolRef {
	return models.ToolRef{ID: d.ID, Name: d.Name}
}

// AgentHandler runs an agent against validated input and returns the
// structured output.
type AgentHandler func(ctx context.Context, ic *Context, input json.RawMessage) (json.RawMessage, error)

// AgentDefinition is a registered agent.
type AgentDefinition struct {
	// ID is the unique agent identifier.
	ID string

	// Name and Description are for listings and pickers.
	Name        string
	Description string

	// InputSchema validates run input at the boundary.
	InputSchema json.RawMessage

	// OutputSchema describes the structured output contract.
	OutputSchema json.RawMessage

	// Run executes the agent. Usually built on Runner.
	Run AgentHandler
}

// Metadata returns the listing view of the agent.
func (d *AgentDefinition) Metadata() models.AgentMetadata {
	return models.AgentMetadata{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
	}
}
