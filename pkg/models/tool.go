// Package models provides domain types shared across the copilot runtime.
package models

import (
	"encoding/json"
	"time"
)

// ToolEffect classifies what a tool does to the outside world.
// Read tools are side-effect free; write tools mutate external state and
// are subject to the confirmation workflow.
type ToolEffect string

const (
	ToolEffectRead  ToolEffect = "read"
	ToolEffectWrite ToolEffect = "write"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	// ID identifies this call within a run. Assigned by the provider or
	// synthesized when the provider omits one.
	ID string `json:"id"`

	// Name is the registered tool identifier.
	Name string `json:"name"`

	// Args is the raw JSON argument object as produced by the model.
	Args json.RawMessage `json:"args"`
}

// ToolCallResult is the outcome of one tool call, successful or not.
// Failed calls carry a safe error payload in Output rather than a Go error
// so the model can observe and recover from the failure.
type ToolCallResult struct {
	CallID  string          `json:"callId"`
	Name    string          `json:"name"`
	Output  json.RawMessage `json:"output"`
	IsError bool            `json:"isError,omitempty"`
	Elapsed time.Duration   `json:"elapsed,omitempty"`
}

// ToolDescriptor is the externally visible description of a registered tool.
type ToolDescriptor struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Effect               ToolEffect      `json:"effect"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	InputSchema          json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolRef is the minimal {id, name} view of a tool used in allowlist
// listings over the boundary.
type ToolRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToolPermissions restricts who may invoke a tool. Empty slices impose no
// restriction on that axis.
type ToolPermissions struct {
	RequiredRoles  []string `json:"requiredRoles,omitempty"`
	AllowedTenants []string `json:"allowedTenants,omitempty"`
}
