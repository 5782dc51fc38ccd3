package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/copilot/pkg/models"
)

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one entry in a model conversation. Assistant messages may
// carry tool calls; tool messages carry the result for a prior call.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	// ToolCalls is set on assistant messages that request tool use.
	ToolCalls []models.ToolCall `json:"toolCalls,omitempty"`

	// CallID links a tool message back to the call it answers.
	CallID string `json:"callId,omitempty"`

	// ToolName is set on tool messages.
	ToolName string `json:"toolName,omitempty"`
}

// CompletionRequest describes one model invocation.
type CompletionRequest struct {
	Model    string
	Messages []Message

	// Tools the model may call. Empty means plain completion.
	Tools []models.ToolDescriptor

	// ResponseSchema, when set, asks the provider for output conforming
	// to this JSON Schema. Providers that cannot enforce it fall back to
	// prompt steering; the runner re-validates regardless.
	ResponseSchema json.RawMessage

	MaxTokens   int
	Temperature float32
}

// Completion is the model's reply to one request.
type Completion struct {
	Content   string
	ToolCalls []models.ToolCall

	// Usage, when reported by the provider.
	InputTokens  int
	OutputTokens int
}

// ModelClient abstracts a chat-completion provider with tool support.
type ModelClient interface {
	// Name identifies the provider for logs and metrics.
	Name() string

	// Complete performs one model invocation. It must respect ctx
	// cancellation and return the provider error unwrapped enough for
	// callers to classify it.
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}
