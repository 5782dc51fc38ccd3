package agent

import (
	"slices"

	"github.com/haasonsaas/copilot/internal/observability"
)

// Context bundles per-invocation state handed to tools and agents: caller
// identity, correlation ids, the event sink, and the resolved tool set.
// It does not replace context.Context; cancellation and deadlines travel
// on the standard context alongside it.
type Context struct {
	// Caller identity.
	UserID   string
	TenantID string
	Roles    []string

	// Correlation.
	RequestID string
	AgentID   string

	// Sink receives run events. Never nil after Normalize.
	Sink EventSink

	// Logger for structured logging. Never nil after Normalize.
	Logger *observability.Logger

	// Tools is the resolved tool set for this run, in allowlist order.
	Tools []*ToolDefinition

	// BypassConfirmation disables the confirmation gate. Set only by the
	// confirm-action path after a ledger claim; never by agent code.
	BypassConfirmation bool
}

// Normalize fills nil collaborators with safe defaults so tools and
// agents can use the context without nil checks.
func (c *Context) Normalize() {
	if c.Sink == nil {
		c.Sink = NopSink{}
	}
	if c.Logger == nil {
		c.Logger = observability.NewLogger(observability.LogConfig{})
	}
}

// HasRole reports whether the caller holds the given role.
func (c *Context) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Tool returns the resolved tool with the given id, or nil when the tool
// is not part of this run's tool set.
func (c *Context) Tool(id string) *ToolDefinition {
	for _, t := range c.Tools {
		if t.ID == id {
			return t
		}
	}
	return nil
}
