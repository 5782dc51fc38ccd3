package agent

import (
	"sort"
	"sync"

	"github.com/haasonsaas/copilot/pkg/models"
)

// ToolRegistry holds registered tools and per-agent allowlists. All
// methods are safe for concurrent use.
//
// Allowlists are fail-safe: an agent with no allowlist resolves to an
// empty tool set unless the caller explicitly opts into the fallback.
type ToolRegistry struct {
	mu         sync.RWMutex
	tools      map[string]*ToolDefinition
	order      []string
	allowlists map[string][]string
}

// NewToolRegistry creates an empty tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:      make(map[string]*ToolDefinition),
		allowlists: make(map[string][]string),
	}
}

// Register adds a tool definition. Registering an id twice is an error.
func (r *ToolRegistry) Register(def *ToolDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.ID]; exists {
		return &DuplicateToolError{ID: def.ID}
	}
	r.tools[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// Get returns the tool with the given id.
func (r *ToolRegistry) Get(id string) (*ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.tools[id]
	if !ok {
		return nil, &ToolNotFoundError{ID: id}
	}
	return def, nil
}

// Has reports whether a tool id is registered.
func (r *ToolRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[id]
	return ok
}

// List returns descriptors for all registered tools in registration order.
func (r *ToolRegistry) List() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ToolDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id].Descriptor())
	}
	return out
}

// SetAllowlist replaces the allowlist for an agent. Every referenced tool
// must be registered; on failure the previous allowlist is kept.
func (r *ToolRegistry) SetAllowlist(agentID string, toolIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range toolIDs {
		if _, ok := r.tools[id]; !ok {
			return &UnknownAllowlistedToolError{AgentID: agentID, ToolID: id}
		}
	}

	// Copy to insulate the registry from later caller mutation.
	r.allowlists[agentID] = append([]string(nil), toolIDs...)
	return nil
}

// Allowlist returns the allowlisted tool ids for an agent and whether an
// allowlist is set at all.
func (r *ToolRegistry) Allowlist(agentID string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.allowlists[agentID]
	if !ok {
		return nil, false
	}
	return append([]string(nil), ids...), true
}

// ToolsForAgent resolves the tool set for an agent. With no allowlist the
// result is empty unless fallbackToAll is set, in which case all
// registered tools are returned. An allowlisted id that no longer resolves
// to a registered tool fails the whole resolution rather than silently
// shrinking the agent's tool set.
func (r *ToolRegistry) ToolsForAgent(agentID string, fallbackToAll bool) ([]*ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, ok := r.allowlists[agentID]
	if !ok {
		if !fallbackToAll {
			return nil, nil
		}
		ids = r.order
	}

	out := make([]*ToolDefinition, 0, len(ids))
	for _, id := range ids {
		def, exists := r.tools[id]
		if !exists {
			return nil, &UnknownAllowlistedToolError{AgentID: agentID, ToolID: id}
		}
		out = append(out, def)
	}
	return out, nil
}

// AgentsWithAllowlists returns the agent ids that have explicit
// allowlists, sorted.
func (r *ToolRegistry) AgentsWithAllowlists() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.allowlists))
	for id := range r.allowlists {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
