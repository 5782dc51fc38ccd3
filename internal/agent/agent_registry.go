package agent

import (
	"sync"

	"github.com/haasonsaas/copilot/pkg/models"
)

// AgentRegistry holds registered agents. Safe for concurrent use.
type AgentRegistry struct {
	mu     sync.RWMutex
	agents map[string]*AgentDefinition
	order  []string
}

// NewAgentRegistry creates an empty agent registry.
func NewAgentRegistry() *AgentRegistry {
	return &AgentRegistry{agents: make(map[string]*AgentDefinition)}
}

// Register adds an agent definition. Registering an id twice is an error.
func (r *AgentRegistry) Register(def *AgentDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[def.ID]; exists {
		return &DuplicateAgentError{ID: def.ID}
	}
	r.agents[def.ID] = def
	r.order = append(r.order, def.ID)
	return nil
}

// Get returns the agent with the given id.
func (r *AgentRegistry) Get(id string) (*AgentDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.agents[id]
	if !ok {
		return nil, &AgentNotFoundError{ID: id}
	}
	return def, nil
}

// Has reports whether an agent id is registered.
func (r *AgentRegistry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[id]
	return ok
}

// ListMetadata returns agent metadata in registration order. Prompts,
// schemas, and handlers are never exposed through listings.
func (r *AgentRegistry) ListMetadata() []models.AgentMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AgentMetadata, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Metadata())
	}
	return out
}
