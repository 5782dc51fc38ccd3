// Package tickets provides the create-ticket write tool. It is
// confirmation-gated: agents propose ticket creation and the user confirms
// through the pending-action workflow before anything is written.
package tickets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

// ToolID is the registered identifier.
const ToolID = "create-ticket"

// Input are the tool arguments.
type Input struct {
	Title       string `json:"title" jsonschema:"required,description=Short ticket title."`
	Description string `json:"description,omitempty" jsonschema:"description=Longer problem description."`
	Priority    string `json:"priority,omitempty" jsonschema:"enum=low,enum=medium,enum=high,description=Ticket priority. Defaults to medium."`
}

// Output is the tool result.
type Output struct {
	TicketID  string `json:"ticketId"`
	Title     string `json:"title"`
	Priority  string `json:"priority"`
	CreatedAt string `json:"createdAt"`
}

// Ticket is a stored ticket record.
type Ticket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    string    `json:"priority"`
	UserID      string    `json:"userId"`
	TenantID    string    `json:"tenantId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists created tickets. The default in-memory implementation is
// enough for a copilot backend fronting a real ticketing system elsewhere.
type Store interface {
	Create(ctx context.Context, t Ticket) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu      sync.Mutex
	tickets []Ticket
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, t Ticket) error {
	s.mu.Lock()
	s.tickets = append(s.tickets, t)
	s.mu.Unlock()
	return nil
}

// List returns a snapshot of stored tickets.
func (s *MemoryStore) List() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

var inputSchema = schema.MustFor[Input]()

// Definition builds the tool. Creation requires the member role.
func Definition(store Store) *agent.ToolDefinition {
	if store == nil {
		store = NewMemoryStore()
	}
	return &agent.ToolDefinition{
		ID:                   ToolID,
		Name:                 "Create Ticket",
		Description:          "Creates a support ticket. Requires user confirmation before it runs.",
		Effect:               models.ToolEffectWrite,
		RequiresConfirmation: true,
		InputSchema:          inputSchema,
		Permissions: models.ToolPermissions{
			RequiredRoles: []string{"member"},
		},
		Run: func(ctx context.Context, ic *agent.Context, args json.RawMessage) (json.RawMessage, error) {
			var in Input
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, fmt.Errorf("decode args: %w", err)
			}
			if strings.TrimSpace(in.Title) == "" {
				return nil, fmt.Errorf("title is required")
			}
			priority := in.Priority
			if priority == "" {
				priority = "medium"
			}

			ticket := Ticket{
				ID:          "TICKET-" + strings.ToUpper(uuid.NewString()[:8]),
				Title:       strings.TrimSpace(in.Title),
				Description: strings.TrimSpace(in.Description),
				Priority:    priority,
				CreatedAt:   time.Now().UTC(),
			}
			if ic != nil {
				ticket.UserID = ic.UserID
				ticket.TenantID = ic.TenantID
			}
			if err := store.Create(ctx, ticket); err != nil {
				return nil, fmt.Errorf("store ticket: %w", err)
			}

			return json.Marshal(Output{
				TicketID:  ticket.ID,
				Title:     ticket.Title,
				Priority:  ticket.Priority,
				CreatedAt: ticket.CreatedAt.Format(time.RFC3339),
			})
		},
	}
}
