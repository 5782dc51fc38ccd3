package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/internal/tools/tickets"
)

// TicketHandlerID is the registered identifier of the action helper agent.
const TicketHandlerID = "ticket-handler"

// TicketHandlerInput is the run input.
type TicketHandlerInput struct {
	Request string `json:"request" jsonschema:"required,description=The user's problem report or request."`
}

// TicketAction is a proposed create-ticket write in the agent's output.
// Execution happens later, through the confirmation workflow.
type TicketAction struct {
	ActionID             string         `json:"actionId,omitempty"`
	ToolID               string         `json:"toolId" jsonschema:"required"`
	Args                 map[string]any `json:"args" jsonschema:"required"`
	Title                string         `json:"title" jsonschema:"required,description=Short human-readable label for the confirmation prompt."`
	Risk                 string         `json:"risk,omitempty" jsonschema:"enum=low,enum=medium,enum=high"`
	RequiresConfirmation bool           `json:"requiresConfirmation,omitempty"`
}

// TicketHandlerOutput is the structured triage result.
type TicketHandlerOutput struct {
	Summary         string         `json:"summary" jsonschema:"required"`
	NextSteps       []string       `json:"nextSteps,omitempty"`
	ProposedActions []TicketAction `json:"proposedActions,omitempty"`
}

const ticketHandlerSystemPrompt = `You are a support triage assistant. Read the user's request, summarize the problem, and suggest next steps.
When a support ticket should be filed, do NOT create it yourself. Instead add an entry to proposedActions with toolId "create-ticket" and args matching that tool's input ({"title", "description", "priority"}).
Respond with a JSON object: {"summary": string, "nextSteps": array of strings, "proposedActions": array of {"actionId", "toolId", "args", "title", "risk"}}.`

var (
	ticketHandlerInputSchema  = schema.MustFor[TicketHandlerInput]()
	ticketHandlerOutputSchema = schema.MustFor[TicketHandlerOutput]()
)

// NewTicketHandler builds the action helper agent. It proposes
// create-ticket writes rather than executing them; action ids in the
// output are normalized so the ledger can track each proposal.
func NewTicketHandler(runner *agent.Runner, loop agent.LoopConfig) *agent.AgentDefinition {
	return &agent.AgentDefinition{
		ID:           TicketHandlerID,
		Name:         "Ticket Handler",
		Description:  "Triages problem reports and proposes confirmation-gated ticket creation.",
		InputSchema:  ticketHandlerInputSchema,
		OutputSchema: ticketHandlerOutputSchema,
		Run: func(ctx context.Context, ic *agent.Context, input json.RawMessage) (json.RawMessage, error) {
			out, err := runner.Run(ctx, ic, agent.RunnerConfig{
				AgentID:         TicketHandlerID,
				SystemPrompt:    ticketHandlerSystemPrompt,
				BuildPrompt:     buildTicketHandlerPrompt,
				OutputSchema:    ticketHandlerOutputSchema,
				EnsureActionIDs: true,
				Loop:            loop,
			}, input)
			if err != nil {
				return nil, err
			}
			return normalizeTicketActions(out.Output)
		},
	}
}

func buildTicketHandlerPrompt(input json.RawMessage) (string, error) {
	var in TicketHandlerInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode input: %w", err)
	}
	return "Request: " + in.Request, nil
}

// normalizeTicketActions forces every proposed action onto the
// create-ticket tool and defaults the risk grade.
func normalizeTicketActions(output json.RawMessage) (json.RawMessage, error) {
	var doc TicketHandlerOutput
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	for i := range doc.ProposedActions {
		a := &doc.ProposedActions[i]
		a.ToolID = tickets.ToolID
		a.RequiresConfirmation = true
		if a.Risk == "" {
			a.Risk = "medium"
		}
	}
	return json.Marshal(doc)
}
