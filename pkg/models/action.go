package models

import (
	"encoding/json"
	"time"
)

// ActionRisk grades the blast radius of a proposed action for display in
// confirmation prompts.
type ActionRisk string

const (
	ActionRiskLow    ActionRisk = "low"
	ActionRiskMedium ActionRisk = "medium"
	ActionRiskHigh   ActionRisk = "high"
)

// ProposedAction is a write operation an agent suggests but does not execute.
// The user must confirm it through the pending-action workflow.
type ProposedAction struct {
	ActionID string          `json:"actionId"`
	ToolID   string          `json:"toolId"`
	Args     json.RawMessage `json:"args"`
	Title    string          `json:"title"`
	Risk     ActionRisk      `json:"risk"`

	// RequiresConfirmation is always true for proposed actions; carried
	// explicitly so clients need no out-of-band knowledge.
	RequiresConfirmation bool `json:"requiresConfirmation"`

	// Preview is an optional human-readable rendering of the effect.
	Preview string `json:"preview,omitempty"`
}

// PendingActionStatus is the lifecycle state of a ledger entry.
type PendingActionStatus string

const (
	ActionStatusProposed  PendingActionStatus = "proposed"
	ActionStatusExecuted  PendingActionStatus = "executed"
	ActionStatusCancelled PendingActionStatus = "cancelled"
	ActionStatusExpired   PendingActionStatus = "expired"
)

// Terminal reports whether the status admits no further transitions.
func (s PendingActionStatus) Terminal() bool {
	switch s {
	case ActionStatusExecuted, ActionStatusCancelled, ActionStatusExpired:
		return true
	}
	return false
}

// PendingAction is a ledger entry tracking one proposed action from
// registration through its terminal state.
type PendingAction struct {
	ActionID  string              `json:"actionId"`
	ToolID    string              `json:"toolId"`
	Args      json.RawMessage     `json:"args"`
	Title     string              `json:"title"`
	Risk      ActionRisk          `json:"risk"`
	UserID    string              `json:"userId"`
	TenantID  string              `json:"tenantId"`
	AgentID   string              `json:"agentId"`
	Status    PendingActionStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	ExpiresAt time.Time           `json:"expiresAt"`

	// ExecutedAt is stamped when the action transitions to executed.
	ExecutedAt *time.Time `json:"executedAt,omitempty"`

	// ResultSummary is a redacted, size-capped summary of the execution
	// result. Set only for executed entries.
	ResultSummary string `json:"resultSummary,omitempty"`
}
