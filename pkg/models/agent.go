package models

import (
	"encoding/json"
	"time"
)

// AgentMetadata is the listing view of a registered agent. It intentionally
// excludes prompts, schemas, and run callbacks.
type AgentMetadata struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RunRequest is the boundary request for a synchronous or streaming agent run.
type RunRequest struct {
	AgentID   string          `json:"agentId"`
	Input     json.RawMessage `json:"input"`
	TimeoutMs int             `json:"timeoutMs,omitempty"`
}

// RunErrorCode classifies boundary run failures.
type RunErrorCode string

const (
	RunErrValidation    RunErrorCode = "VALIDATION_ERROR"
	RunErrAgentNotFound RunErrorCode = "AGENT_NOT_FOUND"
	RunErrTimeout       RunErrorCode = "TIMEOUT_ERROR"
	RunErrModel         RunErrorCode = "MODEL_ERROR"
	RunErrUnknown       RunErrorCode = "UNKNOWN_ERROR"
)

// RunResponse is the synchronous run envelope. Exactly one of Result or
// Error is meaningful, discriminated by OK.
type RunResponse struct {
	OK              bool            `json:"ok"`
	AgentID         string          `json:"agentId,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	ExecutionTimeMs int64           `json:"executionTimeMs,omitempty"`
	Error           string          `json:"error,omitempty"`
	Code            RunErrorCode    `json:"code,omitempty"`
	Details         json.RawMessage `json:"details,omitempty"`
}

// RunResult is the internal outcome of an agent run, before boundary
// serialization.
type RunResult struct {
	AgentID string
	Output  json.RawMessage
	Started time.Time
	Elapsed time.Duration
}
