package models

import (
	"encoding/json"
	"time"
)

// RunEventType identifies the kind of streaming run event.
type RunEventType string

const (
	// RunEventStatus reports a phase change (thinking, running a step).
	RunEventStatus RunEventType = "status"

	// RunEventTool reports tool lifecycle within a step.
	RunEventTool RunEventType = "tool"

	// RunEventResult carries the final agent output. Emitted at most once.
	RunEventResult RunEventType = "result"

	// RunEventError carries a terminal failure. Emitted at most once, and
	// never after a result.
	RunEventError RunEventType = "error"

	// RunEventDone closes the stream. Always the last event.
	RunEventDone RunEventType = "done"
)

// RunPhase is the coarse state reported by status events.
type RunPhase string

const (
	RunPhaseThinking RunPhase = "thinking"
	RunPhaseRunning  RunPhase = "running"
)

// ToolEventStatus is the per-call state reported by tool events.
type ToolEventStatus string

const (
	ToolStatusStarted   ToolEventStatus = "started"
	ToolStatusCompleted ToolEventStatus = "completed"
	ToolStatusFailed    ToolEventStatus = "failed"
)

// RunEvent is the unified event model for streaming agent runs. Exactly one
// payload pointer is non-nil for a given Type; Done carries none.
type RunEvent struct {
	Type RunEventType `json:"type"`
	Time time.Time    `json:"time"`

	Status *StatusPayload `json:"status,omitempty"`
	Tool   *ToolPayload   `json:"tool,omitempty"`
	Result *ResultPayload `json:"result,omitempty"`
	Error  *ErrorPayload  `json:"error,omitempty"`
}

// StatusPayload reports loop progress.
type StatusPayload struct {
	Phase RunPhase `json:"phase"`
	Step  int      `json:"step,omitempty"`
}

// ToolPayload reports one tool call's lifecycle.
type ToolPayload struct {
	ToolID string          `json:"toolId"`
	Status ToolEventStatus `json:"status"`
	CallID string          `json:"callId,omitempty"`
}

// ResultPayload carries the final structured output of the run.
type ResultPayload struct {
	AgentID         string          `json:"agentId"`
	Output          json.RawMessage `json:"output"`
	ExecutionTimeMs int64           `json:"executionTimeMs"`
}

// ErrorPayload carries a terminal run failure in boundary vocabulary.
type ErrorPayload struct {
	Message string       `json:"message"`
	Code    RunErrorCode `json:"code"`
}

// StatusEvent builds a status event stamped with the current time.
func StatusEvent(phase RunPhase, step int) RunEvent {
	return RunEvent{Type: RunEventStatus, Time: time.Now(), Status: &StatusPayload{Phase: phase, Step: step}}
}

// ToolEvent builds a tool lifecycle event.
func ToolEvent(toolID, callID string, status ToolEventStatus) RunEvent {
	return RunEvent{Type: RunEventTool, Time: time.Now(), Tool: &ToolPayload{ToolID: toolID, Status: status, CallID: callID}}
}

// ResultEvent builds the terminal success event.
func ResultEvent(agentID string, output json.RawMessage, elapsed time.Duration) RunEvent {
	return RunEvent{Type: RunEventResult, Time: time.Now(), Result: &ResultPayload{
		AgentID:         agentID,
		Output:          output,
		ExecutionTimeMs: elapsed.Milliseconds(),
	}}
}

// ErrorEvent builds the terminal failure event.
func ErrorEvent(message string, code RunErrorCode) RunEvent {
	return RunEvent{Type: RunEventError, Time: time.Now(), Error: &ErrorPayload{Message: message, Code: code}}
}

// DoneEvent builds the stream-closing event.
func DoneEvent() RunEvent {
	return RunEvent{Type: RunEventDone, Time: time.Now()}
}
