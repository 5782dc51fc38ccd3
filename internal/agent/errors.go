package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Common sentinel errors for agent operations.
var (
	// ErrMaxSteps indicates the tool-calling loop exceeded its step limit.
	ErrMaxSteps = errors.New("max steps exceeded")

	// ErrNoModelClient indicates no model client is configured.
	ErrNoModelClient = errors.New("no model client configured")
)

// DuplicateToolError indicates a tool id was registered twice.
type DuplicateToolError struct {
	ID string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.ID)
}

// ToolNotFoundError indicates a lookup for an unknown tool id.
type ToolNotFoundError struct {
	ID string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.ID)
}

// UnknownAllowlistedToolError indicates an allowlist referenced a tool id
// that is not registered.
type UnknownAllowlistedToolError struct {
	AgentID string
	ToolID  string
}

func (e *UnknownAllowlistedToolError) Error() string {
	return fmt.Sprintf("allowlist for agent %q references unknown tool %q", e.AgentID, e.ToolID)
}

// DuplicateAgentError indicates an agent id was registered twice.
type DuplicateAgentError struct {
	ID string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q already registered", e.ID)
}

// AgentNotFoundError indicates a lookup for an unknown agent id.
type AgentNotFoundError struct {
	ID string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent %q not found", e.ID)
}

// GroundingRequiredError indicates an agent produced an answer without
// consulting its required retrieval tool.
type GroundingRequiredError struct {
	AgentID string
	ToolID  string
}

func (e *GroundingRequiredError) Error() string {
	return fmt.Sprintf("agent %q answered without calling required tool %q", e.AgentID, e.ToolID)
}

// SafeErrorReason is the closed vocabulary of tool failure reasons exposed
// to models and clients. Raw error text never crosses this boundary.
type SafeErrorReason string

const (
	SafeNotFound             SafeErrorReason = "NOT_FOUND"
	SafeTimeout              SafeErrorReason = "TIMEOUT"
	SafeExecutionError       SafeErrorReason = "EXECUTION_ERROR"
	SafeCancelled            SafeErrorReason = "CANCELLED"
	SafePermissionDenied     SafeErrorReason = "PERMISSION_DENIED"
	SafeConfirmationRequired SafeErrorReason = "CONFIRMATION_REQUIRED"
)

// MaxSafeDetailLength caps the optional detail string in safe errors.
const MaxSafeDetailLength = 160

// safeMessages maps each reason to its fixed human-readable message.
var safeMessages = map[SafeErrorReason]string{
	SafeNotFound:             "The requested tool is not available.",
	SafeTimeout:              "The tool took too long to respond.",
	SafeExecutionError:       "The tool failed to complete.",
	SafeCancelled:            "The operation was cancelled.",
	SafePermissionDenied:     "You do not have permission to use this tool.",
	SafeConfirmationRequired: "This action requires explicit confirmation before it can run.",
}

// SafeError is the wire form of a tool failure. Ok is always false.
type SafeError struct {
	Ok      bool            `json:"ok"`
	Reason  SafeErrorReason `json:"reason"`
	Message string          `json:"message"`
	Detail  string          `json:"detail,omitempty"`
}

// NewSafeError builds a safe error payload. Detail is optional and is
// truncated to MaxSafeDetailLength without splitting a UTF-8 rune.
func NewSafeError(reason SafeErrorReason, detail string) SafeError {
	if len(detail) > MaxSafeDetailLength {
		cut := MaxSafeDetailLength
		for cut > 0 && !utf8.RuneStart(detail[cut]) {
			cut--
		}
		detail = detail[:cut]
	}
	msg, ok := safeMessages[reason]
	if !ok {
		reason = SafeExecutionError
		msg = safeMessages[SafeExecutionError]
	}
	return SafeError{Ok: false, Reason: reason, Message: msg, Detail: detail}
}

// JSON renders the safe error as its wire payload.
func (e SafeError) JSON() json.RawMessage {
	raw, err := json.Marshal(e)
	if err != nil {
		// The struct is marshal-safe; this path is unreachable.
		return json.RawMessage(`{"ok":false,"reason":"EXECUTION_ERROR","message":"The tool failed to complete."}`)
	}
	return raw
}

// ParseSafeError decodes a tool result payload into a SafeError, reporting
// whether the payload actually is one.
func ParseSafeError(raw json.RawMessage) (SafeError, bool) {
	var se SafeError
	if err := json.Unmarshal(raw, &se); err != nil {
		return SafeError{}, false
	}
	if se.Reason == "" {
		return SafeError{}, false
	}
	return se, true
}

// LoopError records a failure in the run pipeline with the phase and the
// model step at which it occurred. The complete and execute_tools phases
// arise inside the tool-calling loop; extract covers structured-output
// handling after the loop finishes.
type LoopError struct {
	Phase LoopPhase
	Step  int
	Cause error
}

func (e *LoopError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("loop error at %s (step %d): %v", e.Phase, e.Step, e.Cause)
	}
	return fmt.Sprintf("loop error at %s (step %d)", e.Phase, e.Step)
}

// Unwrap returns the underlying error.
func (e *LoopError) Unwrap() error {
	return e.Cause
}

// LoopPhase identifies where in the loop a failure occurred.
type LoopPhase string

const (
	PhaseComplete     LoopPhase = "complete"
	PhaseExecuteTools LoopPhase = "execute_tools"
	PhaseExtract      LoopPhase = "extract"
)
