// Package audit provides structured audit logging for tool invocations and
// confirmation decisions, with redaction of sensitive argument fields.
package audit

import (
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	// Tool invocation lifecycle
	EventToolInvocationStart EventType = "tool_invocation_start"
	EventToolInvocationEnd   EventType = "tool_invocation_end"
	EventToolDenied          EventType = "tool_denied"

	// Pending action lifecycle
	EventActionProposed  EventType = "action_proposed"
	EventActionConfirmed EventType = "action_confirmed"
	EventActionCancelled EventType = "action_cancelled"

	// Agent run lifecycle
	EventAgentRunStart EventType = "agent_run_start"
	EventAgentRunEnd   EventType = "agent_run_end"
)

// Level represents audit log severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is a single audit log entry. Argument and result fields hold
// redacted summaries, never raw payloads.
type Event struct {
	// ID is a unique identifier for this audit event.
	ID string `json:"id"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// Level is the severity level.
	Level Level `json:"level"`

	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// UserID and TenantID identify the caller.
	UserID   string `json:"user_id,omitempty"`
	TenantID string `json:"tenant_id,omitempty"`

	// AgentID identifies the agent whose run triggered the event.
	AgentID string `json:"agent_id,omitempty"`

	// ToolID and CallID identify the tool invocation.
	ToolID string `json:"tool_id,omitempty"`
	CallID string `json:"call_id,omitempty"`

	// ActionID links confirmation events to the pending-action ledger.
	ActionID string `json:"action_id,omitempty"`

	// ArgsSummary is a redacted, depth-limited rendering of the arguments.
	ArgsSummary string `json:"args_summary,omitempty"`

	// ResultSummary is a redacted, depth-limited rendering of the result.
	ResultSummary string `json:"result_summary,omitempty"`

	// Outcome is "ok" or the failure reason for end events.
	Outcome string `json:"outcome,omitempty"`

	// Duration is the time taken for timed operations.
	Duration time.Duration `json:"duration,omitempty"`

	// Error contains error information if applicable.
	Error string `json:"error,omitempty"`

	// TraceID and SpanID correlate with distributed traces.
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// OutputFormat specifies the audit log output format.
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatText OutputFormat = "text"
)

// Config configures the audit logger.
type Config struct {
	// Enabled determines if audit logging is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Level is the minimum level to log.
	Level Level `json:"level" yaml:"level"`

	// Format specifies the output format.
	Format OutputFormat `json:"format" yaml:"format"`

	// Output specifies where to write logs.
	// Supported: "stdout", "stderr", "file:/path/to/file.log"
	Output string `json:"output" yaml:"output"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`

	// FlushInterval is how often to flush the buffer.
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// DefaultConfig returns a default audit configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Level:         LevelInfo,
		Format:        FormatJSON,
		Output:        "stdout",
		BufferSize:    1000,
		FlushInterval: 5 * time.Second,
	}
}
