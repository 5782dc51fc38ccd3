package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/copilot/internal/observability"
)

// Logger provides structured audit logging for tool invocations and
// confirmation decisions.
//
// Key properties:
//   - Structured slog output (JSON or text)
//   - Arguments and results are summarized and redacted before buffering,
//     so raw sensitive values never sit in memory waiting to be written
//   - Async buffered writes; a full buffer falls back to a direct write
//     rather than dropping the event
//   - Trace correlation (trace_id, span_id) pulled from the context
type Logger struct {
	config  Config
	output  io.WriteCloser
	slogger *slog.Logger
	buffer  chan *Event
	wg      sync.WaitGroup
	done    chan struct{}
}

// NewLogger creates a new audit logger with the given configuration.
func NewLogger(config Config) (*Logger, error) {
	if !config.Enabled {
		return &Logger{config: config}, nil
	}

	if config.BufferSize == 0 {
		config.BufferSize = 1000
	}
	if config.FlushInterval == 0 {
		config.FlushInterval = 5 * time.Second
	}

	var output io.WriteCloser
	switch {
	case config.Output == "stdout" || config.Output == "":
		output = os.Stdout
	case config.Output == "stderr":
		output = os.Stderr
	case strings.HasPrefix(config.Output, "file:"):
		path := strings.TrimPrefix(config.Output, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log file: %w", err)
		}
		output = f
	default:
		return nil, fmt.Errorf("unsupported audit output: %s", config.Output)
	}

	l := &Logger{
		config: config,
		output: output,
		buffer: make(chan *Event, config.BufferSize),
		done:   make(chan struct{}),
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: l.slogLevel()})
	default:
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: l.slogLevel()})
	}
	l.slogger = slog.New(handler).With("component", "audit")

	l.wg.Add(1)
	go l.writeLoop()

	return l, nil
}

// Close flushes remaining events and closes the logger.
func (l *Logger) Close() error {
	if !l.config.Enabled {
		return nil
	}

	close(l.done)
	l.wg.Wait()

	if l.output != os.Stdout && l.output != os.Stderr {
		return l.output.Close()
	}
	return nil
}

// Log writes an audit event.
func (l *Logger) Log(ctx context.Context, event *Event) {
	if !l.config.Enabled {
		return
	}
	if !l.shouldLog(event.Level) {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.TraceID == "" {
		event.TraceID = observability.GetTraceID(ctx)
	}
	if event.SpanID == "" {
		event.SpanID = observability.GetSpanID(ctx)
	}

	select {
	case l.buffer <- event:
	default:
		// Buffer full, write directly rather than drop.
		l.writeEvent(event)
	}
}

// Subject identifies the caller and agent for a group of related events.
type Subject struct {
	UserID   string
	TenantID string
	AgentID  string
}

// LogInvocationStart records the start of a tool invocation. Args are
// summarized and redacted before the event enters the buffer.
func (l *Logger) LogInvocationStart(ctx context.Context, sub Subject, toolID, callID string, args json.RawMessage) {
	l.Log(ctx, &Event{
		Type:        EventToolInvocationStart,
		Level:       LevelInfo,
		UserID:      sub.UserID,
		TenantID:    sub.TenantID,
		AgentID:     sub.AgentID,
		ToolID:      toolID,
		CallID:      callID,
		ArgsSummary: Summarize(args, SummaryLimit),
	})
}

// LogInvocationEnd records the completion of a tool invocation. Outcome is
// "ok" for success or the failure reason otherwise.
func (l *Logger) LogInvocationEnd(ctx context.Context, sub Subject, toolID, callID, outcome string, result json.RawMessage, duration time.Duration) {
	level := LevelInfo
	if outcome != "ok" {
		level = LevelWarn
	}
	l.Log(ctx, &Event{
		Type:          EventToolInvocationEnd,
		Level:         level,
		UserID:        sub.UserID,
		TenantID:      sub.TenantID,
		AgentID:       sub.AgentID,
		ToolID:        toolID,
		CallID:        callID,
		Outcome:       outcome,
		ResultSummary: Summarize(result, SummaryLimit),
		Duration:      duration,
	})
}

// LogToolDenied records a permission or confirmation denial.
func (l *Logger) LogToolDenied(ctx context.Context, sub Subject, toolID, callID, reason string) {
	l.Log(ctx, &Event{
		Type:     EventToolDenied,
		Level:    LevelWarn,
		UserID:   sub.UserID,
		TenantID: sub.TenantID,
		AgentID:  sub.AgentID,
		ToolID:   toolID,
		CallID:   callID,
		Outcome:  reason,
	})
}

// LogActionEvent records a pending-action lifecycle event.
func (l *Logger) LogActionEvent(ctx context.Context, eventType EventType, sub Subject, actionID, toolID string, resultSummary string) {
	l.Log(ctx, &Event{
		Type:          eventType,
		Level:         LevelInfo,
		UserID:        sub.UserID,
		TenantID:      sub.TenantID,
		AgentID:       sub.AgentID,
		ToolID:        toolID,
		ActionID:      actionID,
		ResultSummary: resultSummary,
	})
}

// LogAgentRun records the end of an agent run.
func (l *Logger) LogAgentRun(ctx context.Context, sub Subject, outcome string, duration time.Duration, runErr error) {
	level := LevelInfo
	errMsg := ""
	if runErr != nil {
		level = LevelError
		errMsg = runErr.Error()
	}
	l.Log(ctx, &Event{
		Type:     EventAgentRunEnd,
		Level:    level,
		UserID:   sub.UserID,
		TenantID: sub.TenantID,
		AgentID:  sub.AgentID,
		Outcome:  outcome,
		Duration: duration,
		Error:    errMsg,
	})
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-l.buffer:
			l.writeEvent(event)
		case <-ticker.C:
			l.flushBuffer()
		case <-l.done:
			l.flushBuffer()
			return
		}
	}
}

func (l *Logger) flushBuffer() {
	for {
		select {
		case event := <-l.buffer:
			l.writeEvent(event)
		default:
			return
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	attrs := []any{
		"audit_id", event.ID,
		"audit_type", event.Type,
		"timestamp", event.Timestamp.Format(time.RFC3339Nano),
	}

	if event.UserID != "" {
		attrs = append(attrs, "user_id", event.UserID)
	}
	if event.TenantID != "" {
		attrs = append(attrs, "tenant_id", event.TenantID)
	}
	if event.AgentID != "" {
		attrs = append(attrs, "agent_id", event.AgentID)
	}
	if event.ToolID != "" {
		attrs = append(attrs, "tool_id", event.ToolID)
	}
	if event.CallID != "" {
		attrs = append(attrs, "call_id", event.CallID)
	}
	if event.ActionID != "" {
		attrs = append(attrs, "action_id", event.ActionID)
	}
	if event.ArgsSummary != "" {
		attrs = append(attrs, "args", event.ArgsSummary)
	}
	if event.ResultSummary != "" {
		attrs = append(attrs, "result", event.ResultSummary)
	}
	if event.Outcome != "" {
		attrs = append(attrs, "outcome", event.Outcome)
	}
	if event.Duration > 0 {
		attrs = append(attrs, "duration_ms", event.Duration.Milliseconds())
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}
	if event.TraceID != "" {
		attrs = append(attrs, "trace_id", event.TraceID)
	}
	if event.SpanID != "" {
		attrs = append(attrs, "span_id", event.SpanID)
	}

	switch event.Level {
	case LevelDebug:
		l.slogger.Debug("audit", attrs...)
	case LevelWarn:
		l.slogger.Warn("audit", attrs...)
	case LevelError:
		l.slogger.Error("audit", attrs...)
	default:
		l.slogger.Info("audit", attrs...)
	}
}

func (l *Logger) shouldLog(level Level) bool {
	levels := map[Level]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
	return levels[level] >= levels[l.config.Level]
}

func (l *Logger) slogLevel() slog.Level {
	switch l.config.Level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
