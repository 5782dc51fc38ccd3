package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/copilot/internal/audit"
	"github.com/haasonsaas/copilot/internal/observability"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

const (
	// DefaultToolTimeout bounds a single tool execution.
	DefaultToolTimeout = 8 * time.Second

	// maxArgsBytes bounds the size of a tool argument payload.
	maxArgsBytes = 1 << 20
)

// InvokerConfig configures the tool invocation pipeline.
type InvokerConfig struct {
	// Timeout is the per-call execution timeout. Default: DefaultToolTimeout.
	Timeout time.Duration
}

// Invoker runs tool calls through the full guard pipeline: argument
// validation, permission checks, the confirmation gate, timeout-isolated
// execution, and audit logging. Failures surface as safe error payloads
// in the result, never as raw error text.
type Invoker struct {
	registry  *ToolRegistry
	validator *schema.Validator
	auditor   *audit.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	timeout   time.Duration
}

// NewInvoker creates an invoker. auditor, metrics, and tracer may be nil;
// the corresponding concerns are then skipped.
func NewInvoker(registry *ToolRegistry, validator *schema.Validator, auditor *audit.Logger, metrics *observability.Metrics, tracer *observability.Tracer, config InvokerConfig) *Invoker {
	if config.Timeout <= 0 {
		config.Timeout = DefaultToolTimeout
	}
	return &Invoker{
		registry:  registry,
		validator: validator,
		auditor:   auditor,
		metrics:   metrics,
		tracer:    tracer,
		timeout:   config.Timeout,
	}
}

// Timeout returns the configured per-call timeout.
func (inv *Invoker) Timeout() time.Duration {
	return inv.timeout
}

// Invoke runs one tool call through the pipeline. The returned result
// always carries the call id; failed calls have IsError set and a safe
// error payload as output.
func (inv *Invoker) Invoke(ctx context.Context, ic *Context, call models.ToolCall) models.ToolCallResult {
	ic.Normalize()
	start := time.Now()

	def, err := inv.registry.Get(call.Name)
	if err != nil {
		return inv.fail(ctx, ic, call, SafeNotFound, "", start)
	}

	if len(call.Args) > maxArgsBytes {
		return inv.fail(ctx, ic, call, SafeExecutionError, "arguments too large", start)
	}

	if err := inv.validator.Validate(def.InputSchema, normalizeArgs(call.Args)); err != nil {
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			return inv.fail(ctx, ic, call, SafeExecutionError, "invalid arguments: "+ve.Error(), start)
		}
		return inv.fail(ctx, ic, call, SafeExecutionError, "invalid arguments", start)
	}

	if reason := checkPermissions(def, ic); reason != "" {
		if inv.auditor != nil {
			inv.auditor.LogToolDenied(ctx, inv.subject(ic), call.Name, call.ID, reason)
		}
		return inv.fail(ctx, ic, call, SafePermissionDenied, "", start)
	}

	if def.RequiresConfirmation && !ic.BypassConfirmation {
		if inv.auditor != nil {
			inv.auditor.LogToolDenied(ctx, inv.subject(ic), call.Name, call.ID, "confirmation_required")
		}
		return inv.fail(ctx, ic, call, SafeConfirmationRequired, "", start)
	}

	if inv.auditor != nil {
		inv.auditor.LogInvocationStart(ctx, inv.subject(ic), call.Name, call.ID, call.Args)
	}

	var span oteltrace.Span
	if inv.tracer != nil {
		ctx, span = inv.tracer.TraceToolInvocation(ctx, call.Name)
	}

	output, execErr := inv.executeWithTimeout(ctx, ic, def, call)
	elapsed := time.Since(start)

	result := models.ToolCallResult{
		CallID:  call.ID,
		Name:    call.Name,
		Elapsed: elapsed,
	}
	outcome := "ok"
	status := "success"

	switch {
	case execErr == nil:
		result.Output = output
	case errors.Is(execErr, context.DeadlineExceeded):
		result.Output = NewSafeError(SafeTimeout, "").JSON()
		result.IsError = true
		outcome = string(SafeTimeout)
		status = "error"
	case errors.Is(execErr, context.Canceled):
		result.Output = NewSafeError(SafeCancelled, "").JSON()
		result.IsError = true
		outcome = string(SafeCancelled)
		status = "error"
	default:
		result.Output = NewSafeError(SafeExecutionError, execErr.Error()).JSON()
		result.IsError = true
		outcome = string(SafeExecutionError)
		status = "error"
	}

	if span != nil {
		inv.tracer.RecordError(span, execErr)
		span.End()
	}

	if inv.auditor != nil {
		inv.auditor.LogInvocationEnd(ctx, inv.subject(ic), call.Name, call.ID, outcome, result.Output, elapsed)
	}
	if inv.metrics != nil {
		inv.metrics.RecordToolExecution(call.Name, status, elapsed.Seconds())
	}
	return result
}

// executeWithTimeout runs the tool handler on its own goroutine under a
// per-call deadline derived from the run context, so upstream cancellation
// still cascades. A handler that outlives the deadline has its result
// discarded; it cannot corrupt the returned state.
func (inv *Invoker) executeWithTimeout(ctx context.Context, ic *Context, def *ToolDefinition, call models.ToolCall) (json.RawMessage, error) {
	type execResult struct {
		output json.RawMessage
		err    error
	}

	toolCtx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	resultChan := make(chan execResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				select {
				case resultChan <- execResult{err: fmt.Errorf("tool panicked: %v", r)}:
				default:
				}
			}
		}()
		output, err := def.Run(toolCtx, ic, normalizeArgs(call.Args))
		// Non-blocking send: if the deadline already fired, the select
		// below has returned and nobody will read this channel.
		select {
		case resultChan <- execResult{output: output, err: err}:
		default:
			ic.Logger.Warn(ctx, "tool completed after timeout, result discarded",
				"tool_id", call.Name,
				"call_id", call.ID,
			)
		}
	}()

	select {
	case <-toolCtx.Done():
		return nil, toolCtx.Err()
	case res := <-resultChan:
		return res.output, res.err
	}
}

func (inv *Invoker) fail(ctx context.Context, ic *Context, call models.ToolCall, reason SafeErrorReason, detail string, start time.Time) models.ToolCallResult {
	elapsed := time.Since(start)
	if inv.metrics != nil {
		inv.metrics.RecordToolExecution(call.Name, "error", elapsed.Seconds())
	}
	return models.ToolCallResult{
		CallID:  call.ID,
		Name:    call.Name,
		Output:  NewSafeError(reason, detail).JSON(),
		IsError: true,
		Elapsed: elapsed,
	}
}

func (inv *Invoker) subject(ic *Context) audit.Subject {
	return audit.Subject{UserID: ic.UserID, TenantID: ic.TenantID, AgentID: ic.AgentID}
}

// checkPermissions returns an empty string when the caller may use the
// tool, or the denial reason otherwise. Every required role must be held;
// a single missing role denies the call.
func checkPermissions(def *ToolDefinition, ic *Context) string {
	for _, role := range def.Permissions.RequiredRoles {
		if !ic.HasRole(role) {
			return "missing_required_role"
		}
	}
	perms := def.Permissions
	if len(perms.AllowedTenants) > 0 && !slices.Contains(perms.AllowedTenants, ic.TenantID) {
		return "tenant_not_allowed"
	}
	return ""
}

// normalizeArgs treats an absent argument payload as an empty object so
// schemas with no required fields accept calls without arguments.
func normalizeArgs(args json.RawMessage) json.RawMessage {
	if len(args) == 0 {
		return json.RawMessage(`{}`)
	}
	return args
}
