// Package gateway is the HTTP boundary of the copilot: synchronous and
// streaming agent runs, agent and allowlist listings, and the
// pending-action confirmation endpoints.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/copilot/internal/actions"
	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/internal/audit"
	"github.com/haasonsaas/copilot/internal/observability"
	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

const (
	// DefaultRunTimeout bounds a run when the request carries no timeoutMs.
	DefaultRunTimeout = 60 * time.Second

	// MaxRunTimeout caps client-requested timeouts.
	MaxRunTimeout = 5 * time.Minute
)

// Service executes agent runs and confirmation decisions against the
// injected registries and ledger. It owns no transport concerns.
type Service struct {
	agents    *agent.AgentRegistry
	tools     *agent.ToolRegistry
	invoker   *agent.Invoker
	ledger    *actions.Ledger
	validator *schema.Validator

	auditor *audit.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
	logger  *observability.Logger

	// fallbackToAll resolves agents without an allowlist to the full tool
	// set. Off by default; allowlists fail safe.
	fallbackToAll bool
}

// ServiceConfig wires the service. Auditor, metrics, tracer, and logger
// may be nil.
type ServiceConfig struct {
	Agents    *agent.AgentRegistry
	Tools     *agent.ToolRegistry
	Invoker   *agent.Invoker
	Ledger    *actions.Ledger
	Validator *schema.Validator

	Auditor *audit.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Logger  *observability.Logger

	FallbackToAll bool
}

// NewService creates the service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		agents:        cfg.Agents,
		tools:         cfg.Tools,
		invoker:       cfg.Invoker,
		ledger:        cfg.Ledger,
		validator:     cfg.Validator,
		auditor:       cfg.Auditor,
		metrics:       cfg.Metrics,
		tracer:        cfg.Tracer,
		logger:        cfg.Logger,
		fallbackToAll: cfg.FallbackToAll,
	}
	if s.validator == nil {
		s.validator = schema.NewValidator()
	}
	if s.logger == nil {
		s.logger = observability.NewLogger(observability.LogConfig{})
	}
	return s
}

// Run executes one agent run and returns the boundary envelope. Events are
// emitted to sink throughout; the terminal result or error event plus done
// are always emitted, so streaming callers can rely on the sequence.
func (s *Service) Run(ctx context.Context, id Identity, req models.RunRequest, sink agent.EventSink) models.RunResponse {
	started := time.Now()

	// Every run event is mirrored to the debug log alongside whatever sink
	// the transport provided. MultiSink tolerates a nil transport sink.
	sink = agent.NewMultiSink(sink, agent.NewCallbackSink(func(ctx context.Context, e models.RunEvent) {
		s.logger.Debug(ctx, "run event", "agent_id", req.AgentID, "event", string(e.Type))
	}))

	resp := s.run(ctx, id, req, sink)
	resp.ExecutionTimeMs = time.Since(started).Milliseconds()

	if resp.OK {
		sink.Emit(ctx, models.ResultEvent(resp.AgentID, resp.Result, time.Since(started)))
	} else {
		sink.Emit(ctx, models.ErrorEvent(resp.Error, resp.Code))
	}
	sink.Emit(ctx, models.DoneEvent())

	status := "ok"
	if !resp.OK {
		status = string(resp.Code)
	}
	if s.metrics != nil {
		s.metrics.RecordAgentRun(req.AgentID, status, time.Since(started).Seconds())
	}
	if s.auditor != nil {
		var runErr error
		if !resp.OK {
			runErr = errors.New(resp.Error)
		}
		s.auditor.LogAgentRun(ctx, audit.Subject{UserID: id.UserID, TenantID: id.TenantID, AgentID: req.AgentID}, status, time.Since(started), runErr)
	}
	return resp
}

func (s *Service) run(ctx context.Context, id Identity, req models.RunRequest, sink agent.EventSink) models.RunResponse {
	if req.AgentID == "" {
		return failResponse("", models.RunErrValidation, "agentId is required", nil)
	}

	def, err := s.agents.Get(req.AgentID)
	if err != nil {
		return failResponse(req.AgentID, models.RunErrAgentNotFound, "agent not found: "+req.AgentID, nil)
	}

	input := req.Input
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	if len(def.InputSchema) > 0 {
		if err := s.validator.Validate(def.InputSchema, input); err != nil {
			var ve *schema.ValidationError
			var details json.RawMessage
			if errors.As(err, &ve) {
				details, _ = json.Marshal(ve.Issues)
			}
			return failResponse(req.AgentID, models.RunErrValidation, "input validation failed", details)
		}
	}

	timeout := DefaultRunTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
		if timeout > MaxRunTimeout {
			timeout = MaxRunTimeout
		}
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.tracer != nil {
		var span trace.Span
		runCtx, span = s.tracer.TraceAgentRun(runCtx, req.AgentID)
		defer span.End()
	}

	tools, err := s.tools.ToolsForAgent(req.AgentID, s.fallbackToAll)
	if err != nil {
		s.logger.Error(ctx, "allowlist resolution failed", "agent_id", req.AgentID, "error", err.Error())
		return failResponse(req.AgentID, models.RunErrUnknown, "agent run failed", nil)
	}

	ic := &agent.Context{
		UserID:    id.UserID,
		TenantID:  id.TenantID,
		Roles:     id.Roles,
		RequestID: observability.GetRequestID(ctx),
		AgentID:   req.AgentID,
		Sink:      sink,
		Logger:    s.logger,
		Tools:     tools,
	}
	ic.Normalize()

	output, err := def.Run(runCtx, ic, input)
	if err != nil {
		return s.classifyRunError(req.AgentID, runCtx, err)
	}

	output = s.registerProposedActions(ctx, id, req.AgentID, output)

	return models.RunResponse{OK: true, AgentID: req.AgentID, Result: output}
}

// classifyRunError maps internal failures onto the closed boundary code
// set without leaking internals.
func (s *Service) classifyRunError(agentID string, runCtx context.Context, err error) models.RunResponse {
	var loopErr *agent.LoopError
	var extractErr *agent.OutputExtractionError
	var validationErr *schema.ValidationError

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return failResponse(agentID, models.RunErrTimeout, "agent run timed out", nil)
	case errors.Is(err, context.Canceled):
		return failResponse(agentID, models.RunErrUnknown, "agent run cancelled", nil)
	case errors.Is(err, agent.ErrMaxSteps):
		return failResponse(agentID, models.RunErrModel, "agent exhausted its step budget", nil)
	case errors.As(err, &loopErr), errors.As(err, &extractErr):
		return failResponse(agentID, models.RunErrModel, "model invocation failed", nil)
	case errors.As(err, &validationErr):
		return failResponse(agentID, models.RunErrValidation, "output validation failed", nil)
	default:
		return failResponse(agentID, models.RunErrUnknown, "agent run failed", nil)
	}
}

// registerProposedActions records any proposedActions in the output so
// they can later be confirmed or cancelled. The ledger mints its own ids,
// so the returned output carries each proposal rewritten with the id the
// confirmation endpoints will actually accept.
func (s *Service) registerProposedActions(ctx context.Context, id Identity, agentID string, output json.RawMessage) json.RawMessage {
	if s.ledger == nil {
		return output
	}
	var doc struct {
		ProposedActions []models.ProposedAction `json:"proposedActions"`
	}
	if err := json.Unmarshal(output, &doc); err != nil || len(doc.ProposedActions) == 0 {
		return output
	}
	registered := s.ledger.RegisterMany(ctx, audit.Subject{UserID: id.UserID, TenantID: id.TenantID, AgentID: agentID}, doc.ProposedActions)

	// Patch the minted ids back into the raw output without disturbing any
	// other fields the agent produced.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(output, &raw); err != nil {
		return output
	}
	var actionsArr []map[string]any
	if err := json.Unmarshal(raw["proposedActions"], &actionsArr); err != nil {
		return output
	}
	for i := range actionsArr {
		if i < len(registered) {
			actionsArr[i]["actionId"] = registered[i].ActionID
		}
	}
	patchedActions, err := json.Marshal(actionsArr)
	if err != nil {
		return output
	}
	raw["proposedActions"] = patchedActions
	patched, err := json.Marshal(raw)
	if err != nil {
		return output
	}
	return patched
}

// Agents lists registered agent metadata.
func (s *Service) Agents() []models.AgentMetadata {
	return s.agents.ListMetadata()
}

// AgentToolsView pairs an agent's effective allowlist with the full tool
// catalog so clients can render an allowlist editor.
type AgentToolsView struct {
	AgentID        string           `json:"agentId"`
	AllowedTools   []models.ToolRef `json:"allowedTools"`
	AvailableTools []models.ToolRef `json:"availableTools"`
}

// AgentTools resolves the allowed and available tool sets for an agent.
func (s *Service) AgentTools(agentID string) (AgentToolsView, error) {
	if !s.agents.Has(agentID) {
		return AgentToolsView{}, &agent.AgentNotFoundError{ID: agentID}
	}
	defs, err := s.tools.ToolsForAgent(agentID, s.fallbackToAll)
	if err != nil {
		return AgentToolsView{}, err
	}
	view := AgentToolsView{
		AgentID:        agentID,
		AllowedTools:   make([]models.ToolRef, 0, len(defs)),
		AvailableTools: make([]models.ToolRef, 0),
	}
	for _, def := range defs {
		view.AllowedTools = append(view.AllowedTools, def.Ref())
	}
	for _, d := range s.tools.List() {
		view.AvailableTools = append(view.AvailableTools, models.ToolRef{ID: d.ID, Name: d.Name})
	}
	return view, nil
}

// SetAgentTools replaces an agent's allowlist.
func (s *Service) SetAgentTools(agentID string, toolIDs []string) error {
	if !s.agents.Has(agentID) {
		return &agent.AgentNotFoundError{ID: agentID}
	}
	return s.tools.SetAllowlist(agentID, toolIDs)
}

// ConfirmOutcome is the boundary view of a confirmation decision.
type ConfirmOutcome struct {
	ActionID   string                     `json:"actionId"`
	Status     models.PendingActionStatus `json:"status"`
	Result     json.RawMessage            `json:"result,omitempty"`
	Error      json.RawMessage            `json:"error,omitempty"`
	ExecutedAt *time.Time                 `json:"executedAt,omitempty"`
}

// ConfirmAction claims the pending action and executes its tool with the
// confirmation gate bypassed. Execution failure releases the claim so the
// user may retry.
func (s *Service) ConfirmAction(ctx context.Context, id Identity, actionID string) (ConfirmOutcome, error) {
	entry, err := s.ledger.Claim(ctx, actionID, id.UserID, id.TenantID)
	if err != nil {
		return ConfirmOutcome{}, err
	}

	ic := &agent.Context{
		UserID:             id.UserID,
		TenantID:           id.TenantID,
		Roles:              id.Roles,
		RequestID:          observability.GetRequestID(ctx),
		AgentID:            entry.AgentID,
		Logger:             s.logger,
		BypassConfirmation: true,
	}
	ic.Normalize()

	res := s.invoker.Invoke(ctx, ic, models.ToolCall{
		ID:   "confirm-" + actionID,
		Name: entry.ToolID,
		Args: entry.Args,
	})
	if res.IsError {
		if se, ok := agent.ParseSafeError(res.Output); ok {
			s.logger.Warn(ctx, "confirmed action failed",
				"action_id", actionID, "tool_id", entry.ToolID, "reason", string(se.Reason))
		}
		s.ledger.Release(actionID)
		return ConfirmOutcome{
			ActionID: actionID,
			Status:   models.ActionStatusProposed,
			Error:    res.Output,
		}, nil
	}

	executed, err := s.ledger.MarkExecuted(ctx, actionID, res.Output)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	return ConfirmOutcome{
		ActionID:   actionID,
		Status:     models.ActionStatusExecuted,
		Result:     res.Output,
		ExecutedAt: executed.ExecutedAt,
	}, nil
}

// CancelAction cancels a pending action.
func (s *Service) CancelAction(ctx context.Context, id Identity, actionID string) (ConfirmOutcome, error) {
	entry, err := s.ledger.Cancel(ctx, actionID, id.UserID, id.TenantID)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	return ConfirmOutcome{ActionID: entry.ActionID, Status: entry.Status}, nil
}

func failResponse(agentID string, code models.RunErrorCode, msg string, details json.RawMessage) models.RunResponse {
	return models.RunResponse{
		OK:      false,
		AgentID: agentID,
		Error:   msg,
		Code:    code,
		Details: details,
	}
}
