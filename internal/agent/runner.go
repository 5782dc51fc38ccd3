package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/haasonsaas/copilot/internal/schema"
	"github.com/haasonsaas/copilot/pkg/models"
)

// minActionIDLength is the shortest action id accepted from model output.
// Shorter ids are assumed hallucinated and replaced.
const minActionIDLength = 6

// PromptBuilder renders the user prompt for an agent from its validated
// input payload.
type PromptBuilder func(input json.RawMessage) (string, error)

// RunnerConfig is the per-agent template configuration.
type RunnerConfig struct {
	// AgentID stamps events, audit entries, and errors.
	AgentID string

	// SystemPrompt is the agent's standing instruction.
	SystemPrompt string

	// BuildPrompt renders the user prompt. Nil uses the raw input JSON.
	BuildPrompt PromptBuilder

	// OutputSchema, when set, demands structured output: the final model
	// text must contain a JSON object, which becomes the run output.
	OutputSchema json.RawMessage

	// StrictOutput re-validates the extracted object against
	// OutputSchema and fails the run when it does not conform.
	StrictOutput bool

	// GroundingTool, when set, requires at least one successful call to
	// this tool before the answer is accepted.
	GroundingTool string

	// EnsureActionIDs post-processes a proposedActions array in the
	// output: missing or implausibly short action ids are replaced with
	// synthesized ones and requiresConfirmation is forced on.
	EnsureActionIDs bool

	// Loop configures the underlying tool-calling loop.
	Loop LoopConfig
}

// RunOutput is the full outcome of one templated agent run.
type RunOutput struct {
	// Output is the structured result (or a JSON string of the raw text
	// for agents without an output schema).
	Output json.RawMessage

	// Content is the model's final text.
	Content string

	// ToolResults are all tool call results in execution order.
	ToolResults []models.ToolCallResult

	// Steps is the number of model invocations made.
	Steps int
}

// OutputExtractionError indicates the model's final text did not yield a
// conforming structured output.
type OutputExtractionError struct {
	AgentID string
	Cause   error
}

func (e *OutputExtractionError) Error() string {
	return fmt.Sprintf("agent %q produced unusable structured output: %v", e.AgentID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *OutputExtractionError) Unwrap() error {
	return e.Cause
}

// Runner is the shared agent template: build the prompt, drive the model
// (with the tool loop when the agent has tools), extract and check the
// structured output, and apply the agent's specialized guarantees.
type Runner struct {
	client    ModelClient
	invoker   *Invoker
	validator *schema.Validator
}

// NewRunner creates a runner around a model client and invoker.
func NewRunner(client ModelClient, invoker *Invoker, validator *schema.Validator) *Runner {
	return &Runner{client: client, invoker: invoker, validator: validator}
}

// Run executes one templated agent run.
func (r *Runner) Run(ctx context.Context, ic *Context, cfg RunnerConfig, input json.RawMessage) (*RunOutput, error) {
	if r.client == nil {
		return nil, ErrNoModelClient
	}
	ic.Normalize()
	if ic.AgentID == "" {
		ic.AgentID = cfg.AgentID
	}

	prompt, err := r.buildPrompt(cfg, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	messages := []Message{
		{Role: RoleSystem, Content: cfg.SystemPrompt},
		{Role: RoleUser, Content: prompt},
	}

	out := &RunOutput{}

	if len(ic.Tools) > 0 {
		loop := NewLoop(r.client, r.invoker, cfg.Loop)
		loopResult, err := loop.Run(ctx, ic, messages)
		if err != nil {
			return nil, err
		}
		out.Content = loopResult.Content
		out.ToolResults = loopResult.ToolResults
		out.Steps = loopResult.Steps

		if cfg.GroundingTool != "" && !loopResult.CalledTool(cfg.GroundingTool) {
			return nil, &GroundingRequiredError{AgentID: cfg.AgentID, ToolID: cfg.GroundingTool}
		}
	} else {
		ic.Sink.Emit(ctx, models.StatusEvent(models.RunPhaseThinking, 1))
		completion, err := r.client.Complete(ctx, CompletionRequest{
			Model:          cfg.Loop.Model,
			Messages:       messages,
			ResponseSchema: cfg.OutputSchema,
			MaxTokens:      cfg.Loop.MaxTokens,
			Temperature:    cfg.Loop.Temperature,
		})
		if err != nil {
			return nil, &LoopError{Phase: PhaseComplete, Step: 1, Cause: err}
		}
		out.Content = completion.Content
		out.Steps = 1
	}

	if cfg.OutputSchema == nil {
		raw, err := json.Marshal(out.Content)
		if err != nil {
			return nil, fmt.Errorf("marshal output: %w", err)
		}
		out.Output = raw
		return out, nil
	}

	extracted, err := ExtractJSON(out.Content)
	if err != nil {
		return nil, r.extractionError(cfg, out, err)
	}

	if cfg.StrictOutput {
		if err := r.validator.Validate(cfg.OutputSchema, extracted); err != nil {
			return nil, r.extractionError(cfg, out, err)
		}
	}

	if cfg.EnsureActionIDs {
		extracted, err = ensureActionIDs(extracted)
		if err != nil {
			return nil, r.extractionError(cfg, out, err)
		}
	}

	out.Output = extracted
	return out, nil
}

// extractionError tags an output-extraction failure with the run phase and
// the step count at which it occurred.
func (r *Runner) extractionError(cfg RunnerConfig, out *RunOutput, cause error) error {
	return &LoopError{
		Phase: PhaseExtract,
		Step:  out.Steps,
		Cause: &OutputExtractionError{AgentID: cfg.AgentID, Cause: cause},
	}
}

func (r *Runner) buildPrompt(cfg RunnerConfig, input json.RawMessage) (string, error) {
	if cfg.BuildPrompt != nil {
		return cfg.BuildPrompt(input)
	}
	return string(input), nil
}

// ensureActionIDs normalizes the proposedActions array in structured
// output: every action gets a plausible id and requiresConfirmation set.
func ensureActionIDs(output json.RawMessage) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil, err
	}

	rawActions, ok := doc["proposedActions"].([]any)
	if !ok {
		return output, nil
	}

	for _, entry := range rawActions {
		action, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := action["actionId"].(string)
		if len(id) < minActionIDLength {
			action["actionId"] = "action-" + uuid.NewString()[:8]
		}
		action["requiresConfirmation"] = true
	}

	return json.Marshal(doc)
}
