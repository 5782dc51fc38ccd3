package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/haasonsaas/copilot/pkg/models"
)

// DefaultMaxSteps bounds the number of model invocations in one run.
const DefaultMaxSteps = 6

// LoopConfig configures the tool-calling loop.
type LoopConfig struct {
	// Model is the provider model identifier.
	Model string

	// MaxSteps caps model invocations per run. Default: DefaultMaxSteps.
	MaxSteps int

	MaxTokens   int
	Temperature float32
}

func sanitizeLoopConfig(config LoopConfig) LoopConfig {
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	return config
}

// LoopResult is the outcome of a completed loop.
type LoopResult struct {
	// Content is the model's final text.
	Content string

	// Messages is the full transcript including tool results.
	Messages []Message

	// Steps is the number of model invocations made.
	Steps int

	// ToolResults are all tool call results in execution order.
	ToolResults []models.ToolCallResult
}

// CalledTool reports whether the loop executed a successful call to the
// given tool.
func (r *LoopResult) CalledTool(toolID string) bool {
	for _, tr := range r.ToolResults {
		if tr.Name == toolID && !tr.IsError {
			return true
		}
	}
	return false
}

// Loop drives the model/tool conversation: invoke the model, execute any
// requested tool calls strictly in order, feed the results back, and
// repeat until the model answers in text or the step budget runs out.
type Loop struct {
	client  ModelClient
	invoker *Invoker
	config  LoopConfig
}

// NewLoop creates a loop. Zero config fields get defaults.
func NewLoop(client ModelClient, invoker *Invoker, config LoopConfig) *Loop {
	return &Loop{
		client:  client,
		invoker: invoker,
		config:  sanitizeLoopConfig(config),
	}
}

// Run executes the loop until the model produces a text answer or the
// step budget is exhausted. Model failures abort the run with a
// LoopError; tool failures do not, they are reported back to the model
// as safe error payloads.
func (l *Loop) Run(ctx context.Context, ic *Context, messages []Message) (*LoopResult, error) {
	if l.client == nil {
		return nil, ErrNoModelClient
	}
	ic.Normalize()

	descriptors := make([]models.ToolDescriptor, 0, len(ic.Tools))
	for _, def := range ic.Tools {
		descriptors = append(descriptors, def.Descriptor())
	}

	transcript := append([]Message(nil), messages...)
	result := &LoopResult{}
	var lastContent string

	for step := 1; step <= l.config.MaxSteps; step++ {
		result.Steps = step
		ic.Sink.Emit(ctx, models.StatusEvent(models.RunPhaseThinking, step))

		completion, err := l.client.Complete(ctx, CompletionRequest{
			Model:       l.config.Model,
			Messages:    transcript,
			Tools:       descriptors,
			MaxTokens:   l.config.MaxTokens,
			Temperature: l.config.Temperature,
		})
		if err != nil {
			return nil, &LoopError{Phase: PhaseComplete, Step: step, Cause: err}
		}

		lastContent = completion.Content
		transcript = append(transcript, Message{
			Role:      RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})

		if len(completion.ToolCalls) == 0 {
			result.Content = completion.Content
			result.Messages = transcript
			return result, nil
		}

		ic.Sink.Emit(ctx, models.StatusEvent(models.RunPhaseRunning, step))

		// Tool calls run one at a time, in the order the model asked.
		// The final step's batch runs too, even though its results can
		// no longer be fed back.
		for _, call := range completion.ToolCalls {
			if call.ID == "" {
				call.ID = "call-" + uuid.NewString()[:8]
			}

			ic.Sink.Emit(ctx, models.ToolEvent(call.Name, call.ID, models.ToolStatusStarted))
			res := l.invoker.Invoke(ctx, ic, call)
			if res.IsError {
				ic.Sink.Emit(ctx, models.ToolEvent(call.Name, call.ID, models.ToolStatusFailed))
			} else {
				ic.Sink.Emit(ctx, models.ToolEvent(call.Name, call.ID, models.ToolStatusCompleted))
			}

			result.ToolResults = append(result.ToolResults, res)
			transcript = append(transcript, Message{
				Role:     RoleTool,
				Content:  string(res.Output),
				CallID:   res.CallID,
				ToolName: res.Name,
			})

			// A cancelled run stops immediately; the model never sees
			// the partial results.
			if ctx.Err() != nil {
				return nil, &LoopError{Phase: PhaseExecuteTools, Step: step, Cause: ctx.Err()}
			}
		}
	}

	// Budget exhausted with the model still requesting tools. Whatever
	// text accompanied the final request is the best available answer;
	// with none at all the run has nothing to extract from.
	if lastContent == "" {
		return nil, ErrMaxSteps
	}
	result.Content = lastContent
	result.Messages = transcript
	return result, nil
}
