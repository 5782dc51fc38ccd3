package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/copilot/internal/agent"
	"github.com/haasonsaas/copilot/pkg/models"
)

const anthropicDefaultMaxTokens = 4096

// AnthropicClient implements agent.ModelClient on the Anthropic Messages
// API.
type AnthropicClient struct {
	client     anthropic.Client
	configured bool
	maxRetries int
	retryDelay time.Duration
}

var _ agent.ModelClient = (*AnthropicClient)(nil)

// NewAnthropic creates the client. An empty API key defers the failure to
// the first Complete call.
func NewAnthropic(cfg Config) *AnthropicClient {
	cfg = cfg.normalized()
	c := &AnthropicClient{
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
	if cfg.APIKey == "" {
		return c
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	c.client = anthropic.NewClient(opts...)
	c.configured = true
	return c
}

// Name implements agent.ModelClient.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete implements agent.ModelClient.
func (c *AnthropicClient) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.Completion, error) {
	if !c.configured {
		return nil, fmt.Errorf("anthropic api key not configured")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: anthropicDefaultMaxTokens,
		Messages:  convertAnthropicMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Temperature))
	}
	if system := collectSystem(req.Messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		tools, err := convertAnthropicTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}

	var msg *anthropic.Message
	err := withRetries(ctx, c.maxRetries, c.retryDelay, func() error {
		var callErr error
		msg, callErr = c.client.Messages.New(ctx, params)
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	completion := &agent.Completion{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			completion.Content += variant.Text
		case anthropic.ToolUseBlock:
			completion.ToolCalls = append(completion.ToolCalls, models.ToolCall{
				ID:   variant.ID,
				Name: variant.Name,
				Args: json.RawMessage(variant.Input),
			})
		}
	}
	return completion, nil
}

// collectSystem joins system messages; Anthropic carries them outside the
// messages array.
func collectSystem(messages []agent.Message) string {
	var system string
	for _, msg := range messages {
		if msg.Role != agent.RoleSystem || msg.Content == "" {
			continue
		}
		if system != "" {
			system += "\n\n"
		}
		system += msg.Content
	}
	return system
}

func convertAnthropicMessages(messages []agent.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam
	for _, msg := range messages {
		switch msg.Role {
		case agent.RoleSystem:
			continue
		case agent.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, tc.Args, tc.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		case agent.RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.CallID, msg.Content, false),
			))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return out
}

func convertAnthropicTools(tools []models.ToolDescriptor) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("invalid tool schema for %s: %w", t.ID, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.ID)
		if param.OfTool == nil {
			return nil, fmt.Errorf("invalid tool schema for %s", t.ID)
		}
		param.OfTool.Description = anthropic.String(t.Description)
		out = append(out, param)
	}
	return out, nil
}
