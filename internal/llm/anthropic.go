package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient wraps github.com/anthropics/anthropic-sdk-go as a Client,
// grounded directly on internal/repl.ConversationHandler's
// history-as-[]anthropic.MessageParam / Messages.New / StopReason /
// ToolUseBlock / NewToolResultBlock pattern — generalized from a single
// long-lived conversation handler into a stateless per-call Step, since the
// agent loop (not the client) owns the running transcript.
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient builds a client from an API key, the same
// option.WithAPIKey construction ConversationHandler uses.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockToolUse:
				var input interface{}
				_ = json.Unmarshal(b.ToolInput, &input)
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolCallID, input, b.ToolName))
			case BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolResultFor, b.ToolResultText, b.ToolResultIsError))
			}
		}
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func toAnthropicTools(tools []ToolDef) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var raw map[string]interface{}
		_ = json.Unmarshal(t.InputSchema, &raw)

		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := raw["properties"].(map[string]interface{}); ok {
			schema.Properties = props
		}
		if req, ok := raw["required"].([]interface{}); ok {
			for _, r := range req {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}

		param := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: schema,
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &param})
	}
	return out
}

// Step sends the full transcript plus tool definitions as a single
// Messages.New call and translates the response back into a StepResult.
func (c *AnthropicClient) Step(ctx context.Context, req StepRequest) (StepResult, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: 4096,
		Messages:  toAnthropicMessages(req.Messages),
		Tools:     toAnthropicTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return StepResult{}, fmt.Errorf("anthropic messages.new: %w", err)
	}

	var blocks []ContentBlock
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, TextBlock(variant.Text))
		case anthropic.ToolUseBlock:
			input, marshalErr := json.Marshal(variant.Input)
			if marshalErr != nil {
				input = json.RawMessage("{}")
			}
			blocks = append(blocks, ToolUseBlock(variant.ID, variant.Name, input))
		}
	}

	stop := StopEndTurn
	if string(resp.StopReason) == "tool_use" {
		stop = StopToolUse
	}

	return StepResult{
		Message:    AssistantMessage(blocks...),
		StopReason: stop,
	}, nil
}

var _ Client = (*AnthropicClient)(nil)
