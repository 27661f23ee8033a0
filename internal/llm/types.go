// Package llm defines the model-client contract consumed by the agent loop
// (spec §6.1): an opaque text/tool-calling primitive the core is agnostic
// to the vendor of. Client.Step returns one whole model turn at once;
// tokens are not streamed. internal/llm provides two implementations —
// ScriptedClient, a deterministic test double, and AnthropicClient, which
// wraps github.com/anthropics/anthropic-sdk-go the way
// internal/repl.ConversationHandler does.
package llm

import (
	"context"
	"encoding/json"
)

// Role distinguishes a Message's origin.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockType discriminates a ContentBlock's payload.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// ContentBlock is one piece of a Message's content: text, a model-issued
// tool call, or a tool result being fed back to the model. Exactly one of
// the type-specific field groups is populated, selected by Type.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text is populated when Type == BlockText.
	Text string `json:"text,omitempty"`

	// ToolCallID/ToolName/ToolInput are populated when Type == BlockToolUse.
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	ToolInput  json.RawMessage `json:"tool_input,omitempty"`

	// ToolResultFor/ToolResultText/ToolResultIsError are populated when
	// Type == BlockToolResult.
	ToolResultFor     string `json:"tool_result_for,omitempty"`
	ToolResultText    string `json:"tool_result_text,omitempty"`
	ToolResultIsError bool   `json:"tool_result_is_error,omitempty"`
}

// TextBlock builds a plain text ContentBlock.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock builds a model-issued tool call ContentBlock.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ToolCallID: id, ToolName: name, ToolInput: input}
}

// ToolResultBlock builds a tool-result ContentBlock fed back to the model.
func ToolResultBlock(toolCallID, text string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolResultFor: toolCallID, ToolResultText: text, ToolResultIsError: isError}
}

// Message is one turn of conversation, user or assistant, made of content
// blocks (spec §3 "Message").
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserMessage builds a user-role Message from content blocks.
func UserMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleUser, Content: blocks}
}

// AssistantMessage builds an assistant-role Message from content blocks.
func AssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// Text concatenates every text block in the message.
func (m Message) Text() string {
	var out string
	for _, b := range m.Content {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolCalls returns every tool_use block in the message, in order.
func (m Message) ToolCalls() []ContentBlock {
	var out []ContentBlock
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// ToolDef is the schema half of a tool the model client exposes to the
// model; the executor half lives in package tools and is never shipped to
// the vendor API.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// OutputSchema configures structured output for a step (spec §6.5's
// `output: {schema, description?}`).
type OutputSchema struct {
	Schema      json.RawMessage
	Description string
}

// StepRequest is one model-client invocation: the full running transcript
// plus the tools and (optionally) the output schema available this step.
type StepRequest struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolDef
	Output   *OutputSchema
}

// StopReason is why a step ended.
type StopReason string

const (
	StopEndTurn StopReason = "end_turn"
	StopToolUse StopReason = "tool_use"
)

// StepResult is a single model turn: an assistant message (text and/or tool
// calls) plus why the step stopped. Exactly one of Message.ToolCalls() being
// non-empty corresponds to StopReason == StopToolUse.
type StepResult struct {
	Message    Message
	StopReason StopReason
	// Output, when the request carried an OutputSchema, is the raw
	// schema-validated structured payload the model produced.
	Output json.RawMessage
}

// Client is the model-client contract consumed by the agent loop (spec
// §6.1). A single Step call corresponds to one model turn; the loop decides
// whether to continue based on StepResult.StopReason.
type Client interface {
	Step(ctx context.Context, req StepRequest) (StepResult, error)
}
