// Package events defines the wire-stable event taxonomy an agent run emits
// (spec §6.3), grounded on internal/events.AgentEvent's
// type-discriminator-plus-data-map shape, generalized from issue-tracking
// execution events to agent-loop run events.
package events

import "time"

// Type discriminates an Event's payload (spec §6.3).
type Type string

const (
	TypeUserMessage       Type = "user-message"
	TypeText              Type = "text"
	TypeTextSegment       Type = "text-segment"
	TypeStepStart         Type = "step-start"
	TypeStepFinish        Type = "step-finish"
	TypeToolCall          Type = "tool-call"
	TypeToolResult        Type = "tool-result"
	TypeTodosChanged      Type = "todos-changed"
	TypeFileWriteStart    Type = "file-write-start"
	TypeFileWritten       Type = "file-written"
	TypeFileEdited        Type = "file-edited"
	TypeFileRead          Type = "file-read"
	TypeLs                Type = "ls"
	TypeGlob              Type = "glob"
	TypeGrep              Type = "grep"
	TypeExecuteStart      Type = "execute-start"
	TypeExecuteFinish     Type = "execute-finish"
	TypeWebSearchStart    Type = "web-search-start"
	TypeWebSearchFinish   Type = "web-search-finish"
	TypeHTTPRequestStart  Type = "http-request-start"
	TypeHTTPRequestFinish Type = "http-request-finish"
	TypeFetchURLStart     Type = "fetch-url-start"
	TypeFetchURLFinish    Type = "fetch-url-finish"
	TypeSubagentStart     Type = "subagent-start"
	TypeSubagentFinish    Type = "subagent-finish"
	TypeApprovalRequested Type = "approval-requested"
	TypeApprovalResponse  Type = "approval-response"
	TypeCheckpointSaved   Type = "checkpoint-saved"
	TypeCheckpointLoaded  Type = "checkpoint-loaded"
	TypeDone              Type = "done"
	TypeError             Type = "error"
)

// Event is one entry in the agent run's event stream: a type discriminator,
// a timestamp, and structured, JSON-serializable, type-specific data.
// Consumers must tolerate additive Data fields (spec §6.3).
type Event struct {
	Type      Type                   `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// New builds an Event of the given type carrying data, stamped with the
// current time.
func New(typ Type, data map[string]interface{}) Event {
	return Event{Type: typ, Timestamp: time.Now(), Data: data}
}

// Emitter is the callback tools and the loop use to publish events (spec
// §9's dependency-injection note: "tools receive ... an event-emission
// callback" rather than a shared global bus).
type Emitter func(Event)

// Sink collects every event it's given, in order; useful for tests that
// want to assert on the full emitted sequence.
type Sink struct {
	events []Event
}

// NewSink returns an empty event sink.
func NewSink() *Sink { return &Sink{} }

// Emit implements Emitter.
func (s *Sink) Emit(e Event) { s.events = append(s.events, e) }

// Events returns every event collected so far, in order.
func (s *Sink) Events() []Event { return s.events }

// OfType filters the collected events by type.
func (s *Sink) OfType(t Type) []Event {
	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Convenience constructors for the most frequently emitted event shapes;
// less common ones are built inline with New where they occur.

func ToolCall(toolCallID, name string, input interface{}) Event {
	return New(TypeToolCall, map[string]interface{}{"tool_call_id": toolCallID, "name": name, "input": input})
}

func ToolResult(toolCallID, result string, isError bool) Event {
	return New(TypeToolResult, map[string]interface{}{"tool_call_id": toolCallID, "result": result, "is_error": isError})
}

func StepStart(step int) Event {
	return New(TypeStepStart, map[string]interface{}{"step": step})
}

func StepFinish(step int) Event {
	return New(TypeStepFinish, map[string]interface{}{"step": step})
}

func ApprovalRequested(approvalID, toolCallID, toolName string) Event {
	return New(TypeApprovalRequested, map[string]interface{}{
		"approval_id":  approvalID,
		"tool_call_id": toolCallID,
		"tool_name":    toolName,
	})
}

func ApprovalResponse(approvalID string, approved bool) Event {
	return New(TypeApprovalResponse, map[string]interface{}{"approval_id": approvalID, "approved": approved})
}

func Done(text string) Event {
	return New(TypeDone, map[string]interface{}{"text": text})
}

func Error(message string) Event {
	return New(TypeError, map[string]interface{}{"message": message})
}
