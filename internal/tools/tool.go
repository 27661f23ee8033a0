// Package tools implements the C3 tool set (spec §4.3): one small
// Execute(ctx, args)(string, error) factory per tool, each closing over the
// shared run state, the active backend, and an event-emission callback,
// following the dependency-injection note in spec §9 rather than a global
// tool registry. The tool-factory/registry shape itself is grounded on
// lowkaihon-cli-coding-agent/tools/registry.go, the pack's closest analog
// to a set of schema-carrying tool factories, adapted into this module's
// error and naming style.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
)

// Tool pairs a model-facing schema (llm.ToolDef) with its executor.
type Tool struct {
	Def     llm.ToolDef
	Execute func(ctx context.Context, args json.RawMessage) (string, error)
}

// Set is an ordered collection of tools, registered once at agent
// construction and looked up by name on every dispatched tool call.
type Set struct {
	order  []string
	byName map[string]Tool
}

// NewSet returns an empty tool set.
func NewSet() *Set {
	return &Set{byName: make(map[string]Tool)}
}

// Add registers t, replacing any previously registered tool of the same
// name in place (preserving its position in Definitions order).
func (s *Set) Add(t Tool) {
	if _, exists := s.byName[t.Def.Name]; !exists {
		s.order = append(s.order, t.Def.Name)
	}
	s.byName[t.Def.Name] = t
}

// Remove drops a tool by name, if present.
func (s *Set) Remove(name string) {
	if _, exists := s.byName[name]; !exists {
		return
	}
	delete(s.byName, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Get looks up a tool by name.
func (s *Set) Get(name string) (Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Definitions returns every tool's schema in registration order, the shape
// handed to the model client per step.
func (s *Set) Definitions() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(s.order))
	for _, name := range s.order {
		defs = append(defs, s.byName[name].Def)
	}
	return defs
}

// Clone returns a shallow copy whose Add/Remove calls don't affect s —
// used when building a subagent's tool set from the parent's (spec §4.7).
func (s *Set) Clone() *Set {
	clone := NewSet()
	for _, name := range s.order {
		clone.Add(s.byName[name])
	}
	return clone
}

// Execute dispatches a model-issued tool call by name. An unknown tool name
// is a construction-time/runtime bug (the model was offered a tool this set
// doesn't actually have), surfaced as a Go error so the loop can escalate it
// rather than silently returning a tool result.
func (s *Set) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t, ok := s.byName[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.Execute(ctx, args)
}

func schema(properties map[string]interface{}, required ...string) json.RawMessage {
	obj := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		obj["required"] = required
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return raw
}

// mustUnmarshal decodes args into v, returning a ValidationFailure-style
// error string rather than panicking (spec §7): tool-local failures never
// escape the tool layer as thrown errors.
func mustUnmarshal(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, v)
}

// emit is a convenience no-op-safe wrapper so factories can be handed a nil
// Emitter in tests without guarding every call site.
func emit(emitter events.Emitter, e events.Event) {
	if emitter != nil {
		emitter(e)
	}
}
