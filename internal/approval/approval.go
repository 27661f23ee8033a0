// Package approval implements the C5 human-in-the-loop approval gate (spec
// §4.5): a tool-name -> decision mapping wraps designated tool calls so
// that dispatching one suspends the loop pending a caller-supplied
// decision. Grounded directly on internal/repl/approval.go's
// approve/reject command pair, generalized from a human typing "approve"
// at a REPL prompt into a programmatic Handler callback; the single-flight
// constraint (spec §5, §9) is enforced with a mutex the same way
// internal/sandbox's Registry serializes lifecycle mutations.
package approval

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/google/uuid"
)

// DeniedResult is the literal tool-result string returned in place of a
// denied tool's actual output (spec §4.5, §7).
const DeniedResult = "Tool call denied by user"

// Config maps tool names to a predicate over the call's arguments: nil (the
// zero value for an unregistered tool) auto-approves; a predicate that
// always returns true is spec's "always prompt"; any other predicate is the
// dynamic "shouldApprove(args)" case.
type Config struct {
	mu    sync.Mutex
	rules map[string]func(json.RawMessage) bool
}

// NewConfig returns an empty approval configuration (every tool
// auto-approved until a rule is added).
func NewConfig() *Config {
	return &Config{rules: make(map[string]func(json.RawMessage) bool)}
}

// Always registers tool to always require approval, regardless of args.
func (c *Config) Always(tool string) {
	c.When(tool, func(json.RawMessage) bool { return true })
}

// When registers a dynamic predicate: tool requires approval exactly when
// predicate(args) returns true.
func (c *Config) When(tool string, predicate func(json.RawMessage) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rules[tool] = predicate
}

// Clear removes any rule for tool, restoring auto-approval.
func (c *Config) Clear(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rules, tool)
}

// Gated reports whether tool has any approval rule registered at all,
// independent of what a given call's args would evaluate to — used at
// construction time to validate that a Handler is present whenever gating
// is configured (SPEC_FULL §9 Open Question 1: construction-time error,
// not a silent runtime denial).
func (c *Config) Gated(tool string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rules[tool]
	return ok
}

// GatedTools returns every tool name with a registered rule.
func (c *Config) GatedTools() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rules))
	for name := range c.rules {
		out = append(out, name)
	}
	return out
}

// Requires evaluates whether this specific call needs approval.
func (c *Config) Requires(tool string, args json.RawMessage) bool {
	c.mu.Lock()
	predicate, ok := c.rules[tool]
	c.mu.Unlock()
	if !ok || predicate == nil {
		return false
	}
	return predicate(args)
}

// Request describes one suspended tool call awaiting a decision.
type Request struct {
	ApprovalID string
	ToolCallID string
	ToolName   string
	Args       json.RawMessage
}

// Handler is the caller-supplied decision callback (spec §4.5's
// onApprovalRequest): single-consumer, one request in flight at a time.
type Handler func(ctx context.Context, req Request) (approved bool, err error)

// Gate evaluates a Config against each dispatched tool call, suspending on
// Handler and emitting the approval-requested/approval-response event pair
// only when gating actually fires (spec §4.5: "transparent to ... the
// tool's own start/finish events, which are only emitted on approval").
type Gate struct {
	Config  *Config
	Handler Handler
	Emitter events.Emitter

	mu sync.Mutex // at most one approval in flight (spec §5, §9)
}

// NewGate builds a Gate. cfg may be nil (no tool ever requires approval).
func NewGate(cfg *Config, handler Handler, emitter events.Emitter) *Gate {
	return &Gate{Config: cfg, Handler: handler, Emitter: emitter}
}

// Check runs the gate for one tool call. It returns approved=true with no
// side effects at all when the tool isn't gated for these args. When gated,
// it emits approval-requested, blocks on Handler, then emits
// approval-response with the decision.
func (g *Gate) Check(ctx context.Context, toolCallID, toolName string, args json.RawMessage) (bool, error) {
	if g.Config == nil || !g.Config.Requires(toolName, args) {
		return true, nil
	}
	if g.Handler == nil {
		return false, fmt.Errorf("approval: %s requires approval but no handler is registered", toolName)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	approvalID := uuid.NewString()
	emit(g.Emitter, events.ApprovalRequested(approvalID, toolCallID, toolName))

	approved, err := g.Handler(ctx, Request{
		ApprovalID: approvalID,
		ToolCallID: toolCallID,
		ToolName:   toolName,
		Args:       args,
	})
	if err != nil {
		return false, fmt.Errorf("approval: handler for %s: %w", toolName, err)
	}

	emit(g.Emitter, events.ApprovalResponse(approvalID, approved))
	return approved, nil
}

func emit(emitter events.Emitter, e events.Event) {
	if emitter != nil {
		emitter(e)
	}
}
