// Package subagent holds the C7 subagent registry: descriptors for bounded
// nested agent runs, looked up by name when the task tool fires. It
// deliberately knows nothing about how to actually run a subagent (that
// would require importing package agent, which imports package tools,
// which defines the task tool's Spawner interface against this package's
// shape by duck typing rather than a direct import, exactly as
// internal/tools.Spawner's doc comment explains) — spawning itself is
// implemented by agent.Loop, which imports this package for lookups only.
package subagent

import (
	"sync"

	"github.com/chrispangg/deepagentsdk-sub002/internal/approval"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/tools"
)

// GeneralPurposeType is the built-in subagent name available whenever a
// registry is constructed with IncludeGeneralPurpose (spec §4.7), a
// minimally-specialized agent that inherits everything from its parent.
const GeneralPurposeType = "general-purpose"

// StepBudget is the fixed step budget every subagent run is bounded by
// (spec §4.7), independent of the parent's own MaxSteps.
const StepBudget = 50

// Descriptor configures one registered subagent type (spec §3 "SubAgent
// descriptor"). A zero-valued field means "default to whatever the parent
// agent.Loop is itself configured with" for that field, per spec §4.7.
type Descriptor struct {
	Name         string
	Description  string
	SystemPrompt string

	// Tools, when non-nil, replaces the parent's tool set for this
	// subagent (spec §4.7 "tool set (defaulting to the parent's)").
	Tools *tools.Set

	// Model, when non-empty, overrides the parent's model for this run.
	Model string

	// Approval, when non-nil, overrides the parent's approval config.
	Approval *approval.Config

	// Output, when non-nil, configures structured output for this
	// subagent's final assistant message (spec §4.7, §8 scenario 6).
	Output *llm.OutputSchema
}

// Registry looks up Descriptors by subagent type name (the task tool's
// subagent_type argument), mirroring the id-keyed, mutex-guarded shape
// every other lifecycle table in this rewrite uses (sandbox.Registry,
// runstate.FileTable).
type Registry struct {
	mu   sync.RWMutex
	byID map[string]Descriptor
}

// NewRegistry returns an empty registry. If includeGeneralPurpose is true,
// a minimal "general-purpose" descriptor (empty system prompt, inherits
// everything from the parent) is pre-registered, matching spec §4.7's
// "including a built-in general-purpose agent when enabled."
func NewRegistry(includeGeneralPurpose bool) *Registry {
	r := &Registry{byID: make(map[string]Descriptor)}
	if includeGeneralPurpose {
		r.Register(Descriptor{
			Name:        GeneralPurposeType,
			Description: "General-purpose agent for researching questions, exploring the filesystem, and executing multi-step tasks without any special tools beyond what the parent agent has.",
		})
	}
	return r
}

// Register adds or replaces a descriptor under d.Name.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.Name] = d
}

// Get looks up a descriptor by subagent type name.
func (r *Registry) Get(subagentType string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[subagentType]
	return d, ok
}

// List returns every registered descriptor's name, in no particular order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byID))
	for name := range r.byID {
		out = append(out, name)
	}
	return out
}
