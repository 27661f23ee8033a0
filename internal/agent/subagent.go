package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/chrispangg/deepagentsdk-sub002/internal/subagent"
	"github.com/chrispangg/deepagentsdk-sub002/internal/tools"
)

// subagentSpawner implements tools.Spawner by recursively building and
// running a nested Loop (spec §4.7). It lives in package agent rather than
// package subagent specifically to avoid the import cycle subagent's own
// doc comment calls out: agent is free to import both tools and subagent,
// while subagent stays ignorant of how a descriptor actually gets run.
type subagentSpawner struct {
	parentCfg   Config
	parentState *runstate.State
	registry    *subagent.Registry
}

// Spawn looks up subagentType, builds its configuration by overriding only
// the fields the descriptor specifies (spec §4.7: "defaulting to the
// parent's" for every zero-valued field), and runs it to completion with
// description as its sole user turn, fresh todos but the parent's shared
// file table, and a 50-step budget independent of the parent's own
// MaxSteps.
func (s *subagentSpawner) Spawn(ctx context.Context, subagentType, description string) (string, error) {
	desc, ok := s.registry.Get(subagentType)
	if !ok {
		return "", fmt.Errorf("no subagent registered for type %q", subagentType)
	}

	cfg := s.parentCfg
	cfg.noNesting = true
	cfg.Subagents = nil
	cfg.IncludeGeneralPurposeAgent = false
	cfg.MaxSteps = subagent.StepBudget
	cfg.presetTools = nil

	if desc.SystemPrompt != "" {
		cfg.SystemPrompt = desc.SystemPrompt
	}
	if desc.Model != "" {
		cfg.Model = desc.Model
	}
	if desc.Approval != nil {
		cfg.Approval = desc.Approval
	}
	if desc.Output != nil {
		cfg.Output = desc.Output
	}
	if desc.Tools != nil {
		cfg.presetTools = desc.Tools.Clone()
	}

	subState := s.parentState.NewSubagentState()

	opts := GenerateOptions{
		Prompt:   description,
		MaxSteps: subagent.StepBudget,
	}

	result, err := drain(streamConfig(ctx, cfg, opts, subState))
	if err != nil {
		return "", err
	}

	if desc.Output != nil && len(result.Output) > 0 {
		return result.Text + "\n\n[Structured Output]\n" + compactJSON(result.Output), nil
	}
	return result.Text, nil
}

// compactJSON re-marshals raw into a compact single-line form; raw is
// already-valid JSON produced by the model client, so marshal errors here
// would indicate a client bug, not bad input — fall back to the raw bytes
// verbatim rather than losing the payload.
func compactJSON(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	compact, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(compact)
}

var _ tools.Spawner = (*subagentSpawner)(nil)
