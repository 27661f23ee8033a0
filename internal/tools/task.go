package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
)

// Spawner is the narrow capability the task tool needs: look up
// subagentType in the internal/subagent registry and run it to completion
// with description as its sole user turn. Defined here and satisfied by
// package agent's subagentSpawner, so this package never imports subagent
// (which itself imports tools for its Set type, and would otherwise close a
// tools<->subagent import cycle).
type Spawner interface {
	Spawn(ctx context.Context, subagentType, description string) (string, error)
}

// NewTask builds the task tool: looks up a registered subagent by type and
// runs it independently to completion, returning its result text as the
// tool-result payload (spec §4.3, §4.7).
func NewTask(spawner Spawner, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name: "task",
			Description: "Delegate a bounded piece of work to a subagent. subagentType selects a " +
				"registered subagent (use \"general-purpose\" for an unspecialized one); description " +
				"is the subagent's task, given as its only user turn.",
			InputSchema: schema(map[string]interface{}{
				"subagent_type": map[string]interface{}{"type": "string"},
				"description":   map[string]interface{}{"type": "string"},
			}, "subagent_type", "description"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				SubagentType string `json:"subagent_type"`
				Description  string `json:"description"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid task input: %v", err), nil
			}
			emit(emitter, events.New(events.TypeSubagentStart, map[string]interface{}{
				"subagent_type": in.SubagentType,
				"description":   in.Description,
			}))
			result, err := spawner.Spawn(ctx, in.SubagentType, in.Description)
			if err != nil {
				emit(emitter, events.New(events.TypeSubagentFinish, map[string]interface{}{
					"subagent_type": in.SubagentType,
					"error":         err.Error(),
				}))
				return fmt.Sprintf("subagent %q failed: %v", in.SubagentType, err), nil
			}
			emit(emitter, events.New(events.TypeSubagentFinish, map[string]interface{}{
				"subagent_type": in.SubagentType,
			}))
			return result, nil
		},
	}
}
