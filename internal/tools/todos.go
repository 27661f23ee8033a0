package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

type writeTodosArgs struct {
	Todos []runstate.Todo `json:"todos"`
	Merge bool            `json:"merge"`
}

// NewWriteTodos builds the write_todos tool: replaces or merges-by-id into
// state.Todos (spec §4.3), validating each todo's content length and status
// before applying any of them.
func NewWriteTodos(state *runstate.State, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "write_todos",
			Description: "Create or update the task list for planning multi-step work. Replaces the whole list unless merge=true, in which case todos are merged by id.",
			InputSchema: schema(map[string]interface{}{
				"todos": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"id":      map[string]interface{}{"type": "string"},
							"content": map[string]interface{}{"type": "string", "maxLength": runstate.MaxTodoContentLen},
							"status":  map[string]interface{}{"type": "string", "enum": []string{"pending", "in_progress", "completed", "cancelled"}},
						},
						"required": []string{"id", "content", "status"},
					},
				},
				"merge": map[string]interface{}{"type": "boolean", "description": "Merge by id instead of replacing the whole list (default: false)"},
			}, "todos"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in writeTodosArgs
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid write_todos input: %v", err), nil
			}
			for _, t := range in.Todos {
				if err := t.Validate(); err != nil {
					return err.Error(), nil
				}
			}
			if in.Merge {
				state.Todos.Merge(in.Todos)
			} else {
				state.Todos.Replace(in.Todos)
			}
			snapshot := state.Todos.Snapshot()
			emit(emitter, events.New(events.TypeTodosChanged, map[string]interface{}{"todos": snapshot}))
			out, _ := json.Marshal(snapshot)
			return string(out), nil
		},
	}
}
