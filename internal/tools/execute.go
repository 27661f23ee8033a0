package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/sandbox"
)

const defaultExecuteTimeout = 2 * time.Minute

// executor is the narrow capability a backend must have for the execute
// tool to be offered at all — duck-typed against *sandbox.Backend rather
// than imported as a concrete type, so plain Memory/Disk/KV/Composite
// backends simply don't satisfy it.
type executor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) (sandbox.ExecResult, error)
}

// NewExecute builds the execute tool if b supports command execution,
// reporting ok=false otherwise so callers can skip registering it (spec
// §4.3: execute is only available when the active backend is
// sandbox-backed).
func NewExecute(b backend.Backend, emitter events.Emitter) (Tool, bool) {
	ex, ok := b.(executor)
	if !ok {
		return Tool{}, false
	}
	return Tool{
		Def: llm.ToolDef{
			Name:        "execute",
			Description: "Run a shell command in the sandbox and return its combined stdout/stderr and exit code.",
			InputSchema: schema(map[string]interface{}{
				"command":        map[string]interface{}{"type": "string"},
				"timeoutSeconds": map[string]interface{}{"type": "integer", "description": "default 120"},
			}, "command"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Command        string `json:"command"`
				TimeoutSeconds int    `json:"timeoutSeconds"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid execute input: %v", err), nil
			}
			timeout := defaultExecuteTimeout
			if in.TimeoutSeconds > 0 {
				timeout = time.Duration(in.TimeoutSeconds) * time.Second
			}
			emit(emitter, events.New(events.TypeExecuteStart, map[string]interface{}{"command": in.Command}))
			res, err := ex.Execute(ctx, in.Command, timeout)
			if err != nil {
				return fmt.Sprintf("execute failed: %v", err), nil
			}
			emit(emitter, events.New(events.TypeExecuteFinish, map[string]interface{}{
				"command":   in.Command,
				"exit_code": res.ExitCode,
				"truncated": res.Truncated,
			}))
			out, _ := json.Marshal(res)
			return string(out), nil
		},
	}, true
}
