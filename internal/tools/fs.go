package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// NewLs builds the ls tool: a non-recursive directory listing via the
// active backend.
func NewLs(b backend.Backend, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "ls",
			Description: "List the direct (non-recursive) children of a directory.",
			InputSchema: schema(map[string]interface{}{
				"path": map[string]interface{}{"type": "string", "description": "Directory to list"},
			}, "path"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Path string `json:"path"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid ls input: %v", err), nil
			}
			entries, err := b.LsInfo(ctx, in.Path)
			if err != nil {
				return fmt.Sprintf("ls %s: %v", in.Path, err), nil
			}
			emit(emitter, events.New(events.TypeLs, map[string]interface{}{"path": in.Path, "count": len(entries)}))
			out, _ := json.Marshal(entries)
			return string(out), nil
		},
	}
}

// NewReadFile builds the read_file tool: numbered content via the active
// backend, offset/limit applied in lines.
func NewReadFile(b backend.Backend, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "read_file",
			Description: "Read a file's contents, numbered cat -n style. Use offset/limit for large files.",
			InputSchema: schema(map[string]interface{}{
				"path":   map[string]interface{}{"type": "string"},
				"offset": map[string]interface{}{"type": "integer", "description": "0-indexed starting line (default 0)"},
				"limit":  map[string]interface{}{"type": "integer", "description": "max lines to return (default 2000)"},
			}, "path"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Path   string `json:"path"`
				Offset int    `json:"offset"`
				Limit  int    `json:"limit"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid read_file input: %v", err), nil
			}
			out, err := b.Read(ctx, in.Path, in.Offset, in.Limit)
			if err != nil {
				return fmt.Sprintf("read %s: %v", in.Path, err), nil
			}
			emit(emitter, events.New(events.TypeFileRead, map[string]interface{}{"path": in.Path}))
			return out, nil
		},
	}
}

// NewWriteFile builds the write_file tool: must not already exist (spec
// §4.3, §8).
func NewWriteFile(b backend.Backend, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "write_file",
			Description: "Create a new file with the given content. Fails if the path already exists; use edit_file to modify an existing file.",
			InputSchema: schema(map[string]interface{}{
				"path":    map[string]interface{}{"type": "string"},
				"content": map[string]interface{}{"type": "string"},
			}, "path", "content"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Path    string `json:"path"`
				Content string `json:"content"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid write_file input: %v", err), nil
			}
			emit(emitter, events.New(events.TypeFileWriteStart, map[string]interface{}{"path": in.Path}))
			res := b.Write(ctx, in.Path, in.Content)
			if !res.Success {
				return res.Error, nil
			}
			emit(emitter, events.New(events.TypeFileWritten, map[string]interface{}{"path": in.Path}))
			return fmt.Sprintf("Wrote %s", in.Path), nil
		},
	}
}

// NewEditFile builds the edit_file tool: exact-string replace, verbatim
// ambiguity error on N>1 matches without replaceAll (spec §4.3, §8). On a
// successful edit, appends a unified diff of the change computed via
// hexops/gotextdiff, the same role ui/diff.go plays for the lowkaihon
// example's edit tool.
func NewEditFile(b backend.Backend, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "edit_file",
			Description: "Replace an exact string match in a file. oldString must be unique unless replaceAll is set.",
			InputSchema: schema(map[string]interface{}{
				"path":       map[string]interface{}{"type": "string"},
				"oldString":  map[string]interface{}{"type": "string"},
				"newString":  map[string]interface{}{"type": "string"},
				"replaceAll": map[string]interface{}{"type": "boolean"},
			}, "path", "oldString", "newString"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Path       string `json:"path"`
				OldString  string `json:"oldString"`
				NewString  string `json:"newString"`
				ReplaceAll bool   `json:"replaceAll"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid edit_file input: %v", err), nil
			}

			before, readErr := b.ReadRaw(ctx, in.Path)
			res := b.Edit(ctx, in.Path, in.OldString, in.NewString, in.ReplaceAll)
			if !res.Success {
				return res.Error, nil
			}
			emit(emitter, events.New(events.TypeFileEdited, map[string]interface{}{"path": in.Path, "occurrences": res.Occurrences}))

			if readErr != nil {
				return fmt.Sprintf("Edited %s (%d occurrence(s))", in.Path, res.Occurrences), nil
			}
			after, afterErr := b.ReadRaw(ctx, in.Path)
			if afterErr != nil {
				return fmt.Sprintf("Edited %s (%d occurrence(s))", in.Path, res.Occurrences), nil
			}
			edits := myers.ComputeEdits(span.URIFromPath(in.Path), before.Text(), after.Text())
			diff := fmt.Sprint(gotextdiff.ToUnified(in.Path, in.Path, before.Text(), edits))
			return fmt.Sprintf("Edited %s (%d occurrence(s))\n%s", in.Path, res.Occurrences, diff), nil
		},
	}
}

// NewGlob builds the glob tool: micromatch-style match sorted by mtime
// descending.
func NewGlob(b backend.Backend, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "glob",
			Description: `Fast file pattern matching. Supports "**" patterns like "**/*.go". Returns matches sorted by modification time, most recent first.`,
			InputSchema: schema(map[string]interface{}{
				"pattern": map[string]interface{}{"type": "string"},
				"path":    map[string]interface{}{"type": "string", "description": "Root to search under (default /)"},
			}, "pattern"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Pattern string `json:"pattern"`
				Path    string `json:"path"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid glob input: %v", err), nil
			}
			matches, err := b.GlobInfo(ctx, in.Pattern, in.Path)
			if err != nil {
				return fmt.Sprintf("glob %s: %v", in.Pattern, err), nil
			}
			emit(emitter, events.New(events.TypeGlob, map[string]interface{}{"pattern": in.Pattern, "count": len(matches)}))
			out, _ := json.Marshal(matches)
			return string(out), nil
		},
	}
}

// NewGrep builds the grep tool: regex line search, invalid regex surfaced
// as a tool-result string rather than thrown (spec §4.3, §7).
func NewGrep(b backend.Backend, emitter events.Emitter) Tool {
	return Tool{
		Def: llm.ToolDef{
			Name:        "grep",
			Description: "Search file contents using RE2 regex. Returns matching lines with file paths and line numbers.",
			InputSchema: schema(map[string]interface{}{
				"pattern": map[string]interface{}{"type": "string"},
				"path":    map[string]interface{}{"type": "string"},
				"glob":    map[string]interface{}{"type": "string", "description": "Restrict the search to files matching this glob"},
			}, "pattern"),
		},
		Execute: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				Pattern string `json:"pattern"`
				Path    string `json:"path"`
				Glob    string `json:"glob"`
			}
			if err := mustUnmarshal(args, &in); err != nil {
				return fmt.Sprintf("invalid grep input: %v", err), nil
			}
			matches, err := b.GrepRaw(ctx, in.Pattern, in.Path, in.Glob)
			if err != nil {
				return fmt.Sprintf("invalid regex %q: %v", in.Pattern, err), nil
			}
			emit(emitter, events.New(events.TypeGrep, map[string]interface{}{"pattern": in.Pattern, "count": len(matches)}))
			out, _ := json.Marshal(matches)
			return string(out), nil
		},
	}
}
