package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/apperr"
	backendpkg "github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// defaultExecTimeout bounds a file-operation script when the caller didn't
// set one explicitly on Execute itself.
const defaultExecTimeout = 30 * time.Second

const (
	statusOK       = "SANDBOX_OK"
	statusNotFound = "SANDBOX_NOT_FOUND"
	statusIsDir    = "SANDBOX_IS_DIR"
	statusExists   = "SANDBOX_EXISTS"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func unb64(s string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Backend realizes the backend.Backend contract by executing small shell
// scripts through a Provider (spec §4.2): every path/content argument is
// base64-embedded directly into the command string so no argument, however
// exotic, needs shell-escaping of its own. This is the "base implementation"
// every concrete provider inherits; only Execute, UploadFiles, DownloadFiles
// are provider-specific.
type Backend struct {
	provider Provider
}

// New wraps a Provider as a full backend.Backend plus Execute.
func New(p Provider) *Backend {
	return &Backend{provider: p}
}

// ID returns the wrapped provider's stable identifier.
func (b *Backend) ID() string { return b.provider.ID() }

// Execute runs command in the sandbox, not through the file-op script
// machinery (spec §4.2 execute tool).
func (b *Backend) Execute(ctx context.Context, command string, timeout time.Duration) (ExecResult, error) {
	return b.provider.Execute(ctx, command, timeout)
}

// Dispose tears down the underlying provider.
func (b *Backend) Dispose(ctx context.Context) error { return b.provider.Dispose(ctx) }

func (b *Backend) run(ctx context.Context, script string) (string, error) {
	res, err := b.provider.Execute(ctx, script, defaultExecTimeout)
	if err != nil {
		return "", err
	}
	return res.Output, nil
}

func (b *Backend) ReadRaw(ctx context.Context, path string) (runstate.FileData, error) {
	if err := backendpkg.ValidatePath(path); err != nil {
		return runstate.FileData{}, err
	}
	script := fmt.Sprintf(
		`P="$(printf '%%s' '%s' | base64 -d)"; R=".$P"; if [ ! -e "$R" ]; then echo %s; elif [ -d "$R" ]; then echo %s; else echo %s; base64 "$R"; fi`,
		b64(path), statusNotFound, statusIsDir, statusOK,
	)
	out, err := b.run(ctx, script)
	if err != nil {
		return runstate.FileData{}, err
	}
	lines := strings.SplitN(out, "\n", 2)
	switch strings.TrimSpace(lines[0]) {
	case statusNotFound:
		return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrFileNotFound)
	case statusIsDir:
		return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrIsDirectory)
	case statusOK:
		body := ""
		if len(lines) > 1 {
			body = lines[1]
		}
		content, derr := unb64(strings.ReplaceAll(body, "\n", ""))
		if derr != nil {
			return runstate.FileData{}, fmt.Errorf("decode sandbox file %s: %w", path, derr)
		}
		return runstate.FileData{Content: runstate.SplitLines(content)}, nil
	default:
		return runstate.FileData{}, fmt.Errorf("unexpected sandbox response reading %s: %q", path, out)
	}
}

func (b *Backend) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	data, err := b.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return backendpkg.FormatNumberedLines(data.Content, offset, limit), nil
}

func (b *Backend) Write(ctx context.Context, path, content string) backendpkg.WriteResult {
	if err := backendpkg.ValidatePath(path); err != nil {
		return backendpkg.WriteResult{Success: false, Error: err.Error()}
	}
	script := fmt.Sprintf(
		`P="$(printf '%%s' '%s' | base64 -d)"; R=".$P"; if [ -e "$R" ]; then echo %s; else mkdir -p "$(dirname "$R")" && printf '%%s' '%s' | base64 -d > "$R" && echo %s; fi`,
		b64(path), statusExists, b64(content), statusOK,
	)
	out, err := b.run(ctx, script)
	if err != nil {
		return backendpkg.WriteResult{Success: false, Error: err.Error()}
	}
	switch strings.TrimSpace(out) {
	case statusExists:
		return backendpkg.WriteResult{
			Success: false,
			Error:   fmt.Sprintf("File %s already exists. Use read_file to view it and edit_file to modify it, or choose a new path.", path),
		}
	case statusOK:
		return backendpkg.WriteResult{Success: true, Path: path}
	default:
		return backendpkg.WriteResult{Success: false, Error: fmt.Sprintf("unexpected sandbox response: %q", out)}
	}
}

func (b *Backend) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) backendpkg.EditResult {
	data, err := b.ReadRaw(ctx, path)
	if err != nil {
		return backendpkg.EditResult{Success: false, Error: fmt.Sprintf("file not found: %s", path)}
	}
	text := data.Text()
	count := strings.Count(text, oldString)
	switch {
	case count == 0:
		return backendpkg.EditResult{Success: false, Error: "String not found in file: " + oldString}
	case count > 1 && !replaceAll:
		return backendpkg.EditResult{
			Success: false,
			Error:   fmt.Sprintf("String appears %d times in file. Use replaceAll=true to replace all occurrences, or provide more context to make the match unique.", count),
		}
	}

	var replaced string
	occurrences := count
	if replaceAll {
		replaced = strings.ReplaceAll(text, oldString, newString)
	} else {
		replaced = strings.Replace(text, oldString, newString, 1)
		occurrences = 1
	}

	script := fmt.Sprintf(
		`P="$(printf '%%s' '%s' | base64 -d)"; R=".$P"; printf '%%s' '%s' | base64 -d > "$R" && echo %s`,
		b64(path), b64(replaced), statusOK,
	)
	out, err := b.run(ctx, script)
	if err != nil {
		return backendpkg.EditResult{Success: false, Error: err.Error()}
	}
	if strings.TrimSpace(out) != statusOK {
		return backendpkg.EditResult{Success: false, Error: fmt.Sprintf("unexpected sandbox response: %q", out)}
	}
	return backendpkg.EditResult{Success: true, Occurrences: occurrences}
}

// manifest scripts list every regular file under root as a base64 blob
// delimited with sentinels, then snapshot() turns that into the same
// map[string]runstate.FileData shape Disk.snapshot builds, so LsInfo,
// GrepRaw, and GlobInfo can all reuse backend's existing ChildrenOf,
// GrepFiles, and GlobFiles helpers instead of reimplementing matching
// against a remote filesystem.
const fileSep = "\x01SANDBOX_FILE\x01"
const endSep = "\x01SANDBOX_END\x01"

func (b *Backend) snapshot(ctx context.Context, root string) (map[string]runstate.FileData, error) {
	script := fmt.Sprintf(
		`P="$(printf '%%s' '%s' | base64 -d)"; R=".$P"; `+
			`find "$R" -type f 2>/dev/null | while IFS= read -r f; do `+
			`printf '%s%%s%s\n' "$f"; `+
			`stat -c '%%Y' "$f" 2>/dev/null || echo 0; `+
			`base64 "$f"; `+
			`printf '%s\n'; `+
			`done`,
		b64(root), fileSep, fileSep, endSep,
	)
	out, err := b.run(ctx, script)
	if err != nil {
		return nil, err
	}

	files := make(map[string]runstate.FileData)
	records := strings.Split(out, endSep)
	for _, rec := range records {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		// Each record is fileSep + path + fileSep + "\n" + mtime + base64.
		parts := strings.SplitN(rec, fileSep, 3)
		if len(parts) < 3 {
			continue
		}
		relPath := strings.TrimSpace(parts[1])
		if relPath == "" {
			continue
		}
		path := strings.TrimPrefix(relPath, ".")
		if !strings.HasPrefix(path, "/") {
			path = "/" + strings.TrimPrefix(path, "/")
		}
		rest := parts[2]
		lines := strings.SplitN(strings.TrimLeft(rest, "\n"), "\n", 2)
		mtimeUnix, _ := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
		body := ""
		if len(lines) > 1 {
			body = lines[1]
		}
		content, derr := unb64(strings.ReplaceAll(body, "\n", ""))
		if derr != nil {
			continue
		}
		files[path] = runstate.FileData{
			Content:    runstate.SplitLines(content),
			ModifiedAt: time.Unix(mtimeUnix, 0),
		}
	}
	return files, nil
}

func (b *Backend) LsInfo(ctx context.Context, dir string) ([]backendpkg.FileInfo, error) {
	if err := backendpkg.ValidatePath(dir); err != nil {
		return nil, err
	}
	files, err := b.snapshot(ctx, dir)
	if err != nil {
		return nil, err
	}
	return backendpkg.ChildrenOf(files, dir), nil
}

func (b *Backend) GrepRaw(ctx context.Context, pattern, path, glob string) ([]backendpkg.GrepMatch, error) {
	if path == "" {
		path = "/"
	}
	files, err := b.snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	return backendpkg.GrepFiles(files, pattern, path, glob)
}

func (b *Backend) GlobInfo(ctx context.Context, pattern, path string) ([]backendpkg.FileInfo, error) {
	if path == "" {
		path = "/"
	}
	files, err := b.snapshot(ctx, path)
	if err != nil {
		return nil, err
	}
	return backendpkg.GlobFiles(files, pattern, path), nil
}

var _ backendpkg.Backend = (*Backend)(nil)
