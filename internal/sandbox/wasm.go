package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// WASMProvider stands in for the spec's "cloud A/B/C/D" sandbox providers:
// execute runs a WASI module inside a real wazero runtime rather than a host
// subprocess, giving genuine process isolation without a container runtime.
// A command string names a WASI module already present in the sandbox's
// mounted directory (typically placed there by UploadFiles) followed by its
// argv, e.g. "tool.wasm --input data.txt".
type WASMProvider struct {
	id      string
	dir     string
	runtime wazero.Runtime

	mu       sync.Mutex
	disposed bool
}

// NewWASMProvider starts a wazero runtime with WASI preview1 wired in and a
// scratch directory mounted as the guest's root filesystem.
func NewWASMProvider(ctx context.Context, root string) (*WASMProvider, error) {
	id := NewID("wasm")
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create wasm sandbox directory: %w", err)
	}

	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI preview1: %w", err)
	}

	return &WASMProvider{id: id, dir: dir, runtime: rt}, nil
}

func (p *WASMProvider) ID() string { return p.id }

// Execute loads the WASI module named by the command's first field from the
// sandbox directory and runs it with the remaining fields as argv. Module
// exit codes surface as ExitCode, never as a Go error; only a failure to
// load or instantiate the module itself does.
func (p *WASMProvider) Execute(ctx context.Context, command string, timeout time.Duration) (ExecResult, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ExecResult{}, fmt.Errorf("empty wasm command")
	}

	bin, err := os.ReadFile(filepath.Join(p.dir, fields[0]))
	if err != nil {
		return ExecResult{}, fmt.Errorf("read wasm module %s: %w", fields[0], err)
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cfg := wazero.NewModuleConfig().
		WithStdout(&stdout).
		WithStderr(&stderr).
		WithArgs(fields...).
		WithFSConfig(wazero.NewFSConfig().WithDirMount(p.dir, "/"))

	mod, runErr := p.runtime.InstantiateWithConfig(runCtx, bin, cfg)
	if mod != nil {
		defer mod.Close(runCtx)
	}

	combined := stdout.String() + stderr.String()
	if runErr == nil {
		return ExecResult{Output: combined, ExitCode: 0}, nil
	}

	var exitErr *sys.ExitError
	if errors.As(runErr, &exitErr) {
		return ExecResult{Output: combined, ExitCode: int(exitErr.ExitCode())}, nil
	}
	if runCtx.Err() != nil {
		return ExecResult{Output: combined + "\ntimed out", ExitCode: -1, Truncated: true}, nil
	}
	return ExecResult{}, fmt.Errorf("run wasm module %s: %w", fields[0], runErr)
}

// UploadFiles writes each file relative to the sandbox's mounted directory,
// the same convention LocalProvider uses, so a WASI module can be uploaded
// and then named directly in a subsequent Execute call.
func (p *WASMProvider) UploadFiles(ctx context.Context, files map[string]string) error {
	for rel, content := range files {
		dest := filepath.Join(p.dir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return fmt.Errorf("upload %s: %w", rel, err)
		}
	}
	return nil
}

// DownloadFiles reads each named path relative to the sandbox's mounted
// directory, e.g. files a WASI module wrote during Execute.
func (p *WASMProvider) DownloadFiles(ctx context.Context, paths []string) (map[string]string, error) {
	out := make(map[string]string, len(paths))
	for _, rel := range paths {
		raw, err := os.ReadFile(filepath.Join(p.dir, rel))
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", rel, err)
		}
		out[rel] = string(raw)
	}
	return out, nil
}

// Dispose closes the wazero runtime and removes the scratch directory. Safe
// to call more than once.
func (p *WASMProvider) Dispose(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil
	}
	p.disposed = true
	closeErr := p.runtime.Close(ctx)
	rmErr := os.RemoveAll(p.dir)
	if closeErr != nil {
		return closeErr
	}
	return rmErr
}

var _ Provider = (*WASMProvider)(nil)
