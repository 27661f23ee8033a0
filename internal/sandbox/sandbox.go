// Package sandbox implements the C2 Sandbox contract: a backend.Backend that
// additionally exposes shell execution and file transfer. Its lifecycle
// bookkeeping (an id-keyed map guarded by a single sync.RWMutex, with an
// explicit Cleanup/CleanupAll) is grounded directly on the teacher's
// internal/sandbox.manager, generalized from git-worktree-backed mission
// sandboxes to process-execution sandboxes for agent tool calls.
package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentDispose bounds how many providers CleanupAll disposes at
// once. The WASM provider's Dispose closes a wazero runtime, which
// instantiates and tears down real module state; disposing many of them at
// once unbounded would spike memory the same way uploading them all would.
const maxConcurrentDispose = 4

// ExecResult is the outcome of Execute: stdout/stderr merged into Output,
// never thrown as a Go error for a nonzero exit (spec §4.2).
type ExecResult struct {
	Output    string
	ExitCode  int
	Truncated bool
}

// Provider is the capability set a concrete sandbox execution environment
// implements: command execution and bidirectional file transfer, on top of
// the inherited backend.Backend file contract. Registry wraps a Provider
// with common lifecycle bookkeeping.
type Provider interface {
	// ID is a stable identifier for this sandbox instance.
	ID() string

	// Execute runs command, waiting at most timeout (0 means no deadline
	// beyond ctx). Never returns an error for a nonzero exit code — only
	// for failure to even start the command.
	Execute(ctx context.Context, command string, timeout time.Duration) (ExecResult, error)

	// UploadFiles copies local file contents (path -> content) into the
	// sandbox's filesystem.
	UploadFiles(ctx context.Context, files map[string]string) error

	// DownloadFiles reads the named paths back out of the sandbox.
	DownloadFiles(ctx context.Context, paths []string) (map[string]string, error)

	// Dispose releases any resources held by this sandbox. Cleanup
	// behavior (process kill, temp dir removal, runtime teardown) is
	// provider-specific; callers must call it exactly once.
	Dispose(ctx context.Context) error
}

// Registry tracks live Provider instances the way manager tracks
// activeSandboxes: a plain map guarded by one RWMutex, with Cleanup/CleanupAll
// disposing and forgetting entries.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns an empty sandbox registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds p under its own ID, replacing any sandbox previously
// registered at that ID without disposing it (callers that want that on
// overwrite should call Cleanup first).
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get retrieves a provider by ID.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// List returns every registered provider in no particular order.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	return out
}

// Cleanup disposes and forgets the sandbox with the given ID.
func (r *Registry) Cleanup(ctx context.Context, id string) error {
	r.mu.Lock()
	p, exists := r.providers[id]
	if exists {
		delete(r.providers, id)
	}
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("sandbox %s: %w", id, errNotRegistered)
	}
	return p.Dispose(ctx)
}

// CleanupAll disposes and forgets every registered sandbox concurrently, up
// to maxConcurrentDispose at a time, returning the first error encountered
// (if any) after attempting all of them.
func (r *Registry) CleanupAll(ctx context.Context) error {
	r.mu.Lock()
	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	r.providers = make(map[string]Provider)
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDispose)
	for _, p := range providers {
		g.Go(func() error {
			return p.Dispose(gctx)
		})
	}
	return g.Wait()
}

var errNotRegistered = fmt.Errorf("not registered")

// NewID mints a stable sandbox id the way manager.Create mints sandbox IDs,
// but via uuid rather than a mission-name/timestamp composite since sandboxes
// here are not tied to a git branch name.
func NewID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
