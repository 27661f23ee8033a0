// Package checkpoint implements the C6 checkpointer contract (spec §4.6):
// saving and loading {messages, state} per thread so a run can resume
// byte-identical across processes. Three variants are provided: Memory,
// File, and a KV-store adapter over the same backend.KeyValueStore the
// persistent file backend uses.
package checkpoint

import (
	"context"

	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// Version is stamped into every persisted snapshot (spec §6.4), bumped if
// the on-disk/kv representation ever changes shape.
const Version = 1

// Snapshot is the canonical resumption record (spec §3 "Checkpoint"):
// everything the agent loop needs to resume a thread exactly where it left
// off.
type Snapshot struct {
	Version  int               `json:"version"`
	ThreadID string            `json:"thread_id"`
	Step     int               `json:"step"`
	Messages []llm.Message     `json:"messages"`
	State    runstate.Snapshot `json:"state"`
}

// Checkpointer is the C6 contract: save/load/list snapshots per thread.
type Checkpointer interface {
	// Save atomically writes snapshot for threadId at step. Implementations
	// must guarantee that a concurrent Load never observes a partially
	// written snapshot (spec §3's byte-equivalence invariant).
	Save(ctx context.Context, threadID string, step int, snapshot Snapshot) error

	// Load returns the most recently saved snapshot for threadId, or
	// ok=false if none exists.
	Load(ctx context.Context, threadID string) (snapshot Snapshot, ok bool, err error)

	// List returns every snapshot saved for threadId, ordered by step
	// ascending. Optional in the sense that a minimal implementation may
	// only ever have one entry to return (spec §4.6).
	List(ctx context.Context, threadID string) ([]Snapshot, error)
}
