package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
)

// KV is the key-value-backed Checkpointer variant (spec §4.6): reuses the
// same backend.KeyValueStore the persistent file backend is built on
// (concretely sqlitekv.Store), storing one record per saved step under
// namespace [prefix, "checkpoints", threadID] with the step number as the
// key, exactly the layout spec §6.4 specifies. Within a step, a later Save
// simply overwrites the earlier value (last-write-wins).
type KV struct {
	store  backend.KeyValueStore
	prefix string
}

// NewKV builds a KV checkpointer over store, namespacing every thread's
// checkpoints under prefix.
func NewKV(store backend.KeyValueStore, prefix string) *KV {
	return &KV{store: store, prefix: prefix}
}

func (k *KV) namespace(threadID string) []string {
	return []string{k.prefix, "checkpoints", threadID}
}

func (k *KV) Save(ctx context.Context, threadID string, step int, snapshot Snapshot) error {
	if threadID == "" {
		return fmt.Errorf("checkpoint: empty thread id")
	}
	snapshot.ThreadID = threadID
	snapshot.Step = step
	snapshot.Version = Version

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("checkpoint: marshaling snapshot: %w", err)
	}
	return k.store.Set(ctx, k.namespace(threadID), strconv.Itoa(step), raw)
}

func (k *KV) Load(ctx context.Context, threadID string) (Snapshot, bool, error) {
	snapshots, err := k.List(ctx, threadID)
	if err != nil {
		return Snapshot{}, false, err
	}
	if len(snapshots) == 0 {
		return Snapshot{}, false, nil
	}
	return snapshots[len(snapshots)-1], true, nil
}

func (k *KV) List(ctx context.Context, threadID string) ([]Snapshot, error) {
	raw, err := k.store.List(ctx, k.namespace(threadID))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: listing %s: %w", threadID, err)
	}

	type indexed struct {
		step int
		snap Snapshot
	}
	list := make([]indexed, 0, len(raw))
	for key, blob := range raw {
		step, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("checkpoint: decoding step %s: %w", key, err)
		}
		list = append(list, indexed{step: step, snap: snap})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].step < list[j].step })

	out := make([]Snapshot, len(list))
	for i, e := range list {
		out[i] = e.snap
	}
	return out, nil
}

var _ Checkpointer = (*KV)(nil)
