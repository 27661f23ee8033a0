package checkpoint

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapKV is a minimal in-process backend.KeyValueStore double, standing in
// for sqlitekv.Store the way the real package's doc comment describes
// ("a map-backed one is used in tests").
type mapKV struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func newMapKV() *mapKV { return &mapKV{data: make(map[string]map[string][]byte)} }

func (m *mapKV) key(namespace []string) string { return strings.Join(namespace, "/") }

func (m *mapKV) Get(_ context.Context, namespace []string, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[m.key(namespace)][key]
	return v, ok, nil
}

func (m *mapKV) Set(_ context.Context, namespace []string, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.key(namespace)
	if m.data[ns] == nil {
		m.data[ns] = make(map[string][]byte)
	}
	m.data[ns][key] = value
	return nil
}

func (m *mapKV) Delete(_ context.Context, namespace []string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[m.key(namespace)], key)
	return nil
}

func (m *mapKV) List(_ context.Context, namespace []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte)
	for k, v := range m.data[m.key(namespace)] {
		out[k] = v
	}
	return out, nil
}

// variants returns every Checkpointer implementation under test, so the
// shared suite below exercises all three against the same contract.
func variants(t *testing.T) map[string]Checkpointer {
	t.Helper()
	fileCP, err := NewFile(t.TempDir())
	require.NoError(t, err)
	return map[string]Checkpointer{
		"memory": NewMemory(""),
		"file":   fileCP,
		"kv":     NewKV(newMapKV(), "agent"),
	}
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		Messages: []llm.Message{llm.UserMessage(llm.TextBlock("hello"))},
		State: runstate.Snapshot{
			Todos: []runstate.Todo{{ID: "1", Content: "draft", Status: runstate.TodoInProgress}},
			Files: map[string]runstate.FileData{"/a.txt": runstate.NewFileData("hi", time.Unix(1700000000, 0).UTC())},
		},
	}
}

func TestCheckpointerLoadAfterSaveRoundtrips(t *testing.T) {
	for name, cp := range variants(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			snap := sampleSnapshot()
			require.NoError(t, cp.Save(ctx, "t1", 1, snap))

			loaded, ok, err := cp.Load(ctx, "t1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, Version, loaded.Version)
			assert.Equal(t, "t1", loaded.ThreadID)
			assert.Equal(t, 1, loaded.Step)
			assert.Equal(t, snap.Messages, loaded.Messages)
			assert.Equal(t, snap.State, loaded.State)
		})
	}
}

func TestCheckpointerLoadReturnsLatestStep(t *testing.T) {
	for name, cp := range variants(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, cp.Save(ctx, "t1", 1, sampleSnapshot()))
			require.NoError(t, cp.Save(ctx, "t1", 2, sampleSnapshot()))
			require.NoError(t, cp.Save(ctx, "t1", 3, sampleSnapshot()))

			loaded, ok, err := cp.Load(ctx, "t1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 3, loaded.Step)

			list, err := cp.List(ctx, "t1")
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, 1, list[0].Step)
			assert.Equal(t, 3, list[2].Step)
		})
	}
}

func TestCheckpointerLoadMissingThreadReturnsNotOK(t *testing.T) {
	for name, cp := range variants(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := cp.Load(context.Background(), "nonexistent")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestCheckpointerSaveRejectsEmptyThreadID(t *testing.T) {
	for name, cp := range variants(t) {
		t.Run(name, func(t *testing.T) {
			err := cp.Save(context.Background(), "", 1, sampleSnapshot())
			assert.Error(t, err)
		})
	}
}
