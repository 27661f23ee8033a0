package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpawner struct {
	result                  string
	err                     error
	gotType, gotDescription string
}

func (f *fakeSpawner) Spawn(ctx context.Context, subagentType, description string) (string, error) {
	f.gotType, f.gotDescription = subagentType, description
	return f.result, f.err
}

func TestTaskDelegatesToSpawner(t *testing.T) {
	spawner := &fakeSpawner{result: "done: wrote 3 files"}
	sink := events.NewSink()
	tool := NewTask(spawner, sink.Emit)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"subagent_type":"general-purpose","description":"refactor foo"}`))
	require.NoError(t, err)
	assert.Equal(t, "done: wrote 3 files", out)
	assert.Equal(t, "general-purpose", spawner.gotType)
	assert.Equal(t, "refactor foo", spawner.gotDescription)
	assert.Len(t, sink.OfType(events.TypeSubagentStart), 1)
	assert.Len(t, sink.OfType(events.TypeSubagentFinish), 1)
}

func TestTaskSurfacesSpawnerErrorAsResultString(t *testing.T) {
	spawner := &fakeSpawner{err: errors.New("step budget exceeded")}
	tool := NewTask(spawner, nil)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"subagent_type":"general-purpose","description":"x"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "step budget exceeded")
}
