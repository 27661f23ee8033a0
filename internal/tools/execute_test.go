package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSandboxBackend(t *testing.T) *sandbox.Backend {
	t.Helper()
	p, err := sandbox.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Dispose(context.Background()) })
	return sandbox.New(p)
}

func TestNewExecuteUnavailableOnPlainBackend(t *testing.T) {
	b := newTestBackend()
	_, ok := NewExecute(b, nil)
	assert.False(t, ok)
}

func TestExecuteRunsCommandOnSandboxBackend(t *testing.T) {
	b := newSandboxBackend(t)
	sink := events.NewSink()
	tool, ok := NewExecute(b, sink.Emit)
	require.True(t, ok)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"command":"echo hi"}`))
	require.NoError(t, err)

	var res sandbox.ExecResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Output, "hi")
	assert.Len(t, sink.OfType(events.TypeExecuteStart), 1)
	assert.Len(t, sink.OfType(events.TypeExecuteFinish), 1)
}
