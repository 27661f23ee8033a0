package ctxpolicy

import (
	"context"
	"strings"
	"testing"

	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvictorPassesThroughSmallResults(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	e := Evictor{Backend: b, Limit: 100}

	out, fired, err := e.Apply(context.Background(), "read_file", "c1", "short result")
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, "short result", out)
}

func TestEvictorPersistsOversizedResults(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	e := Evictor{Backend: b, Limit: 10}

	big := strings.Repeat("x", 1000)
	out, fired, err := e.Apply(context.Background(), "read_file", "c1", big)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Contains(t, out, EvictionDir+"/read_file_c1.txt")

	stored, err := b.ReadRaw(context.Background(), EvictionDir+"/read_file_c1.txt")
	require.NoError(t, err)
	assert.Equal(t, big, stored.Text())
}

func TestEvictorDisabledWhenLimitIsZero(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	e := Evictor{Backend: b, Limit: 0}

	big := strings.Repeat("x", 10000)
	out, fired, err := e.Apply(context.Background(), "read_file", "c1", big)
	require.NoError(t, err)
	assert.False(t, fired)
	assert.Equal(t, big, out)
}
