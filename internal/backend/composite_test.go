package backend

import (
	"context"
	"testing"

	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeRoutesByLongestPrefix(t *testing.T) {
	ctx := context.Background()
	root := NewMemory(runstate.NewFileTable())
	scratch := NewMemory(runstate.NewFileTable())
	deep := NewMemory(runstate.NewFileTable())

	c := NewComposite(root)
	c.Mount("/tmp", scratch)
	c.Mount("/tmp/deep", deep)

	require.True(t, c.Write(ctx, "/a.txt", "root").Success)
	require.True(t, c.Write(ctx, "/tmp/b.txt", "scratch").Success)
	require.True(t, c.Write(ctx, "/tmp/deep/c.txt", "deepest").Success)

	_, err := root.ReadRaw(ctx, "/a.txt")
	assert.NoError(t, err)
	_, err = scratch.ReadRaw(ctx, "/tmp/b.txt")
	assert.NoError(t, err)
	_, err = deep.ReadRaw(ctx, "/tmp/deep/c.txt")
	assert.NoError(t, err)

	_, err = root.ReadRaw(ctx, "/tmp/deep/c.txt")
	assert.Error(t, err, "the deepest mount should have claimed this path, not root")
}

func TestCompositeRemountReplacesBackend(t *testing.T) {
	c := NewComposite(NewMemory(runstate.NewFileTable()))
	first := NewMemory(runstate.NewFileTable())
	second := NewMemory(runstate.NewFileTable())

	c.Mount("/tmp", first)
	c.Mount("/tmp", second)

	require.Len(t, c.routes, 1)
	assert.Same(t, second, c.routes[0].backend)
}

var _ Backend = (*Composite)(nil)
