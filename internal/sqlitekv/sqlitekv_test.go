package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "kv.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreGetMissingKeyReturnsNotFound(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.Get(context.Background(), []string{"thread-1", "checkpoints"}, "step-0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreSetThenGetRoundtrips(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ns := []string{"thread-1", "filesystem"}

	require.NoError(t, store.Set(ctx, ns, "/a.txt", []byte("hello")))
	value, ok, err := store.Get(ctx, ns, "/a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), value)
}

func TestStoreSetOverwritesExistingKey(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ns := []string{"thread-1", "filesystem"}

	require.NoError(t, store.Set(ctx, ns, "/a.txt", []byte("v1")))
	require.NoError(t, store.Set(ctx, ns, "/a.txt", []byte("v2")))

	value, ok, err := store.Get(ctx, ns, "/a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), value)
}

func TestStoreDeleteRemovesKey(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	ns := []string{"thread-1", "filesystem"}

	require.NoError(t, store.Set(ctx, ns, "/a.txt", []byte("x")))
	require.NoError(t, store.Delete(ctx, ns, "/a.txt"))

	_, ok, err := store.Get(ctx, ns, "/a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreListReturnsOnlyItsNamespace(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	threadA := []string{"thread-a", "filesystem"}
	threadB := []string{"thread-b", "filesystem"}

	require.NoError(t, store.Set(ctx, threadA, "/a.txt", []byte("1")))
	require.NoError(t, store.Set(ctx, threadA, "/b.txt", []byte("2")))
	require.NoError(t, store.Set(ctx, threadB, "/c.txt", []byte("3")))

	all, err := store.List(ctx, threadA)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, []byte("1"), all["/a.txt"])
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "kv.sqlite3")

	store, err := Open(path)
	require.NoError(t, err)
	ns := []string{"thread-1", "checkpoints"}
	require.NoError(t, store.Set(ctx, ns, "step-0", []byte("payload")))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, ns, "step-0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), value)
}
