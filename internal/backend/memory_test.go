package backend

import (
	"context"
	"testing"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/apperr"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixedMemory(t *testing.T, at time.Time) *Memory {
	t.Helper()
	m := NewMemory(runstate.NewFileTable())
	m.now = func() time.Time { return at }
	return m
}

func TestMemoryWriteReadRoundtrip(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Unix(1000, 0))

	res := m.Write(ctx, "/notes.txt", "hello\nworld")
	require.True(t, res.Success)
	require.Equal(t, "/notes.txt", res.Path)

	out, err := m.Read(ctx, "/notes.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "     1\thello\n     2\tworld", out)
}

func TestMemoryWriteRejectsExisting(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/a.txt", "x").Success)

	res := m.Write(ctx, "/a.txt", "y")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "already exists")
}

func TestMemoryReadEmptyFileReminder(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/empty.txt", "").Success)

	out, err := m.Read(ctx, "/empty.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, EmptyFileReminder, out)
}

func TestMemoryReadMissingFile(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	_, err := m.Read(ctx, "/nope.txt", 0, 0)
	require.Error(t, err)
	assert.Equal(t, "file_not_found", apperr.Kind(err))
}

func TestMemoryEditUniqueMatch(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/f.go", "package main\nfunc main() {}\n").Success)

	res := m.Edit(ctx, "/f.go", "func main() {}", "func main() { println(1) }", false)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Occurrences)
}

func TestMemoryEditAmbiguousWithoutReplaceAll(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/dup.txt", "foo foo foo").Success)

	res := m.Edit(ctx, "/dup.txt", "foo", "bar", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "appears 3 times")
}

func TestMemoryEditReplaceAll(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/dup.txt", "foo foo foo").Success)

	res := m.Edit(ctx, "/dup.txt", "foo", "bar", true)
	require.True(t, res.Success)
	assert.Equal(t, 3, res.Occurrences)

	text, err := m.ReadRaw(ctx, "/dup.txt")
	require.NoError(t, err)
	assert.Equal(t, "bar bar bar", text.Text())
}

func TestMemoryEditNoMatch(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/a.txt", "hello").Success)

	res := m.Edit(ctx, "/a.txt", "goodbye", "hi", false)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "String not found")
}

func TestMemoryLsInfoListsDirectChildrenOnly(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/a/b.txt", "1").Success)
	require.True(t, m.Write(ctx, "/a/c/d.txt", "2").Success)
	require.True(t, m.Write(ctx, "/top.txt", "3").Success)

	entries, err := m.LsInfo(ctx, "/a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/a/b.txt", entries[0].Path)
	assert.False(t, entries[0].IsDir)
	assert.Equal(t, "/a/c/", entries[1].Path)
	assert.True(t, entries[1].IsDir)
}

func TestMemoryGlobInfoSortsByModifiedDescending(t *testing.T) {
	ctx := context.Background()
	files := runstate.NewFileTable()
	m := NewMemory(files)
	m.now = func() time.Time { return time.Unix(1, 0) }
	require.True(t, m.Write(ctx, "/old.go", "x").Success)
	m.now = func() time.Time { return time.Unix(2, 0) }
	require.True(t, m.Write(ctx, "/new.go", "y").Success)

	matches, err := m.GlobInfo(ctx, "**/*.go", "/")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "/new.go", matches[0].Path)
	assert.Equal(t, "/old.go", matches[1].Path)
}

func TestMemoryGrepRawFindsMatchingLines(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	require.True(t, m.Write(ctx, "/a.txt", "alpha\nbeta\nalphabet").Success)

	matches, err := m.GrepRaw(ctx, "alpha", "/", "")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].Line)
	assert.Equal(t, 3, matches[1].Line)
}

func TestMemoryRejectsRelativePaths(t *testing.T) {
	ctx := context.Background()
	m := newFixedMemory(t, time.Now())
	_, err := m.LsInfo(ctx, "relative/path")
	require.Error(t, err)
	assert.Equal(t, "invalid_path", apperr.Kind(err))
}

var _ Backend = (*Memory)(nil)
