package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chrispangg/deepagentsdk-sub002/internal/apperr"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// KeyValueStore is the pluggable store used both by the persistent file
// backend (this file) and the kv-store checkpointer (package checkpoint),
// namespaced the way spec §6.4 describes: a tuple of segments joined into
// one key. sqlitekv.Store is the concrete, sqlite-backed implementation;
// a map-backed one is used in tests.
type KeyValueStore interface {
	Get(ctx context.Context, namespace []string, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace []string, key string, value []byte) error
	Delete(ctx context.Context, namespace []string, key string) error
	// List returns every key/value pair under namespace.
	List(ctx context.Context, namespace []string) (map[string][]byte, error)
}

// KV is the key-value-backed Backend (spec §4.1 "Key-value store"). Files
// are stored under the two-level namespace [prefix, "filesystem"], keyed by
// absolute path, enabling cross-session persistence.
type KV struct {
	store  KeyValueStore
	prefix string
}

// NewKV builds a Backend over store, namespacing every file under
// [prefix, "filesystem"].
func NewKV(store KeyValueStore, prefix string) *KV {
	return &KV{store: store, prefix: prefix}
}

func (k *KV) ns() []string { return []string{k.prefix, "filesystem"} }

func (k *KV) snapshot(ctx context.Context) (map[string]runstate.FileData, error) {
	raw, err := k.store.List(ctx, k.ns())
	if err != nil {
		return nil, err
	}
	out := make(map[string]runstate.FileData, len(raw))
	for path, blob := range raw {
		var fd runstate.FileData
		if err := json.Unmarshal(blob, &fd); err != nil {
			continue
		}
		out[path] = fd
	}
	return out, nil
}

func (k *KV) LsInfo(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ValidatePath(dir); err != nil {
		return nil, err
	}
	files, err := k.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return ChildrenOf(files, dir), nil
}

func (k *KV) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	data, err := k.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return FormatNumberedLines(data.Content, offset, limit), nil
}

func (k *KV) ReadRaw(ctx context.Context, path string) (runstate.FileData, error) {
	if err := ValidatePath(path); err != nil {
		return runstate.FileData{}, err
	}
	blob, ok, err := k.store.Get(ctx, k.ns(), path)
	if err != nil {
		return runstate.FileData{}, err
	}
	if !ok {
		return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrFileNotFound)
	}
	var fd runstate.FileData
	if err := json.Unmarshal(blob, &fd); err != nil {
		return runstate.FileData{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return fd, nil
}

func (k *KV) put(ctx context.Context, path string, fd runstate.FileData) error {
	blob, err := json.Marshal(fd)
	if err != nil {
		return err
	}
	return k.store.Set(ctx, k.ns(), path, blob)
}

func (k *KV) Write(ctx context.Context, path, content string) WriteResult {
	if err := ValidatePath(path); err != nil {
		return WriteResult{Success: false, Error: err.Error()}
	}
	if _, ok, _ := k.store.Get(ctx, k.ns(), path); ok {
		return WriteResult{
			Success: false,
			Error:   fmt.Sprintf("File %s already exists. Use read_file to view it and edit_file to modify it, or choose a new path.", path),
		}
	}
	now := nowFunc()
	fd := runstate.FileData{Content: runstate.SplitLines(content), CreatedAt: now, ModifiedAt: now}
	if err := k.put(ctx, path, fd); err != nil {
		return WriteResult{Success: false, Error: err.Error()}
	}
	return WriteResult{Success: true, Path: path}
}

func (k *KV) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) EditResult {
	fd, err := k.ReadRaw(ctx, path)
	if err != nil {
		return EditResult{Success: false, Error: fmt.Sprintf("file not found: %s", path)}
	}
	text := fd.Text()
	count := strings.Count(text, oldString)
	switch {
	case count == 0:
		return EditResult{Success: false, Error: "String not found in file: " + oldString}
	case count > 1 && !replaceAll:
		return EditResult{
			Success: false,
			Error:   fmt.Sprintf("String appears %d times in file. Use replaceAll=true to replace all occurrences, or provide more context to make the match unique.", count),
		}
	}
	var replaced string
	occurrences := count
	if replaceAll {
		replaced = strings.ReplaceAll(text, oldString, newString)
	} else {
		replaced = strings.Replace(text, oldString, newString, 1)
		occurrences = 1
	}
	fd.Content = runstate.SplitLines(replaced)
	fd.ModifiedAt = nowFunc()
	if err := k.put(ctx, path, fd); err != nil {
		return EditResult{Success: false, Error: err.Error()}
	}
	return EditResult{Success: true, Occurrences: occurrences}
}

func (k *KV) GrepRaw(ctx context.Context, pattern, path, glob string) ([]GrepMatch, error) {
	if path == "" {
		path = "/"
	}
	files, err := k.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return GrepFiles(files, pattern, path, glob)
}

func (k *KV) GlobInfo(ctx context.Context, pattern, path string) ([]FileInfo, error) {
	if path == "" {
		path = "/"
	}
	files, err := k.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return GlobFiles(files, pattern, path), nil
}

var _ Backend = (*KV)(nil)
