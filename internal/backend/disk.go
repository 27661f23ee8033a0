package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chrispangg/deepagentsdk-sub002/internal/apperr"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// Disk is the on-disk backend: operations translate to a host filesystem
// rooted at Root. Path validation disallows escaping the root, the same
// defense-in-depth the teacher applies when joining sandbox worktree paths
// in internal/sandbox.manager.
type Disk struct {
	Root string
}

// NewDisk roots a Disk backend at an absolute directory, creating it if
// necessary.
func NewDisk(root string) (*Disk, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve disk backend root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create disk backend root: %w", err)
	}
	return &Disk{Root: abs}, nil
}

// resolve maps an absolute virtual path onto the host filesystem, rejecting
// any path that would escape Root.
func (d *Disk) resolve(virtual string) (string, error) {
	if err := ValidatePath(virtual); err != nil {
		return "", err
	}
	cleaned := NormalizePath(virtual)
	real := filepath.Join(d.Root, filepath.FromSlash(cleaned))
	relCheck, err := filepath.Rel(d.Root, real)
	if err != nil || relCheck == ".." || strings.HasPrefix(relCheck, ".."+string(filepath.Separator)) {
		return "", apperr.ErrInvalidPath
	}
	return real, nil
}

func (d *Disk) LsInfo(ctx context.Context, dir string) ([]FileInfo, error) {
	real, err := d.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(real)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", dir, apperr.ErrFileNotFound)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%s: %w", dir, apperr.ErrPermissionDenied)
		}
		return nil, err
	}

	virtualDir := NormalizePath(dir)
	prefix := virtualDir
	if prefix != "/" {
		prefix += "/"
	}

	var out []FileInfo
	for _, e := range entries {
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		if e.IsDir() {
			out = append(out, FileInfo{Path: prefix + e.Name() + "/", IsDir: true, ModifiedAt: info.ModTime()})
		} else {
			out = append(out, FileInfo{Path: prefix + e.Name(), Size: int(info.Size()), ModifiedAt: info.ModTime()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (d *Disk) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	data, err := d.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return FormatNumberedLines(data.Content, offset, limit), nil
}

func (d *Disk) ReadRaw(ctx context.Context, path string) (runstate.FileData, error) {
	real, err := d.resolve(path)
	if err != nil {
		return runstate.FileData{}, err
	}
	info, err := os.Stat(real)
	if err != nil {
		if os.IsNotExist(err) {
			return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrFileNotFound)
		}
		return runstate.FileData{}, err
	}
	if info.IsDir() {
		return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrIsDirectory)
	}
	raw, err := os.ReadFile(real)
	if err != nil {
		if os.IsPermission(err) {
			return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrPermissionDenied)
		}
		return runstate.FileData{}, err
	}
	return runstate.FileData{
		Content:    runstate.SplitLines(string(raw)),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}, nil
}

func (d *Disk) Write(ctx context.Context, path, content string) WriteResult {
	real, err := d.resolve(path)
	if err != nil {
		return WriteResult{Success: false, Error: err.Error()}
	}
	if _, statErr := os.Stat(real); statErr == nil {
		return WriteResult{
			Success: false,
			Error:   fmt.Sprintf("File %s already exists. Use read_file to view it and edit_file to modify it, or choose a new path.", path),
		}
	}
	if err := os.MkdirAll(filepath.Dir(real), 0o755); err != nil {
		return WriteResult{Success: false, Error: err.Error()}
	}
	if err := os.WriteFile(real, []byte(content), 0o644); err != nil {
		return WriteResult{Success: false, Error: err.Error()}
	}
	return WriteResult{Success: true, Path: path}
}

func (d *Disk) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) EditResult {
	real, err := d.resolve(path)
	if err != nil {
		return EditResult{Success: false, Error: err.Error()}
	}
	raw, err := os.ReadFile(real)
	if err != nil {
		return EditResult{Success: false, Error: fmt.Sprintf("file not found: %s", path)}
	}
	text := string(raw)
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
	if err := os.WriteFile(real, []byte(replaced), 0o644); err != nil {
		return EditResult{Success: false, Error: err.Error()}
	}
	return EditResult{Success: true, Occurrences: occurrences}
}

func (d *Disk) snapshot(root string) (map[string]runstate.FileData, error) {
	real, err := d.resolve(root)
	if err != nil {
		return nil, err
	}
	out := make(map[string]runstate.FileData)
	err = filepath.Walk(real, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || info.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(d.Root, p)
		if rerr != nil {
			return nil
		}
		raw, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil
		}
		out["/"+filepath.ToSlash(rel)] = runstate.FileData{
			Content:    runstate.SplitLines(string(raw)),
			ModifiedAt: info.ModTime(),
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return out, nil
}

func (d *Disk) GrepRaw(ctx context.Context, pattern, root, glob string) ([]GrepMatch, error) {
	if root == "" {
		root = "/"
	}
	files, err := d.snapshot(root)
	if err != nil {
		return nil, err
	}
	return GrepFiles(files, pattern, root, glob)
}

func (d *Disk) GlobInfo(ctx context.Context, pattern, root string) ([]FileInfo, error) {
	if root == "" {
		root = "/"
	}
	files, err := d.snapshot(root)
	if err != nil {
		return nil, err
	}
	return GlobFiles(files, pattern, root), nil
}

var _ Backend = (*Disk)(nil)
