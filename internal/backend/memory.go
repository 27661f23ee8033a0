package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/apperr"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// Memory is the in-memory backend: its storage literally IS the run state's
// file table (spec §4.1 "In-memory store"), so writes made through this
// backend are immediately visible to anything else holding the same
// *runstate.State (including a subagent, per spec §4.7).
type Memory struct {
	files *runstate.FileTable
	now   func() time.Time
}

// NewMemory wraps files as a Backend. now defaults to time.Now and is
// overridable for deterministic tests.
func NewMemory(files *runstate.FileTable) *Memory {
	return &Memory{files: files, now: time.Now}
}

func (m *Memory) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

func (m *Memory) LsInfo(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ValidatePath(dir); err != nil {
		return nil, err
	}
	return ChildrenOf(m.files.Snapshot(), dir), nil
}

func (m *Memory) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	data, err := m.ReadRaw(ctx, path)
	if err != nil {
		return "", err
	}
	return FormatNumberedLines(data.Content, offset, limit), nil
}

func (m *Memory) ReadRaw(ctx context.Context, path string) (runstate.FileData, error) {
	if err := ValidatePath(path); err != nil {
		return runstate.FileData{}, err
	}
	data, ok := m.files.Get(path)
	if !ok {
		return runstate.FileData{}, fmt.Errorf("%s: %w", path, apperr.ErrFileNotFound)
	}
	return data, nil
}

func (m *Memory) Write(ctx context.Context, path, content string) WriteResult {
	if err := ValidatePath(path); err != nil {
		return WriteResult{Success: false, Error: err.Error()}
	}
	if _, exists := m.files.Get(path); exists {
		return WriteResult{
			Success: false,
			Error:   fmt.Sprintf("File %s already exists. Use read_file to view it and edit_file to modify it, or choose a new path.", path),
		}
	}
	now := m.clock()
	m.files.Set(path, runstate.FileData{
		Content:    runstate.SplitLines(content),
		CreatedAt:  now,
		ModifiedAt: now,
	})
	return WriteResult{Success: true, Path: path}
}

func (m *Memory) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) EditResult {
	if err := ValidatePath(path); err != nil {
		return EditResult{Success: false, Error: err.Error()}
	}
	data, ok := m.files.Get(path)
	if !ok {
		return EditResult{Success: false, Error: fmt.Sprintf("file not found: %s", path)}
	}

	text := data.Text()
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

	m.files.Set(path, runstate.FileData{
		Content:    runstate.SplitLines(replaced),
		CreatedAt:  data.CreatedAt,
		ModifiedAt: m.clock(),
	})
	return EditResult{Success: true, Occurrences: occurrences}
}

func (m *Memory) GrepRaw(ctx context.Context, pattern, path, glob string) ([]GrepMatch, error) {
	if path == "" {
		path = "/"
	}
	return GrepFiles(m.files.Snapshot(), pattern, path, glob)
}

func (m *Memory) GlobInfo(ctx context.Context, pattern, path string) ([]FileInfo, error) {
	if path == "" {
		path = "/"
	}
	return GlobFiles(m.files.Snapshot(), pattern, path), nil
}

var _ Backend = (*Memory)(nil)
