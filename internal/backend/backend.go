// Package backend defines the capability set every virtual-filesystem store
// implements (spec §4.1): in-memory, on-disk, key-value, a composite router,
// and (in package sandbox) a shell-backed variant. Tools in package tools
// never talk to storage directly — they only ever hold a backend.Backend.
//
// Failures are returned as values (see apperr), never thrown: a backend
// method panicking or returning a bare Go error straight from the OS/driver
// layer without wrapping it into the apperr taxonomy is a bug in that
// backend, not a caller concern.
package backend

import (
	"context"
	"time"

	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// FileInfo describes one entry returned by LsInfo or GlobInfo.
type FileInfo struct {
	Path       string    `json:"path"`
	IsDir      bool      `json:"is_dir"`
	Size       int       `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

// GrepMatch is one line matched by GrepRaw.
type GrepMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// WriteResult is the outcome of Write.
type WriteResult struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"`
	Error   string `json:"error,omitempty"`
}

// EditResult is the outcome of Edit.
type EditResult struct {
	Success     bool   `json:"success"`
	Occurrences int    `json:"occurrences,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Backend is the capability set every virtual filesystem store implements,
// operating on absolute (leading "/") paths. Write and Edit report failure
// in their structured result (Success=false plus Error) rather than as a Go
// error; every other method returns a Go error, since it has no separate
// success/failure payload shape to carry it in.
type Backend interface {
	// LsInfo lists the direct (non-recursive) children of path.
	LsInfo(ctx context.Context, path string) ([]FileInfo, error)

	// Read returns cat -n-style numbered content of path, offset/limit
	// applied in lines. limit<=0 means the default of 2000.
	Read(ctx context.Context, path string, offset, limit int) (string, error)

	// ReadRaw returns the unformatted FileData for path, or
	// apperr.ErrFileNotFound.
	ReadRaw(ctx context.Context, path string) (runstate.FileData, error)

	// Write creates path with content. Fails if path already exists.
	Write(ctx context.Context, path, content string) WriteResult

	// Edit replaces oldString with newString in path. Without replaceAll,
	// oldString must be unique in the file.
	Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) EditResult

	// GrepRaw searches path (default "/") recursively for lines matching
	// the regular expression pattern, optionally restricted by glob.
	GrepRaw(ctx context.Context, pattern, path, glob string) ([]GrepMatch, error)

	// GlobInfo matches pattern against paths under path (default "/"),
	// sorted by ModifiedAt descending.
	GlobInfo(ctx context.Context, pattern, path string) ([]FileInfo, error)
}
