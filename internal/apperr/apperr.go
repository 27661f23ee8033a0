// Package apperr defines the backend failure taxonomy shared by every
// filesystem implementation (in-memory, on-disk, key-value, sandbox).
//
// Backend methods never panic and never let these escape as bare errors to
// the tool layer: callers that need a structured result (success/error
// payload) should use errors.Is against the sentinels below, exactly the way
// internal/storage callers in the teacher codebase check for sql.ErrNoRows.
package apperr

import "errors"

// Sentinel errors for the backend failure taxonomy (spec §7).
var (
	ErrFileNotFound     = errors.New("file_not_found")
	ErrPermissionDenied = errors.New("permission_denied")
	ErrIsDirectory      = errors.New("is_directory")
	ErrInvalidPath      = errors.New("invalid_path")
)

// Kind returns the taxonomy literal for a wrapped sentinel, or "" if err
// doesn't match any known kind. Used when building structured backend
// results that surface the literal kind string to callers.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrIsDirectory):
		return "is_directory"
	case errors.Is(err, ErrInvalidPath):
		return "invalid_path"
	default:
		return ""
	}
}
