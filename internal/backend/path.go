package backend

import (
	"path"
	"sort"
	"strings"

	"github.com/chrispangg/deepagentsdk-sub002/internal/apperr"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// ValidatePath requires an absolute, clean path (spec §3 FileData invariant:
// "path begins with /").
func ValidatePath(p string) error {
	if p == "" || !strings.HasPrefix(p, "/") {
		return apperr.ErrInvalidPath
	}
	if strings.Contains(p, "\x00") {
		return apperr.ErrInvalidPath
	}
	return nil
}

// NormalizePath cleans a validated absolute path (collapsing "..", "." and
// duplicate slashes) the way the on-disk backend does before joining it to
// its root.
func NormalizePath(p string) string {
	cleaned := path.Clean(p)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}

// ChildrenOf partitions a snapshot of path->FileData by direct children of
// dir (non-recursive), synthesizing directory entries the way the teacher's
// KV-backed listing reconstructs a directory tree by splitting keys at "/".
// Used by both the in-memory and key-value backends for LsInfo.
func ChildrenOf(files map[string]runstate.FileData, dir string) []FileInfo {
	dir = NormalizePath(dir)
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}

	dirSet := make(map[string]bool)
	var out []FileInfo
	for p, data := range files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if rest == "" {
			continue
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			name := rest[:idx]
			if !dirSet[name] {
				dirSet[name] = true
				out = append(out, FileInfo{
					Path:  prefix + name + "/",
					IsDir: true,
				})
			}
			continue
		}
		out = append(out, FileInfo{
			Path:       prefix + rest,
			IsDir:      false,
			Size:       len(data.Text()),
			ModifiedAt: data.ModifiedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
