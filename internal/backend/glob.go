package backend

import (
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// MatchGlob reports whether path matches a micromatch-style pattern,
// supporting "**" the way the spec's glob tool requires. Grounded on
// github.com/bmatcuk/doublestar, the glob-matching dependency already
// present (as an indirect test/build dependency) in the retrieved example
// pack, used here directly rather than hand-rolling "**" expansion.
func MatchGlob(pattern, p string) bool {
	trimmedPattern := strings.TrimPrefix(pattern, "/")
	trimmedPath := strings.TrimPrefix(p, "/")
	ok, err := doublestar.Match(trimmedPattern, trimmedPath)
	if err != nil {
		return false
	}
	return ok
}

// GlobFiles matches pattern against every file under root in the snapshot,
// returning FileInfo sorted by ModifiedAt descending (spec §4.1).
func GlobFiles(files map[string]runstate.FileData, pattern, root string) []FileInfo {
	root = NormalizePath(root)
	prefix := root
	if prefix != "/" {
		prefix += "/"
	} else {
		prefix = "/"
	}

	var out []FileInfo
	for p, data := range files {
		if root != "/" && !strings.HasPrefix(p, prefix) {
			continue
		}
		rel := p
		if root != "/" {
			rel = strings.TrimPrefix(p, prefix)
		} else {
			rel = strings.TrimPrefix(p, "/")
		}
		if !MatchGlob(pattern, rel) && !MatchGlob(pattern, p) {
			continue
		}
		out = append(out, FileInfo{
			Path:       p,
			IsDir:      false,
			Size:       len(data.Text()),
			ModifiedAt: data.ModifiedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ModifiedAt.After(out[j].ModifiedAt)
	})
	return out
}

// GrepFiles scans every file under root in the snapshot for lines matching
// the regular expression pattern, optionally restricted to paths matching
// globFilter. Returns an error for an invalid regex, never a panic (spec
// §4.1, §8 boundary behavior).
func GrepFiles(files map[string]runstate.FileData, pattern, root, globFilter string) ([]GrepMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	root = NormalizePath(root)
	prefix := root
	if prefix != "/" {
		prefix += "/"
	}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []GrepMatch
	for _, p := range paths {
		if root != "/" && !strings.HasPrefix(p, prefix) && p != root {
			continue
		}
		if globFilter != "" {
			rel := strings.TrimPrefix(p, "/")
			if !MatchGlob(globFilter, rel) && !MatchGlob(globFilter, p) {
				continue
			}
		}
		data := files[p]
		for i, line := range data.Content {
			if re.MatchString(line) {
				out = append(out, GrepMatch{Path: p, Line: i + 1, Text: line})
			}
		}
	}
	return out, nil
}
