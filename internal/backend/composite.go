package backend

import (
	"context"
	"sort"
	"strings"

	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// route is one (prefix, backend) pair in a Composite router.
type route struct {
	prefix  string
	backend Backend
}

// Composite holds a default backend plus an ordered list of (prefix,
// backend) routes; each call is forwarded to the longest-prefix match
// (spec §4.1 "Composite router").
type Composite struct {
	def    Backend
	routes []route
}

// NewComposite builds a router with def as the fallback backend for any
// path not covered by a more specific route.
func NewComposite(def Backend) *Composite {
	return &Composite{def: def}
}

// Mount adds (or replaces) the route for prefix.
func (c *Composite) Mount(prefix string, b Backend) {
	for i, r := range c.routes {
		if r.prefix == prefix {
			c.routes[i].backend = b
			return
		}
	}
	c.routes = append(c.routes, route{prefix: prefix, backend: b})
	sort.Slice(c.routes, func(i, j int) bool { return len(c.routes[i].prefix) > len(c.routes[j].prefix) })
}

// resolve returns the backend whose mounted prefix is the longest match for
// path, or the default backend.
func (c *Composite) resolve(path string) Backend {
	for _, r := range c.routes {
		if path == r.prefix || strings.HasPrefix(path, strings.TrimSuffix(r.prefix, "/")+"/") {
			return r.backend
		}
	}
	return c.def
}

func (c *Composite) LsInfo(ctx context.Context, path string) ([]FileInfo, error) {
	return c.resolve(path).LsInfo(ctx, path)
}

func (c *Composite) Read(ctx context.Context, path string, offset, limit int) (string, error) {
	return c.resolve(path).Read(ctx, path, offset, limit)
}

func (c *Composite) ReadRaw(ctx context.Context, path string) (runstate.FileData, error) {
	return c.resolve(path).ReadRaw(ctx, path)
}

func (c *Composite) Write(ctx context.Context, path, content string) WriteResult {
	return c.resolve(path).Write(ctx, path, content)
}

func (c *Composite) Edit(ctx context.Context, path, oldString, newString string, replaceAll bool) EditResult {
	return c.resolve(path).Edit(ctx, path, oldString, newString, replaceAll)
}

func (c *Composite) GrepRaw(ctx context.Context, pattern, path, glob string) ([]GrepMatch, error) {
	return c.resolve(path).GrepRaw(ctx, pattern, path, glob)
}

func (c *Composite) GlobInfo(ctx context.Context, pattern, path string) ([]FileInfo, error) {
	return c.resolve(path).GlobInfo(ctx, pattern, path)
}

var _ Backend = (*Composite)(nil)
