package tools

import (
	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
)

// BuildDefault assembles the full default tool set for one agent run: the
// six filesystem primitives plus write_todos always, execute only when b
// supports it, task only when spawner is non-nil, and the two network tools
// plus web_search always (wired against the nil provider unless search is
// supplied). This is the one place that knows the complete C3 tool roster
// from spec §4.3's table; callers needing a narrower set build it by hand
// from the individual New* factories instead.
func BuildDefault(state *runstate.State, b backend.Backend, emitter events.Emitter, spawner Spawner, search SearchProvider) *Set {
	set := NewSet()
	set.Add(NewWriteTodos(state, emitter))
	set.Add(NewLs(b, emitter))
	set.Add(NewReadFile(b, emitter))
	set.Add(NewWriteFile(b, emitter))
	set.Add(NewEditFile(b, emitter))
	set.Add(NewGlob(b, emitter))
	set.Add(NewGrep(b, emitter))
	if execTool, ok := NewExecute(b, emitter); ok {
		set.Add(execTool)
	}
	if spawner != nil {
		set.Add(NewTask(spawner, emitter))
	}
	set.Add(NewWebSearch(search, emitter))
	set.Add(NewHTTPRequest(emitter))
	set.Add(NewFetchURL(emitter))
	return set
}
