// Package runstate defines the per-invocation state shared by every tool in
// an agent run: the todo list and the virtual filesystem's file table.
//
// A State is owned exclusively by the agent run that created it (spec §5);
// the only mutator of Todos is the write_todos tool, and all file mutations
// go through a backend.Backend rather than touching Files directly, mirroring
// how internal/sandbox.manager guards activeSandboxes with a single mutex
// rather than letting callers reach into the map.
package runstate

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// TodoStatus is the lifecycle state of a single Todo.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

// MaxTodoContentLen is the content length limit enforced by write_todos.
const MaxTodoContentLen = 100

// IsValidTodoStatus reports whether s is one of the four recognized states.
func IsValidTodoStatus(s TodoStatus) bool {
	switch s {
	case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		return true
	default:
		return false
	}
}

// Todo is a single planning entry owned by the agent's run state.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// Validate checks the content-length and status invariants from spec §3.
func (t Todo) Validate() error {
	if len(t.Content) > MaxTodoContentLen {
		return fmt.Errorf("todo %q content exceeds %d chars", t.ID, MaxTodoContentLen)
	}
	if !IsValidTodoStatus(t.Status) {
		return fmt.Errorf("todo %q has invalid status %q", t.ID, t.Status)
	}
	return nil
}

// FileData is the content and timestamps of one virtual file.
type FileData struct {
	Content    []string  `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Text joins Content back into the file's full text, newline-separated.
func (f FileData) Text() string {
	return strings.Join(f.Content, "\n")
}

// NewFileData builds a FileData from raw text at a given instant, splitting
// on newlines the way write_file does before storing into a backend.
func NewFileData(content string, at time.Time) FileData {
	return FileData{
		Content:    SplitLines(content),
		CreatedAt:  at,
		ModifiedAt: at,
	}
}

// SplitLines splits text on "\n" the way every backend stores file content:
// as an ordered sequence of lines, never containing embedded newlines.
func SplitLines(content string) []string {
	if content == "" {
		return []string{""}
	}
	return strings.Split(content, "\n")
}

// TodoList is a mutex-guarded todo slice. It is never shared between a
// parent run and its subagents: each subagent gets its own fresh TodoList
// even though it shares the parent's file table (spec §4.7).
type TodoList struct {
	mu    sync.RWMutex
	todos []Todo
}

// NewTodoList returns an empty todo list.
func NewTodoList() *TodoList {
	return &TodoList{}
}

// Snapshot returns a copy of the current todos, in order.
func (l *TodoList) Snapshot() []Todo {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Todo, len(l.todos))
	copy(out, l.todos)
	return out
}

// Replace overwrites the list wholesale (write_todos, merge=false).
func (l *TodoList) Replace(todos []Todo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.todos = append([]Todo(nil), todos...)
}

// Merge merges todos into the existing list by id (write_todos, merge=true):
// existing ids are updated in place, new ids are appended in argument order.
// Ids are preserved; arbitrary status transitions are permitted since the
// tool itself does not enforce monotonicity (spec §8) — only a caller
// asserting a forward-only status produces forward-only behavior.
func (l *TodoList) Merge(todos []Todo) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byID := make(map[string]int, len(l.todos))
	for i, t := range l.todos {
		byID[t.ID] = i
	}
	for _, t := range todos {
		if i, ok := byID[t.ID]; ok {
			l.todos[i] = t
		} else {
			byID[t.ID] = len(l.todos)
			l.todos = append(l.todos, t)
		}
	}
}

// FileTable is a mutex-guarded path->FileData map. This is the storage a
// memory-backed backend.Backend wraps directly, and the object that is
// actually shared (by reference) between a parent run and its subagents,
// since "the subagent's backend is the parent's" (spec §4.7).
type FileTable struct {
	mu    sync.RWMutex
	files map[string]FileData
}

// NewFileTable returns an empty file table.
func NewFileTable() *FileTable {
	return &FileTable{files: make(map[string]FileData)}
}

// Get looks up a file by absolute path.
func (t *FileTable) Get(path string) (FileData, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.files[path]
	return f, ok
}

// Set inserts or overwrites a file's content.
func (t *FileTable) Set(path string, data FileData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files[path] = data
}

// Delete removes a file, if present.
func (t *FileTable) Delete(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, path)
}

// Snapshot returns a copy of the full path->FileData table, for listing,
// globbing, grepping, and checkpointing.
func (t *FileTable) Snapshot() map[string]FileData {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]FileData, len(t.files))
	for k, v := range t.files {
		out[k] = v
	}
	return out
}

// State is the {todos, files} tuple created per top-level agent invocation.
// Files is shared verbatim with any subagent spawned from this run; Todos
// is not (spec §4.7, §3 "Lifecycle").
type State struct {
	Todos *TodoList
	Files *FileTable
}

// New returns a fresh run state with its own todo list and file table.
func New() *State {
	return &State{Todos: NewTodoList(), Files: NewFileTable()}
}

// NewSubagentState returns a state for a subagent run: the same file table
// (by reference) as s, but a brand new, empty todo list.
func (s *State) NewSubagentState() *State {
	return &State{Todos: NewTodoList(), Files: s.Files}
}

// Snapshot is a point-in-time, checkpoint-serializable copy of a State.
type Snapshot struct {
	Todos []Todo              `json:"todos"`
	Files map[string]FileData `json:"files"`
}

// Snapshot captures the current {todos, files} for checkpointing.
func (s *State) Snapshot() Snapshot {
	return Snapshot{Todos: s.Todos.Snapshot(), Files: s.Files.Snapshot()}
}

// Restore overwrites this State's todos and files from a snapshot, used
// when the agent loop loads a checkpoint at entry (spec §4.6, §4.8 step 1).
func (s *State) Restore(snap Snapshot) {
	s.Todos.Replace(snap.Todos)
	for path, data := range snap.Files {
		s.Files.Set(path, data)
	}
}
