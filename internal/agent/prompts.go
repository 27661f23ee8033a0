package agent

// System prompt fragments concatenated at the start of every step (spec
// §4.8 step 3: "BASE_PROMPT ⧺ TODO_PROMPT ⧺ FILESYSTEM_PROMPT ⧺ (EXECUTE_PROMPT
// if sandbox) ⧺ (TASK_PROMPT if subagents) ⧺ user systemPrompt"), grounded on
// internal/executor/prompt.go's named-constant-per-section style,
// generalized from mission/issue prompt sections to agent-loop sections.
const (
	basePrompt = `You are an autonomous agent operating in a bounded tool-calling loop. ` +
		`Work methodically toward the user's goal, using the tools available to you. ` +
		`Stop calling tools and respond with plain text once the task is complete.`

	todoPrompt = `

## Planning

Use write_todos to track multi-step work. Replace the list wholesale, or pass ` +
		`merge=true to update specific entries by id without touching the rest. ` +
		`Keep exactly one todo in_progress at a time when you're actively working.`

	filesystemPrompt = `

## Filesystem

You have a virtual filesystem addressed by absolute paths. write_file only creates ` +
		`new files — read then edit_file to change an existing one. edit_file requires ` +
		`oldString to be unique in the file unless you set replaceAll. Use ls/glob/grep ` +
		`to find files before reading them.`

	executePrompt = `

## Shell

execute runs a shell command in your sandbox and returns combined stdout/stderr ` +
		`plus the exit code. A nonzero exit code is not an error — inspect the output ` +
		`yourself to decide whether the command succeeded.`

	taskPrompt = `

## Delegation

Use task to delegate a bounded, independent piece of work to a subagent. Give it a ` +
		`self-contained description — the subagent does not see your conversation, only ` +
		`its own instructions and the shared filesystem.`
)

// buildSystemPrompt assembles the full system prompt for one step, per spec
// §4.8 step 3.
func buildSystemPrompt(hasSandbox, hasSubagents bool, userPrompt string) string {
	s := basePrompt + todoPrompt + filesystemPrompt
	if hasSandbox {
		s += executePrompt
	}
	if hasSubagents {
		s += taskPrompt
	}
	if userPrompt != "" {
		s += "\n\n" + userPrompt
	}
	return s
}
