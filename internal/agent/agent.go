// Package agent implements C8, the agent loop and event stream (spec
// §4.8): it drives the model, dispatches tool calls through the approval
// gate, applies the C4 context policies, reads/writes checkpoints, and
// emits the wire-stable event taxonomy throughout. The event stream itself
// is a Go channel closed by the producer goroutine on done/error, grounded
// on internal/executor.eventLoop's channel/select shape, here driven by
// tool-call completion rather than a poll ticker since the loop is
// demand-driven, not polling.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/approval"
	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/checkpoint"
	"github.com/chrispangg/deepagentsdk-sub002/internal/ctxpolicy"
	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/chrispangg/deepagentsdk-sub002/internal/subagent"
	"github.com/chrispangg/deepagentsdk-sub002/internal/tools"
)

// defaultMaxSteps is the step budget used when Config.MaxSteps is unset
// (spec §6.5).
const defaultMaxSteps = 100

// defaultEvictionLimit is the tool-result eviction threshold used when
// Config.ToolResultEvictionLimit is unset (spec §4.4).
const defaultEvictionLimit = 20000

// SummarizationConfig configures C4 history summarization (spec §4.4,
// §6.5's "summarization?: {enabled, tokenThreshold?, keepMessages?}").
type SummarizationConfig struct {
	Enabled        bool
	TokenThreshold int // default 100_000 when Enabled and unset
	KeepMessages   int // default 10 when Enabled and unset
}

// Config is the full configuration surface accepted at agent construction
// (spec §6.5). When loaded through config.AgentConfig's viper-backed
// decoder, unrecognized keys are rejected at that layer (mapstructure's
// ErrorUnused) before ever reaching this struct.
type Config struct {
	// Client is the model-client contract (spec §6.1) this loop drives.
	Client llm.Client
	Model  string

	// SystemPrompt is appended after the built-in prompt sections (spec
	// §4.8 step 3).
	SystemPrompt string

	// Backend is the active virtual filesystem (and, if it also satisfies
	// the sandbox capability, the execute tool's target).
	Backend backend.Backend

	// Subagents, when non-nil, is consulted by the task tool. When nil but
	// IncludeGeneralPurposeAgent is true, a registry with only the
	// built-in general-purpose descriptor is synthesized.
	Subagents                 *subagent.Registry
	IncludeGeneralPurposeAgent bool

	MaxSteps int

	// ToolResultEvictionLimit is the token threshold past which a tool
	// result is evicted to the backend (spec §4.4). 0 selects
	// defaultEvictionLimit and does not disable eviction; only a negative
	// value disables it, and config.AgentConfig rejects negative values.
	ToolResultEvictionLimit int

	// EnablePromptCaching is accepted for configuration-surface parity
	// with spec §6.5. No client in internal/llm reads it, and the loop does
	// not pass it on in StepRequest, so it has no effect on requests.
	EnablePromptCaching bool

	Summarization SummarizationConfig

	// Approval gates designated tool calls (spec §4.5). ApprovalHandler
	// must be set whenever Approval has at least one gated tool —
	// otherwise New returns a construction-time error (SPEC_FULL §9 Open
	// Question 1).
	Approval        *approval.Config
	ApprovalHandler approval.Handler

	Checkpointer checkpoint.Checkpointer

	// Output configures structured output for the final assistant message
	// (spec §4.8 "Structured output").
	Output *llm.OutputSchema

	SearchProvider tools.SearchProvider

	SkillsDir string
	AgentID   string

	// noNesting, when true, omits the task tool regardless of Subagents/
	// IncludeGeneralPurposeAgent — set internally when spawning a
	// subagent, so the subagent->task->subagent cycle is prevented by
	// construction rather than a runtime depth counter (spec §9).
	noNesting bool

	// presetTools, when non-nil, is used verbatim instead of
	// tools.BuildDefault — set internally when a subagent.Descriptor
	// supplies its own Tools (spec §4.7 "tool set (defaulting to the
	// parent's)").
	presetTools *tools.Set
}

// GenerateOptions is the input to Generate/StreamWithEvents (spec §4.8).
type GenerateOptions struct {
	// Prompt, if non-empty, is appended as a fresh user message after any
	// checkpoint-loaded/caller-supplied Messages.
	Prompt string
	// Messages come before Prompt; with ThreadID, they are appended after
	// any checkpointed history.
	Messages []llm.Message
	// ThreadID, if set, loads/saves a checkpoint for this thread.
	ThreadID string
	// MaxSteps overrides Config.MaxSteps for this call only, if positive.
	MaxSteps int
}

// Result is Generate's return value (spec §4.8).
type Result struct {
	Text     string
	State    runstate.Snapshot
	Output   json.RawMessage
	Messages []llm.Message
	Aborted  bool
}

// Loop drives the model->tools->model cycle for one configuration (spec
// §4.8). A Loop holds no per-invocation state itself; todos/files live on
// a runstate.State created fresh for each Generate/StreamWithEvents call
// (or restored from a checkpoint), so one Loop can be reused safely across
// sequential runs.
type Loop struct {
	cfg Config
}

// New validates cfg, applying spec §6.5's defaults, and returns a
// ready-to-run Loop.
func New(cfg Config) (*Loop, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("agent: Client is required")
	}
	if cfg.Backend == nil {
		return nil, fmt.Errorf("agent: Backend is required")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.ToolResultEvictionLimit == 0 {
		cfg.ToolResultEvictionLimit = defaultEvictionLimit
	}
	if cfg.Summarization.Enabled {
		if cfg.Summarization.TokenThreshold <= 0 {
			cfg.Summarization.TokenThreshold = 100000
		}
		if cfg.Summarization.KeepMessages <= 0 {
			cfg.Summarization.KeepMessages = 10
		}
	}
	if cfg.Approval != nil {
		for _, name := range cfg.Approval.GatedTools() {
			if cfg.ApprovalHandler == nil {
				return nil, fmt.Errorf("agent: tool %q requires approval but no ApprovalHandler is configured", name)
			}
		}
	}
	return &Loop{cfg: cfg}, nil
}

// Generate runs the loop to completion and returns the final result (spec
// §4.8).
func (l *Loop) Generate(ctx context.Context, opts GenerateOptions) (Result, error) {
	ch := l.stream(ctx, opts, nil, nil)
	return drain(ch)
}

// StreamWithEvents runs the loop, emitting its event stream incrementally
// on the returned channel. The channel is finite and single-pass: it is
// closed after the terminal done or error event (spec §4.8).
func (l *Loop) StreamWithEvents(ctx context.Context, opts GenerateOptions) <-chan events.Event {
	return l.stream(ctx, opts, nil, nil)
}

// drain consumes a full event stream into a Result, the way Generate's
// contract requires. Kept separate from Generate so subagentSpawner.Spawn can reuse it
// for a subagent run.
func drain(ch <-chan events.Event) (Result, error) {
	var result Result
	var runErr error
	for e := range ch {
		switch e.Type {
		case events.TypeDone:
			if text, ok := e.Data["text"].(string); ok {
				result.Text = text
			}
			if state, ok := e.Data["state"].(runstate.Snapshot); ok {
				result.State = state
			}
			if msgs, ok := e.Data["messages"].([]llm.Message); ok {
				result.Messages = msgs
			}
			if out, ok := e.Data["output"].(json.RawMessage); ok {
				result.Output = out
			}
			if aborted, ok := e.Data["aborted"].(bool); ok {
				result.Aborted = aborted
			}
		case events.TypeError:
			if msg, ok := e.Data["message"].(string); ok {
				runErr = fmt.Errorf("agent: %s", msg)
			}
		}
	}
	return result, runErr
}

// stream is the shared entry point behind Generate/StreamWithEvents, which
// always pass nil for state and overrideCfg; the subagent spawner calls
// streamConfig directly instead.
func (l *Loop) stream(ctx context.Context, opts GenerateOptions, state *runstate.State, overrideCfg *Config) <-chan events.Event {
	cfg := l.cfg
	if overrideCfg != nil {
		cfg = *overrideCfg
	}
	return streamConfig(ctx, cfg, opts, state)
}

// streamConfig is the shared entry point behind Generate/StreamWithEvents
// and the subagent spawner: state, when non-nil, is used instead of a
// fresh runstate.State (the subagent-sharing-the-parent's-files case, spec
// §4.7).
func streamConfig(ctx context.Context, cfg Config, opts GenerateOptions, state *runstate.State) <-chan events.Event {
	if state == nil {
		state = runstate.New()
	}

	out := make(chan events.Event, 16)
	go func() {
		defer close(out)
		emit := func(e events.Event) {
			// Deliver whenever the buffer has room, so a cancelled context
			// does not drop the terminal done event at random.
			select {
			case out <- e:
				return
			default:
			}
			select {
			case out <- e:
			case <-ctx.Done():
			}
		}
		run(ctx, cfg, opts, state, emit)
	}()
	return out
}

// run implements the per-step protocol of spec §4.8.
func run(ctx context.Context, cfg Config, opts GenerateOptions, state *runstate.State, emit events.Emitter) {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = cfg.MaxSteps
	}

	messages := append([]llm.Message(nil), opts.Messages...)
	step := 0

	// Step 1: checkpoint load.
	if opts.ThreadID != "" && cfg.Checkpointer != nil {
		snap, ok, err := cfg.Checkpointer.Load(ctx, opts.ThreadID)
		if err != nil {
			emit(events.Error(fmt.Sprintf("loading checkpoint: %v", err)))
			return
		}
		if ok {
			messages = append(append([]llm.Message(nil), snap.Messages...), messages...)
			state.Restore(snap.State)
			step = snap.Step
			emit(events.New(events.TypeCheckpointLoaded, map[string]interface{}{
				"thread_id": opts.ThreadID,
				"step":      snap.Step,
			}))
		}
	}

	if opts.Prompt != "" {
		messages = append(messages, llm.UserMessage(llm.TextBlock(opts.Prompt)))
		emit(events.New(events.TypeUserMessage, map[string]interface{}{"text": opts.Prompt}))
	}

	gate := approval.NewGate(cfg.Approval, cfg.ApprovalHandler, emit)
	evictor := ctxpolicy.Evictor{Backend: cfg.Backend, Limit: cfg.ToolResultEvictionLimit}
	var summarizer *ctxpolicy.Summarizer
	if cfg.Summarization.Enabled {
		summarizer = &ctxpolicy.Summarizer{
			Client:       cfg.Client,
			Model:        cfg.Model,
			Threshold:    cfg.Summarization.TokenThreshold,
			KeepMessages: cfg.Summarization.KeepMessages,
		}
	}

	var spawner tools.Spawner
	if !cfg.noNesting {
		registry := cfg.Subagents
		if registry == nil && cfg.IncludeGeneralPurposeAgent {
			registry = subagent.NewRegistry(true)
		}
		if registry != nil {
			spawner = &subagentSpawner{parentCfg: cfg, parentState: state, registry: registry}
		}
	}

	toolSet := cfg.presetTools
	if toolSet == nil {
		toolSet = tools.BuildDefault(state, cfg.Backend, emit, spawner, cfg.SearchProvider)
	}
	_, hasSandbox := toolSet.Get("execute")
	systemPrompt := buildSystemPrompt(hasSandbox, spawner != nil, cfg.SystemPrompt)

	var finalText string
	var finalOutput json.RawMessage
	aborted := false

stepLoop:
	for ; step < maxSteps; step++ {
		select {
		case <-ctx.Done():
			aborted = true
			break stepLoop
		default:
		}

		if summarizer != nil && summarizer.ShouldSummarize(messages) {
			summarized, err := summarizer.Summarize(ctx, messages)
			if err != nil {
				emit(events.Error(fmt.Sprintf("summarization: %v", err)))
				return
			}
			messages = summarized
		}

		emit(events.StepStart(step))

		req := llm.StepRequest{
			Model:    cfg.Model,
			System:   systemPrompt,
			Messages: messages,
			Tools:    toolSet.Definitions(),
			Output:   cfg.Output,
		}
		res, err := cfg.Client.Step(ctx, req)
		if err != nil {
			emit(events.Error(fmt.Sprintf("model step: %v", err)))
			return
		}

		if text := res.Message.Text(); text != "" {
			finalText = text
			emit(events.New(events.TypeText, map[string]interface{}{"text": text}))
		}
		if len(res.Output) > 0 {
			finalOutput = res.Output
		}
		messages = append(messages, res.Message)

		toolCalls := res.Message.ToolCalls()
		done := len(toolCalls) == 0 || res.StopReason != llm.StopToolUse

		if !done {
			resultBlocks := make([]llm.ContentBlock, 0, len(toolCalls))
			for _, call := range toolCalls {
				emit(events.ToolCall(call.ToolCallID, call.ToolName, json.RawMessage(call.ToolInput)))

				resultText, isError, err := dispatchTool(ctx, gate, toolSet, evictor, cfg.ToolResultEvictionLimit, call)
				if err != nil {
					emit(events.Error(fmt.Sprintf("dispatching %s: %v", call.ToolName, err)))
					return
				}

				emit(events.ToolResult(call.ToolCallID, resultText, isError))
				resultBlocks = append(resultBlocks, llm.ToolResultBlock(call.ToolCallID, resultText, isError))
			}
			messages = append(messages, llm.UserMessage(resultBlocks...))
		}
		emit(events.StepFinish(step))

		if cfg.Checkpointer != nil && opts.ThreadID != "" {
			snap := checkpoint.Snapshot{
				Messages: append([]llm.Message(nil), messages...),
				State:    state.Snapshot(),
			}
			if err := cfg.Checkpointer.Save(ctx, opts.ThreadID, step+1, snap); err != nil {
				emit(events.Error(fmt.Sprintf("saving checkpoint: %v", err)))
				return
			}
			emit(events.New(events.TypeCheckpointSaved, map[string]interface{}{
				"thread_id": opts.ThreadID,
				"step":      step + 1,
			}))
		}

		if done {
			break stepLoop
		}
	}

	emit(events.New(events.TypeDone, map[string]interface{}{
		"text":     finalText,
		"state":    state.Snapshot(),
		"messages": messages,
		"output":   finalOutput,
		"aborted":  aborted,
	}))
}

// dispatchTool runs one tool call through the approval gate, the tool
// itself, and eviction, in that order (spec §4.8 step 5, §4.4, §4.5).
func dispatchTool(
	ctx context.Context,
	gate *approval.Gate,
	toolSet *tools.Set,
	evictor ctxpolicy.Evictor,
	evictionLimit int,
	call llm.ContentBlock,
) (text string, isError bool, err error) {
	approved, aerr := gate.Check(ctx, call.ToolCallID, call.ToolName, call.ToolInput)
	if aerr != nil {
		return "", false, aerr
	}
	if !approved {
		return approval.DeniedResult, false, nil
	}

	out, execErr := toolSet.Execute(ctx, call.ToolName, call.ToolInput)
	if execErr != nil {
		return execErr.Error(), true, nil
	}

	if evictionLimit > 0 {
		evicted, fired, evErr := evictor.Apply(ctx, call.ToolName, call.ToolCallID, out)
		if evErr != nil {
			// A failed eviction write keeps the original result; it is a
			// tool-layer failure and does not end the run.
			return out, false, nil
		}
		if fired {
			return evicted, false, nil
		}
	}
	return out, false, nil
}
