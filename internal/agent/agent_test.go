package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/chrispangg/deepagentsdk-sub002/internal/approval"
	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/checkpoint"
	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/chrispangg/deepagentsdk-sub002/internal/subagent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolUse(id, name string, input interface{}) llm.ContentBlock {
	raw, err := json.Marshal(input)
	if err != nil {
		panic(err)
	}
	return llm.ToolUseBlock(id, name, raw)
}

func finalText(text string) llm.StepResult {
	return llm.StepResult{Message: llm.AssistantMessage(llm.TextBlock(text)), StopReason: llm.StopEndTurn}
}

func toolStep(blocks ...llm.ContentBlock) llm.StepResult {
	return llm.StepResult{Message: llm.AssistantMessage(blocks...), StopReason: llm.StopToolUse}
}

// Scenario 1: planning+write (spec §8.1).
func TestGenerate_PlanningAndWrite(t *testing.T) {
	client := llm.NewScriptedClient(
		toolStep(toolUse("c1", "write_todos", map[string]interface{}{
			"todos": []map[string]interface{}{{"id": "1", "content": "draft", "status": "in_progress"}},
		})),
		toolStep(toolUse("c2", "write_file", map[string]interface{}{
			"path": "/summary.md", "content": "TypeScript is...",
		})),
		finalText("Done"),
	)

	loop, err := New(Config{Client: client, Model: "test-model", Backend: backend.NewMemory(runstate.NewFileTable())})
	require.NoError(t, err)

	result, err := loop.Generate(context.Background(), GenerateOptions{Prompt: "Research TypeScript; write /summary.md"})
	require.NoError(t, err)

	require.Len(t, result.State.Todos, 1)
	require.Contains(t, result.State.Files, "/summary.md")
	assert.Equal(t, []string{"TypeScript is..."}, result.State.Files["/summary.md"].Content)
	assert.Equal(t, "Done", result.Text)
}

// Scenario 2: edit ambiguity (spec §8.2).
func TestGenerate_EditAmbiguity(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	require.True(t, b.Write(context.Background(), "/a.txt", "foo\nfoo\n").Success)

	client := llm.NewScriptedClient(
		toolStep(toolUse("c1", "edit_file", map[string]interface{}{
			"path": "/a.txt", "oldString": "foo", "newString": "bar", "replaceAll": false,
		})),
		finalText("done"),
	)

	loop, err := New(Config{Client: client, Model: "test-model", Backend: b})
	require.NoError(t, err)

	var toolResult string
	for e := range loop.StreamWithEvents(context.Background(), GenerateOptions{Prompt: "edit"}) {
		if e.Type == events.TypeToolResult {
			toolResult = e.Data["result"].(string)
		}
	}
	assert.Contains(t, toolResult, "appears 2 times")

	after, err := b.ReadRaw(context.Background(), "/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "foo\nfoo\n", after.Text())
}

// Scenario 3: eviction (spec §8.3).
func TestGenerate_Eviction(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	big := make([]byte, 10000)
	for i := range big {
		big[i] = 'x'
	}
	require.True(t, b.Write(context.Background(), "/big.txt", string(big)).Success)

	client := llm.NewScriptedClient(
		toolStep(toolUse("c1", "read_file", map[string]interface{}{"path": "/big.txt"})),
		finalText("done"),
	)

	loop, err := New(Config{
		Client: client, Model: "test-model", Backend: b,
		ToolResultEvictionLimit: 100,
	})
	require.NoError(t, err)

	var toolResult string
	for e := range loop.StreamWithEvents(context.Background(), GenerateOptions{Prompt: "read it"}) {
		if e.Type == events.TypeToolResult {
			toolResult = e.Data["result"].(string)
		}
	}
	assert.Contains(t, toolResult, "/large_tool_results/read_file_")

	stored, err := b.ReadRaw(context.Background(), "/large_tool_results/read_file_c1.txt")
	require.NoError(t, err)
	assert.Contains(t, stored.Text(), "xxxx")
}

// Scenario 4: approval deny (spec §8.4).
func TestGenerate_ApprovalDeny(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	client := llm.NewScriptedClient(
		toolStep(toolUse("c1", "write_file", map[string]interface{}{"path": "/x", "content": "y"})),
		finalText("done"),
	)

	approvalCfg := approval.NewConfig()
	approvalCfg.Always("write_file")
	handler := func(ctx context.Context, req approval.Request) (bool, error) { return false, nil }

	loop, err := New(Config{
		Client: client, Model: "test-model", Backend: b,
		Approval: approvalCfg, ApprovalHandler: handler,
	})
	require.NoError(t, err)

	sink := events.NewSink()
	_, err = drain(forward(loop.StreamWithEvents(context.Background(), GenerateOptions{Prompt: "write"}), sink))
	require.NoError(t, err)

	assert.Len(t, sink.OfType(events.TypeApprovalRequested), 1)
	assert.Empty(t, sink.OfType(events.TypeFileWritten))

	toolResults := sink.OfType(events.TypeToolResult)
	require.Len(t, toolResults, 1)
	assert.Equal(t, approval.DeniedResult, toolResults[0].Data["result"])

	_, err = b.ReadRaw(context.Background(), "/x")
	assert.Error(t, err)
}

// forward drains ch into sink and returns a channel drain() can consume,
// since Sink.Emit isn't itself an Emitter usable as a channel.
func forward(ch <-chan events.Event, sink *events.Sink) <-chan events.Event {
	out := make(chan events.Event, 16)
	go func() {
		defer close(out)
		for e := range ch {
			sink.Emit(e)
			out <- e
		}
	}()
	return out
}

// Scenario 5: checkpoint resume (spec §8.5).
func TestGenerate_CheckpointResume(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	cp := checkpoint.NewMemory("")

	clientA := llm.NewScriptedClient(finalText("first"))
	loopA, err := New(Config{Client: clientA, Model: "test-model", Backend: b, Checkpointer: cp})
	require.NoError(t, err)

	_, err = loopA.Generate(context.Background(), GenerateOptions{Prompt: "start", ThreadID: "t1"})
	require.NoError(t, err)

	snapshots, err := cp.List(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	stepAfterA := snapshots[0].Step

	clientB := llm.NewScriptedClient(finalText("second"))
	loopB, err := New(Config{Client: clientB, Model: "test-model", Backend: b, Checkpointer: cp})
	require.NoError(t, err)

	sink := events.NewSink()
	_, err = drain(forward(loopB.StreamWithEvents(context.Background(), GenerateOptions{Prompt: "continue", ThreadID: "t1"}), sink))
	require.NoError(t, err)

	loaded := sink.OfType(events.TypeCheckpointLoaded)
	require.Len(t, loaded, 1)
	assert.Equal(t, stepAfterA, loaded[0].Data["step"])
}

// Scenario 6: subagent with output schema (spec §8.6). A single
// ScriptedClient is shared by the parent loop and the nested subagent loop
// (subagentSpawner reuses cfg.Client verbatim), so its script is consumed
// in true call order: the parent's tool-call step, then the subagent's one
// step (run to completion inside dispatching the task tool), then the
// parent's own finalizing step once task returns.
func TestGenerate_SubagentWithOutputSchema(t *testing.T) {
	b := backend.NewMemory(runstate.NewFileTable())
	subagentOutput := json.RawMessage(`{"sentiment":"positive","score":0.9}`)

	registry := subagent.NewRegistry(false)
	registry.Register(subagent.Descriptor{
		Name:   "sentiment",
		Output: &llm.OutputSchema{Schema: json.RawMessage(`{"type":"object"}`)},
	})

	client := llm.NewScriptedClient(
		toolStep(toolUse("c1", "task", map[string]interface{}{
			"subagent_type": "sentiment", "description": "classify: great product",
		})),
		llm.StepResult{Message: llm.AssistantMessage(llm.TextBlock("ok")), StopReason: llm.StopEndTurn, Output: subagentOutput},
		finalText("done"),
	)

	loop, err := New(Config{Client: client, Model: "test-model", Backend: b, Subagents: registry})
	require.NoError(t, err)

	sink := events.NewSink()
	result, err := drain(forward(loop.StreamWithEvents(context.Background(), GenerateOptions{Prompt: "classify it"}), sink))
	require.NoError(t, err)

	toolResults := sink.OfType(events.TypeToolResult)
	require.Len(t, toolResults, 1)
	resultText, ok := toolResults[0].Data["result"].(string)
	require.True(t, ok)
	assert.Contains(t, resultText, "[Structured Output]")
	assert.Contains(t, resultText, `"sentiment":"positive"`)

	assert.Empty(t, result.Output)
}
