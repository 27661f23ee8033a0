package ctxpolicy

import (
	"context"
	"testing"

	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldSummarizeRespectsThreshold(t *testing.T) {
	s := Summarizer{Threshold: 10, KeepMessages: 1}
	under := []llm.Message{llm.UserMessage(llm.TextBlock("hi"))}
	assert.False(t, s.ShouldSummarize(under))

	over := []llm.Message{llm.UserMessage(llm.TextBlock("this message is much longer than the threshold allows"))}
	assert.True(t, s.ShouldSummarize(over))
}

func TestShouldSummarizeDisabledAtZeroThreshold(t *testing.T) {
	s := Summarizer{Threshold: 0}
	assert.False(t, s.ShouldSummarize([]llm.Message{llm.UserMessage(llm.TextBlock("anything at all, regardless of length"))}))
}

func TestSummarizeKeepsTailAndFoldsHead(t *testing.T) {
	client := llm.NewScriptedClient(llm.StepResult{
		Message:    llm.AssistantMessage(llm.TextBlock("condensed summary")),
		StopReason: llm.StopEndTurn,
	})
	s := Summarizer{Client: client, Model: "test-model", Threshold: 1, KeepMessages: 1}

	messages := []llm.Message{
		llm.UserMessage(llm.TextBlock("first")),
		llm.AssistantMessage(llm.TextBlock("second")),
		llm.UserMessage(llm.TextBlock("third")),
	}
	out, err := s.Summarize(context.Background(), messages)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Contains(t, out[0].Text(), "condensed summary")
	assert.Equal(t, "third", out[1].Text())
}

func TestSummarizeNoOpWhenUnderKeepCount(t *testing.T) {
	s := Summarizer{KeepMessages: 5}
	messages := []llm.Message{llm.UserMessage(llm.TextBlock("only one"))}
	out, err := s.Summarize(context.Background(), messages)
	require.NoError(t, err)
	assert.Equal(t, messages, out)
}

func TestPatchDanglingInsertsSyntheticResultForOrphanedToolCall(t *testing.T) {
	messages := []llm.Message{
		llm.AssistantMessage(llm.ToolUseBlock("c1", "read_file", nil)),
		llm.UserMessage(llm.TextBlock("unrelated follow-up")),
	}
	out := patchDangling(messages)
	require.Len(t, out, 3)
	require.Len(t, out[1].Content, 1)
	assert.Equal(t, llm.BlockToolResult, out[1].Content[0].Type)
	assert.Equal(t, "c1", out[1].Content[0].ToolResultFor)
}

func TestPatchDanglingDropsTrailingOrphanedToolCall(t *testing.T) {
	messages := []llm.Message{
		llm.UserMessage(llm.TextBlock("earlier")),
		llm.AssistantMessage(llm.ToolUseBlock("c1", "read_file", nil)),
	}
	out := patchDangling(messages)
	require.Len(t, out, 1)
	assert.Equal(t, "earlier", out[0].Text())
}
