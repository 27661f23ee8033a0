package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedClientRepliesInOrder(t *testing.T) {
	client := NewScriptedClient(
		StepResult{Message: AssistantMessage(TextBlock("first")), StopReason: StopEndTurn},
		StepResult{Message: AssistantMessage(TextBlock("second")), StopReason: StopEndTurn},
	)

	res1, err := client.Step(context.Background(), StepRequest{})
	require.NoError(t, err)
	assert.Equal(t, "first", res1.Message.Text())

	res2, err := client.Step(context.Background(), StepRequest{})
	require.NoError(t, err)
	assert.Equal(t, "second", res2.Message.Text())

	assert.Equal(t, 2, client.Calls())
}

func TestScriptedClientExhaustedReturnsError(t *testing.T) {
	client := NewScriptedClient(StepResult{Message: AssistantMessage(TextBlock("only"))})
	_, err := client.Step(context.Background(), StepRequest{})
	require.NoError(t, err)

	_, err = client.Step(context.Background(), StepRequest{})
	assert.Error(t, err)
}

func TestMessageToolCallsFiltersTextBlocks(t *testing.T) {
	msg := AssistantMessage(
		TextBlock("thinking..."),
		ToolUseBlock("tc-1", "read_file", []byte(`{"path":"/a.txt"}`)),
	)
	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "read_file", calls[0].ToolName)
	assert.Equal(t, "thinking...", msg.Text())
}
