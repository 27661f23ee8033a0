package ctxpolicy

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/tokens"
)

// SummarizationPrompt is the fixed system prompt used for the one-shot
// summarization model call (spec §4.4), grounded on the teacher's
// prompt-constant style in internal/executor/prompt.go (named constants
// rather than inline string literals scattered across call sites).
const SummarizationPrompt = "Summarize the conversation so far, preserving every concrete fact, " +
	"file path, decision, and open question a continuation of the work would need. Be dense; " +
	"omit pleasantries and restated instructions."

// Summarizer replaces all but the last KeepMessages entries of a
// conversation with a single summary message once the estimated total
// token count crosses Threshold (spec §4.4). A Threshold of 0 disables the
// policy.
type Summarizer struct {
	Client       llm.Client
	Model        string
	Threshold    int
	KeepMessages int
}

// ShouldSummarize reports whether messages' estimated total token count
// exceeds s.Threshold.
func (s Summarizer) ShouldSummarize(messages []llm.Message) bool {
	if s.Threshold <= 0 {
		return false
	}
	total := 0
	for _, m := range messages {
		total += tokens.Estimate(m.Text())
	}
	return total > s.Threshold
}

// Summarize performs the replacement: the head of the transcript is folded
// into one synthesized summary message inserted at the head of the result,
// the tail of KeepMessages is preserved verbatim (order intact), and any
// tool call left dangling by the cut is patched so the model never sees an
// orphaned tool_use (spec §4.4).
func (s Summarizer) Summarize(ctx context.Context, messages []llm.Message) ([]llm.Message, error) {
	if s.KeepMessages < 0 {
		s.KeepMessages = 0
	}
	if len(messages) <= s.KeepMessages {
		return messages, nil
	}

	cut := len(messages) - s.KeepMessages
	head := messages[:cut]
	tail := patchDangling(messages[cut:])

	var transcript strings.Builder
	for _, m := range head {
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Text())
	}

	req := llm.StepRequest{
		Model:    s.Model,
		System:   SummarizationPrompt,
		Messages: []llm.Message{llm.UserMessage(llm.TextBlock(transcript.String()))},
	}
	res, err := s.Client.Step(ctx, req)
	if err != nil {
		return messages, fmt.Errorf("summarization model call: %w", err)
	}

	summary := llm.UserMessage(llm.TextBlock("[Summary of earlier conversation]\n" + res.Message.Text()))
	return append([]llm.Message{summary}, tail...), nil
}

// patchDangling ensures no assistant message in messages has a tool_use
// block whose matching tool_result isn't also present in messages: for
// each such block, a synthetic "summarized" tool-result message is
// inserted right after, unless the assistant message is the trailing
// entry with nothing after it at all, in which case it is dropped outright
// (spec §4.4's two documented remedies).
func patchDangling(messages []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for i, m := range messages {
		calls := m.ToolCalls()
		if len(calls) == 0 {
			out = append(out, m)
			continue
		}

		answered := make(map[string]bool)
		if i+1 < len(messages) {
			for _, b := range messages[i+1].Content {
				if b.Type == llm.BlockToolResult {
					answered[b.ToolResultFor] = true
				}
			}
		}
		var missing []llm.ContentBlock
		for _, c := range calls {
			if !answered[c.ToolCallID] {
				missing = append(missing, c)
			}
		}
		if len(missing) == 0 {
			out = append(out, m)
			continue
		}
		if i == len(messages)-1 {
			continue // trailing dangling tool call: drop the message
		}

		out = append(out, m)
		blocks := make([]llm.ContentBlock, 0, len(missing))
		for _, c := range missing {
			blocks = append(blocks, llm.ToolResultBlock(c.ToolCallID, "[summarized]", false))
		}
		out = append(out, llm.UserMessage(blocks...))
	}
	return out
}
