// Package ctxpolicy implements the C4 context-management policies: tool
// result eviction and conversation history summarization (spec §4.4). Both
// are pure, orthogonal decorators — eviction over one tool result at a
// time, summarization over the whole message list — composed by the agent
// loop rather than by each other, per spec §9's design note that the two
// "are decorators over the tool layer and the message list respectively;
// both are pure functions of their inputs and can be tested in isolation."
package ctxpolicy

import (
	"context"
	"fmt"

	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/tokens"
)

// EvictionDir is where oversized tool results are persisted (spec §6.4).
const EvictionDir = "/large_tool_results"

// Evictor replaces an oversized tool result with a pointer to a
// backend-stored file (spec §4.4). A Limit of 0 disables the feature
// entirely; both it and Summarizer share internal/tokens.Estimate so their
// thresholds never drift apart (spec §6.2).
type Evictor struct {
	Backend backend.Backend
	Limit   int
}

// Apply inspects result and, if it is oversized, persists it to
// EvictionDir/<toolName>_<toolCallID>.txt and returns a short pointer
// message in its place. The returned bool reports whether eviction fired.
func (e Evictor) Apply(ctx context.Context, toolName, toolCallID, result string) (string, bool, error) {
	if e.Limit <= 0 {
		return result, false, nil
	}
	if tokens.Estimate(result) <= e.Limit {
		return result, false, nil
	}

	path := fmt.Sprintf("%s/%s_%s.txt", EvictionDir, toolName, toolCallID)
	res := e.Backend.Write(ctx, path, result)
	if !res.Success {
		// Eviction storage itself failing must not silently drop the tool's
		// actual output — surface the original result uncapped rather than
		// losing it.
		return result, false, fmt.Errorf("evicting %s result to %s: %s", toolName, path, res.Error)
	}

	pointer := fmt.Sprintf(
		"[Tool result too large: %d bytes, stored at %s. Use read_file to inspect it.]",
		len(result), path,
	)
	return pointer, true, nil
}
