package llm

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedClient is a deterministic Client test double: each call to Step
// consumes the next entry of a fixed script, in order, regardless of the
// request it was actually given. This is what the spec §8 end-to-end
// scenarios drive the agent loop with, so a test can assert on the exact
// tool calls and text the loop produces without a network dependency.
type ScriptedClient struct {
	mu     sync.Mutex
	script []StepResult
	calls  int
}

// NewScriptedClient returns a Client that replays script in order, one
// StepResult per Step call.
func NewScriptedClient(script ...StepResult) *ScriptedClient {
	return &ScriptedClient{script: script}
}

// Step returns the next scripted StepResult, ignoring req. Calling it past
// the end of the script is a test-authoring bug and returns an error rather
// than panicking.
func (s *ScriptedClient) Step(ctx context.Context, req StepRequest) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls >= len(s.script) {
		return StepResult{}, fmt.Errorf("scripted client exhausted after %d calls", s.calls)
	}
	res := s.script[s.calls]
	s.calls++
	return res, nil
}

// Calls reports how many Step calls have been consumed so far.
func (s *ScriptedClient) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ Client = (*ScriptedClient)(nil)
