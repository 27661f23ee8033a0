package approval

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigUngatedAutoApproves(t *testing.T) {
	cfg := NewConfig()
	gate := NewGate(cfg, nil, nil)

	approved, err := gate.Check(context.Background(), "c1", "write_file", nil)
	require.NoError(t, err)
	assert.True(t, approved)
}

func TestConfigAlwaysGatesRegardlessOfArgs(t *testing.T) {
	cfg := NewConfig()
	cfg.Always("write_file")

	var seen Request
	handler := func(ctx context.Context, req Request) (bool, error) {
		seen = req
		return true, nil
	}
	gate := NewGate(cfg, handler, nil)

	approved, err := gate.Check(context.Background(), "c1", "write_file", json.RawMessage(`{"path":"/x"}`))
	require.NoError(t, err)
	assert.True(t, approved)
	assert.Equal(t, "write_file", seen.ToolName)
	assert.Equal(t, "c1", seen.ToolCallID)
	assert.NotEmpty(t, seen.ApprovalID)
}

func TestConfigWhenEvaluatesPredicate(t *testing.T) {
	cfg := NewConfig()
	cfg.When("execute", func(args json.RawMessage) bool {
		var in struct {
			Command string `json:"command"`
		}
		_ = json.Unmarshal(args, &in)
		return in.Command == "rm -rf /"
	})

	gate := NewGate(cfg, func(ctx context.Context, req Request) (bool, error) { return false, nil }, nil)

	approved, err := gate.Check(context.Background(), "c1", "execute", json.RawMessage(`{"command":"ls"}`))
	require.NoError(t, err)
	assert.True(t, approved, "non-matching predicate should auto-approve")

	approved, err = gate.Check(context.Background(), "c2", "execute", json.RawMessage(`{"command":"rm -rf /"}`))
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestGateCheckErrorsWithoutHandler(t *testing.T) {
	cfg := NewConfig()
	cfg.Always("write_file")
	gate := NewGate(cfg, nil, nil)

	_, err := gate.Check(context.Background(), "c1", "write_file", nil)
	assert.Error(t, err)
}

func TestConfigClearRemovesRule(t *testing.T) {
	cfg := NewConfig()
	cfg.Always("write_file")
	assert.True(t, cfg.Gated("write_file"))

	cfg.Clear("write_file")
	assert.False(t, cfg.Gated("write_file"))
	assert.Empty(t, cfg.GatedTools())
}
