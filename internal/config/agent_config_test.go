package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def.Model, cfg.Model)
	assert.Equal(t, def.MaxSteps, cfg.MaxSteps)
	assert.Equal(t, def.ToolResultEvictionLimit, cfg.ToolResultEvictionLimit)
	assert.Equal(t, "memory", cfg.Backend.Kind)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model: claude-opus-4-1
max_steps: 25
summarization:
  enabled: true
  token_threshold: 50000
  keep_messages: 4
approval:
  always_tools: ["execute"]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-1", cfg.Model)
	assert.Equal(t, 25, cfg.MaxSteps)
	assert.True(t, cfg.Summarization.Enabled)
	assert.Equal(t, 50000, cfg.Summarization.TokenThreshold)
	assert.Equal(t, []string{"execute"}, cfg.Approval.AlwaysTools)
}

func TestLoadRejectsUnrecognizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("totally_bogus_key: true\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsNegativeMaxSteps(t *testing.T) {
	cfg := Default()
	cfg.MaxSteps = -1
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresRootForDiskBackend(t *testing.T) {
	cfg := Default()
	cfg.Backend.Kind = "disk"
	assert.Error(t, cfg.Validate())

	cfg.Backend.Root = t.TempDir()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresDirForFileCheckpoint(t *testing.T) {
	cfg := Default()
	cfg.Checkpoint.Kind = "file"
	assert.Error(t, cfg.Validate())

	cfg.Checkpoint.Dir = t.TempDir()
	assert.NoError(t, cfg.Validate())
}

func TestBuildBackendDefaultsToMemory(t *testing.T) {
	cfg := Default()
	b, err := cfg.BuildBackend()
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestBuildCheckpointerNilWhenUnconfigured(t *testing.T) {
	cfg := Default()
	cp, err := cfg.BuildCheckpointer()
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestBuildCheckpointerMemory(t *testing.T) {
	cfg := Default()
	cfg.Checkpoint.Kind = "memory"
	cp, err := cfg.BuildCheckpointer()
	require.NoError(t, err)
	assert.NotNil(t, cp)
}

func TestBuildApprovalNilWhenNoAlwaysTools(t *testing.T) {
	cfg := Default()
	assert.Nil(t, cfg.BuildApproval())
}

func TestBuildApprovalGatesConfiguredTools(t *testing.T) {
	cfg := Default()
	cfg.Approval.AlwaysTools = []string{"execute"}
	approvalCfg := cfg.BuildApproval()
	require.NotNil(t, approvalCfg)
	assert.True(t, approvalCfg.Gated("execute"))
	assert.False(t, approvalCfg.Gated("read_file"))
}

func TestBuildAssemblesAgentConfig(t *testing.T) {
	cfg := Default()
	cfg.Model = "claude-sonnet-4-5"
	agentCfg, err := cfg.Build()
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", agentCfg.Model)
	assert.NotNil(t, agentCfg.Backend)
	assert.Nil(t, agentCfg.Checkpointer)
	assert.Nil(t, agentCfg.Approval)
}
