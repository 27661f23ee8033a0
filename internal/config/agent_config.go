// Package config implements the C8/C10 configuration surface (spec §6.5):
// AgentConfig is loadable from an AGENT_*-prefixed environment and an
// optional YAML/TOML file via github.com/spf13/viper, with unrecognized
// keys rejected at decode time, and Build turns the decoded value into a
// ready-to-use agent.Config. Grounded on the teacher's own
// EventRetentionConfigFromEnv/Validate pair in event_retention.go (defaults
// struct + env overrides + a Validate pass before the config is trusted),
// generalized from hand-parsed os.Getenv calls to viper's declarative
// decode because this surface also needs file-based loading, which the
// teacher's env-only config never did.
package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/chrispangg/deepagentsdk-sub002/internal/agent"
	"github.com/chrispangg/deepagentsdk-sub002/internal/approval"
	"github.com/chrispangg/deepagentsdk-sub002/internal/backend"
	"github.com/chrispangg/deepagentsdk-sub002/internal/checkpoint"
	"github.com/chrispangg/deepagentsdk-sub002/internal/runstate"
	"github.com/chrispangg/deepagentsdk-sub002/internal/sqlitekv"
)

// SummarizationConfig mirrors agent.SummarizationConfig as a plain,
// viper-decodable value.
type SummarizationConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TokenThreshold int  `mapstructure:"token_threshold"`
	KeepMessages   int  `mapstructure:"keep_messages"`
}

// ApprovalConfig lists tools that always require approval. Dynamic
// per-argument predicates (approval.Config.When) aren't expressible from a
// config file and are left to callers that build an approval.Config in
// code and assign it to agent.Config.Approval directly.
type ApprovalConfig struct {
	AlwaysTools []string `mapstructure:"always_tools"`
}

// BackendConfig selects and parameterizes the virtual filesystem backend.
type BackendConfig struct {
	// Kind is "memory" (default), "disk", or "kv".
	Kind string `mapstructure:"kind"`
	// Root is the rooted host directory, required when Kind is "disk".
	Root string `mapstructure:"root"`
	// SQLitePath is the sqlite database path, required when Kind is "kv".
	SQLitePath string `mapstructure:"sqlite_path"`
	// Prefix namespaces the kv backend's keys, default "backend".
	Prefix string `mapstructure:"prefix"`
}

// CheckpointConfig selects and parameterizes the checkpointer.
type CheckpointConfig struct {
	// Kind is "" (disabled, default), "memory", "file", or "kv".
	Kind string `mapstructure:"kind"`
	// Dir is the checkpoint directory, required when Kind is "file".
	Dir string `mapstructure:"dir"`
	// SQLitePath is the sqlite database path, required when Kind is "kv"
	// and no BackendConfig "kv" store is already open to share.
	SQLitePath string `mapstructure:"sqlite_path"`
	// Prefix namespaces the kv checkpointer's keys, default "checkpoints".
	Prefix string `mapstructure:"prefix"`
}

// AgentConfig is the full decoded configuration surface (spec §6.5).
// Unrecognized keys in either the environment or a config file are a
// construction-time error, enforced in Load via mapstructure.ErrorUnused.
type AgentConfig struct {
	Model                      string `mapstructure:"model"`
	SystemPrompt               string `mapstructure:"system_prompt"`
	MaxSteps                   int    `mapstructure:"max_steps"`
	ToolResultEvictionLimit    int    `mapstructure:"tool_result_eviction_limit"`
	EnablePromptCaching        bool   `mapstructure:"enable_prompt_caching"`
	IncludeGeneralPurposeAgent bool   `mapstructure:"include_general_purpose_agent"`
	SkillsDir                  string `mapstructure:"skills_dir"`
	AgentID                    string `mapstructure:"agent_id"`

	Summarization SummarizationConfig `mapstructure:"summarization"`
	Approval      ApprovalConfig      `mapstructure:"approval"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Checkpoint    CheckpointConfig    `mapstructure:"checkpoint"`
}

// Default returns spec §6.5's documented defaults, mirroring
// agent.New's own zero-value fallbacks so a zero-value file/env layer
// still produces a usable configuration.
func Default() AgentConfig {
	return AgentConfig{
		Model:                   "claude-sonnet-4-5",
		MaxSteps:                100,
		ToolResultEvictionLimit: 20000,
		Backend:                 BackendConfig{Kind: "memory"},
	}
}

// Load reads configPath (if non-empty) and the AGENT_-prefixed environment
// into an AgentConfig, rejecting unrecognized keys at decode time
// (mapstructure.ErrorUnused), and validates the result.
func Load(configPath string) (AgentConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("model", def.Model)
	v.SetDefault("max_steps", def.MaxSteps)
	v.SetDefault("tool_result_eviction_limit", def.ToolResultEvictionLimit)
	v.SetDefault("backend.kind", def.Backend.Kind)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return AgentConfig{}, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var cfg AgentConfig
	decodeOpt := func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}
	if err := v.Unmarshal(&cfg, decodeOpt); err != nil {
		return AgentConfig{}, fmt.Errorf("config: unrecognized or malformed keys: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AgentConfig{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges the way event_retention.go's Validate does
// for its own config surface, before the value is trusted to build a Loop.
func (c AgentConfig) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps cannot be negative (got %d)", c.MaxSteps)
	}
	if c.ToolResultEvictionLimit < 0 {
		return fmt.Errorf("tool_result_eviction_limit cannot be negative (got %d)", c.ToolResultEvictionLimit)
	}
	switch c.Backend.Kind {
	case "", "memory":
	case "disk":
		if c.Backend.Root == "" {
			return fmt.Errorf("backend.root is required when backend.kind is \"disk\"")
		}
	case "kv":
		if c.Backend.SQLitePath == "" {
			return fmt.Errorf("backend.sqlite_path is required when backend.kind is \"kv\"")
		}
	default:
		return fmt.Errorf("backend.kind must be one of memory, disk, kv (got %q)", c.Backend.Kind)
	}
	switch c.Checkpoint.Kind {
	case "", "memory", "kv":
	case "file":
		if c.Checkpoint.Dir == "" {
			return fmt.Errorf("checkpoint.dir is required when checkpoint.kind is \"file\"")
		}
	default:
		return fmt.Errorf("checkpoint.kind must be one of memory, file, kv (got %q)", c.Checkpoint.Kind)
	}
	if c.Checkpoint.Kind == "kv" && c.Checkpoint.SQLitePath == "" && c.Backend.SQLitePath == "" {
		return fmt.Errorf("checkpoint.sqlite_path (or backend.sqlite_path to share one) is required when checkpoint.kind is \"kv\"")
	}
	return nil
}

// BuildBackend constructs the backend.Backend named by c.Backend.
func (c AgentConfig) BuildBackend() (backend.Backend, error) {
	switch c.Backend.Kind {
	case "", "memory":
		return backend.NewMemory(runstate.NewFileTable()), nil
	case "disk":
		return backend.NewDisk(c.Backend.Root)
	case "kv":
		store, err := sqlitekv.Open(c.Backend.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening backend sqlite store: %w", err)
		}
		prefix := c.Backend.Prefix
		if prefix == "" {
			prefix = "backend"
		}
		return backend.NewKV(store, prefix), nil
	default:
		return nil, fmt.Errorf("unknown backend.kind %q", c.Backend.Kind)
	}
}

// BuildCheckpointer constructs the checkpoint.Checkpointer named by
// c.Checkpoint, or nil when checkpointing is disabled (the default).
func (c AgentConfig) BuildCheckpointer() (checkpoint.Checkpointer, error) {
	switch c.Checkpoint.Kind {
	case "":
		return nil, nil
	case "memory":
		return checkpoint.NewMemory(c.Checkpoint.Prefix), nil
	case "file":
		return checkpoint.NewFile(c.Checkpoint.Dir)
	case "kv":
		path := c.Checkpoint.SQLitePath
		if path == "" {
			path = c.Backend.SQLitePath
		}
		store, err := sqlitekv.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening checkpoint sqlite store: %w", err)
		}
		prefix := c.Checkpoint.Prefix
		if prefix == "" {
			prefix = "checkpoints"
		}
		return checkpoint.NewKV(store, prefix), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint.kind %q", c.Checkpoint.Kind)
	}
}

// BuildApproval turns ApprovalConfig's static always-approve tool list into
// an approval.Config. Returns nil when no tool is configured to always
// require approval, matching agent.New's "nil Approval means nothing is
// gated" contract.
func (c AgentConfig) BuildApproval() *approval.Config {
	if len(c.Approval.AlwaysTools) == 0 {
		return nil
	}
	cfg := approval.NewConfig()
	for _, tool := range c.Approval.AlwaysTools {
		cfg.Always(tool)
	}
	return cfg
}

// Build assembles an agent.Config from the decoded values, constructing
// the backend and checkpointer named by c. Callers must still set
// Client, ApprovalHandler (if Approval ends up gating anything), and
// Subagents/SearchProvider/Output, none of which have a config-file
// representation.
func (c AgentConfig) Build() (agent.Config, error) {
	b, err := c.BuildBackend()
	if err != nil {
		return agent.Config{}, fmt.Errorf("building backend: %w", err)
	}
	cp, err := c.BuildCheckpointer()
	if err != nil {
		return agent.Config{}, fmt.Errorf("building checkpointer: %w", err)
	}
	return agent.Config{
		Model:                      c.Model,
		SystemPrompt:               c.SystemPrompt,
		Backend:                    b,
		IncludeGeneralPurposeAgent: c.IncludeGeneralPurposeAgent,
		MaxSteps:                   c.MaxSteps,
		ToolResultEvictionLimit:    c.ToolResultEvictionLimit,
		EnablePromptCaching:        c.EnablePromptCaching,
		Summarization: agent.SummarizationConfig{
			Enabled:        c.Summarization.Enabled,
			TokenThreshold: c.Summarization.TokenThreshold,
			KeepMessages:   c.Summarization.KeepMessages,
		},
		Approval:     c.BuildApproval(),
		Checkpointer: cp,
		SkillsDir:    c.SkillsDir,
		AgentID:      c.AgentID,
	}, nil
}
