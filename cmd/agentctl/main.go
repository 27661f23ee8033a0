// Command agentctl is the C10 demo CLI: a thin cobra shell over internal
// agent/config/llm that drives one agent run from the command line or an
// interactive REPL. Grounded on cmd/vc's rootCmd-plus-subcommand-files
// layout (each subcommand is its own var+init() pair registering onto a
// package-level rootCmd), trimmed from VC's issue-tracker command surface
// down to the two subcommands this spec's runtime actually needs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	apiKey     string
	threadID   string
)

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Drive a controllable LLM agent loop from the command line",
	Long: `agentctl runs one agent loop configuration (model, tools, approval
gating, checkpointing, subagents) built from internal/config.AgentConfig,
either for a single prompt ("run") or interactively ("repl").`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML/TOML agent config file")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("ANTHROPIC_API_KEY"), "Anthropic API key (default: $ANTHROPIC_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&threadID, "thread", "", "checkpoint thread ID (enables resume across invocations)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
