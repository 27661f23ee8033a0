package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/chrispangg/deepagentsdk-sub002/internal/agent"
	"github.com/chrispangg/deepagentsdk-sub002/internal/approval"
	"github.com/chrispangg/deepagentsdk-sub002/internal/config"
	"github.com/chrispangg/deepagentsdk-sub002/internal/llm"
	"github.com/chrispangg/deepagentsdk-sub002/internal/subagent"
)

// buildLoop loads an AgentConfig from configPath/the environment, wires in
// the Anthropic client and a stdin-prompting approval handler, and returns
// a ready-to-run *agent.Loop. Grounded on cmd/vc/repl.go's
// config-then-construct-then-run shape, generalized from a storage.Config
// to internal/config.AgentConfig.
func buildLoop() (*agent.Loop, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("--api-key or ANTHROPIC_API_KEY is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	agentCfg, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	agentCfg.Client = llm.NewAnthropicClient(apiKey)
	if agentCfg.Approval != nil {
		agentCfg.ApprovalHandler = promptApproval
	}
	if agentCfg.IncludeGeneralPurposeAgent && agentCfg.Subagents == nil {
		agentCfg.Subagents = subagent.NewRegistry(true)
	}

	return agent.New(agentCfg)
}

// promptApproval blocks on a stdin y/n prompt, the CLI's analog of
// internal/repl's /approve and /reject commands, generalized from an async
// slash command into a synchronous prompt since agentctl has no
// in-progress REPL line buffer to interleave with.
func promptApproval(ctx context.Context, req approval.Request) (bool, error) {
	yellow := color.New(color.FgYellow, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s %s\n", yellow("Approval requested:"), req.ToolName)
	fmt.Printf("  %s\n", gray(string(req.Args)))
	fmt.Print("Approve? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("reading approval response: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
