package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chrispangg/deepagentsdk-sub002/internal/agent"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive REPL against one agent loop",
	Long: `repl opens a readline-backed shell that sends each line you type to the
agent loop as a fresh prompt on the same thread, so conversation history
and checkpoints accumulate across turns the way a human pairing session
would.

Grounded on internal/repl.REPL.Run's readline-loop-plus-slash-command
shape: /quit and /exit leave the shell, everything else goes to the
model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		loop, err := buildLoop()
		if err != nil {
			return err
		}
		return runREPL(loop)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".agentctl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "repl_history")
}

func runREPL(loop *agent.Loop) error {
	thread := threadID
	if thread == "" {
		thread = "repl"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cyan := color.New(color.FgCyan).SprintFunc()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("agent> "),
		HistoryFile:       historyPath(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s agentctl repl — thread %q. Type /quit or /exit to leave.\n\n", green("✓"), thread)

	ctrlCCount := 0
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				ctrlCCount++
				if ctrlCCount == 1 {
					gray := color.New(color.FgHiBlack).SprintFunc()
					fmt.Printf("%s (use /quit or /exit to leave)\n", gray("^C"))
				}
				continue
			}
			if err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			fmt.Println("Goodbye!")
			return nil
		}

		result, err := drainAndDisplay(loop.StreamWithEvents(ctx, agent.GenerateOptions{
			Prompt:   line,
			ThreadID: thread,
		}))
		if err != nil {
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("%s %v\n", red("Error:"), err)
			continue
		}
		if result.Aborted {
			fmt.Println("(aborted)")
			return nil
		}
	}
}
