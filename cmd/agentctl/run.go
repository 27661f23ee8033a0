package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chrispangg/deepagentsdk-sub002/internal/agent"
	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run the agent loop once for a single prompt and print its output",
	Long: `run builds one agent.Loop from the configured AgentConfig and drives it to
completion for a single prompt, streaming its events to the terminal as
they occur (spec §4.8 StreamWithEvents).

With --thread, the run's checkpoint is loaded/saved under that thread ID,
so a later "agentctl run --thread X ..." resumes where the previous one
left off.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loop, err := buildLoop()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		result, err := drainAndDisplay(loop.StreamWithEvents(ctx, agent.GenerateOptions{
			Prompt:   strings.Join(args, " "),
			ThreadID: threadID,
		}))
		if err != nil {
			return err
		}
		if result.Aborted {
			fmt.Println("(run aborted)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// drainAndDisplay forwards every event from ch to displayEvent and collects
// the terminal done/error event into a Result, mirroring agent.Loop's own
// internal drain helper at the CLI boundary (that helper is unexported, so
// the handful of fields this command needs are re-read here directly).
func drainAndDisplay(ch <-chan events.Event) (agent.Result, error) {
	var result agent.Result
	var runErr error
	for e := range ch {
		displayEvent(e)
		switch e.Type {
		case events.TypeDone:
			if text := getString(e.Data, "text"); text != "" {
				result.Text = text
			}
			if aborted, ok := e.Data["aborted"].(bool); ok {
				result.Aborted = aborted
			}
		case events.TypeError:
			runErr = fmt.Errorf("agent: %s", getString(e.Data, "message"))
		}
	}
	return result, runErr
}
