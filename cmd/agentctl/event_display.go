package main

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/chrispangg/deepagentsdk-sub002/internal/events"
)

// displayEvent prints one event in a compact, colorized line, grounded on
// cmd/vc/event_display.go's emoji-plus-severity-color-plus-metadata-line
// format, generalized from the issue-tracker's AgentEvent taxonomy to
// this runtime's own events.Type constants.
func displayEvent(e events.Event) {
	switch e.Type {
	case events.TypeStepStart, events.TypeStepFinish, events.TypeUserMessage, events.TypeCheckpointLoaded, events.TypeCheckpointSaved:
		return // noisy/structural events, not interesting on the terminal
	case events.TypeText:
		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s %s\n", cyan("assistant:"), getString(e.Data, "text"))
	case events.TypeToolCall:
		magenta := color.New(color.FgMagenta).SprintFunc()
		fmt.Printf("%s %s %s\n", "🔧", magenta(getString(e.Data, "name")), truncate(fmt.Sprint(e.Data["input"]), 60))
	case events.TypeToolResult:
		isError, _ := e.Data["is_error"].(bool)
		gray := color.New(color.FgHiBlack).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		result := truncate(getString(e.Data, "result"), 120)
		if isError {
			fmt.Printf("  %s %s\n", red("✗"), red(result))
		} else {
			fmt.Printf("  %s %s\n", gray("→"), gray(result))
		}
	case events.TypeApprovalRequested:
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s %s\n", yellow("⚠ approval requested:"), getString(e.Data, "tool_name"))
	case events.TypeApprovalResponse:
		approved, _ := e.Data["approved"].(bool)
		if approved {
			fmt.Println(color.New(color.FgGreen).Sprint("✓ approved"))
		} else {
			fmt.Println(color.New(color.FgRed).Sprint("✗ denied"))
		}
	case events.TypeSubagentStart:
		fmt.Printf("%s %s\n", "🚀", getString(e.Data, "subagent_type"))
	case events.TypeSubagentFinish:
		fmt.Println(color.New(color.FgGreen).Sprint("✓ subagent finished"))
	case events.TypeError:
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", red("error:"), getString(e.Data, "message"))
	case events.TypeDone:
		if aborted, _ := e.Data["aborted"].(bool); aborted {
			fmt.Println(color.New(color.FgYellow).Sprint("(aborted)"))
		}
	}
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return s[:maxLen-3] + "..."
}
