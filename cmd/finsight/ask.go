package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/agent"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask one question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAsk(strings.Join(args, " "))
	},
}

// runAsk runs one agent loop to completion, printing tool progress as it
// happens and the folded result at the end.
func runAsk(question string) {
	a := initApp()
	defer a.Close()

	toolStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	answerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB"))

	events := a.loop.Run(rootCmd.Context(), userID, question)

	var result agent.Result
	failed := false
	for evt := range events {
		switch evt.Type {
		case agent.EventThinking:
			fmt.Println(dimStyle.Render("thinking..."))
		case agent.EventToolStart:
			fmt.Println(toolStyle.Render("-> " + evt.Name))
		case agent.EventToolResult:
			if evt.Summary != "" {
				fmt.Println(dimStyle.Render("   " + evt.Summary))
			}
		case agent.EventContent:
			result.Answer = evt.Text
		case agent.EventSources:
			result.Sources = append(result.Sources, evt.Sources...)
		case agent.EventDone:
			if evt.Usage != nil {
				result.Usage = *evt.Usage
			}
		case agent.EventError:
			printError("Question failed", fmt.Errorf("%s", evt.Message))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(answerStyle.Render(result.Answer))

	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println(dimStyle.Render("Sources:"))
		for _, s := range result.Sources {
			line := "  - " + s.Description
			if s.DateRange != "" {
				line += " (" + s.DateRange + ")"
			}
			fmt.Println(dimStyle.Render(line))
		}
	}

	if verbose {
		fmt.Println()
		fmt.Println(dimStyle.Render(fmt.Sprintf("usage: %d in / %d out tokens, %d tool calls",
			result.Usage.InputTokens, result.Usage.OutputTokens, result.Usage.ToolCalls)))
	}
}
