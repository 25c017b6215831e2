package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the assistant",
	Long: `List the financial query tools the assistant can call.

The AI picks tools on its own while answering; this listing is for
understanding what data a question can draw on.

Examples:
  finsight tools           # List all tools
  finsight tools --verbose # Show parameter details`,
	Run: func(cmd *cobra.Command, args []string) {
		runTools()
	},
}

func runTools() {
	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#059669")).
		Bold(true)

	toolStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#9CA3AF"))

	paramStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#06B6D4"))

	catalog := tools.Catalog()

	fmt.Println(headerStyle.Render("Available Tools"))
	fmt.Println()

	for _, def := range catalog {
		fmt.Printf("  %s\n", toolStyle.Render(def.Name))
		fmt.Printf("    %s\n", descStyle.Render(def.Description))

		if verbose {
			printSchema(def.InputSchema, paramStyle, descStyle)
		}
		fmt.Println()
	}

	fmt.Println(descStyle.Render(fmt.Sprintf("  Total: %d tools available", len(catalog))))
	if !verbose {
		fmt.Println(descStyle.Render("  Use --verbose for parameter details"))
	}
}

func printSchema(schema map[string]any, paramStyle, descStyle lipgloss.Style) {
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) == 0 {
		fmt.Println(descStyle.Render("    No parameters"))
		return
	}

	required := map[string]bool{}
	if reqList, ok := schema["required"].([]string); ok {
		for _, name := range reqList {
			required[name] = true
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("    Parameters:")
	for _, name := range names {
		req := ""
		if required[name] {
			req = " (required)"
		}
		fmt.Printf("      %s%s\n", paramStyle.Render(name), req)
		if prop, ok := props[name].(map[string]any); ok {
			if desc, ok := prop["description"].(string); ok && desc != "" {
				fmt.Printf("        %s\n", descStyle.Render(desc))
			}
		}
	}
}
