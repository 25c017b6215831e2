package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage AI provider configurations",
	Long: `Manage the AI providers used to answer questions.

Providers are tried in priority order (lowest number first). When no
provider is configured, the shared default from config.yaml applies.

Kinds:
  anthropic          Anthropic API (requires --key)
  openai             OpenAI API (requires --key)
  openai_compatible  Any OpenAI-compatible server (requires --url)
  ollama             Local Ollama (requires --url)`,
}

var (
	addKind     string
	addModel    string
	addBaseURL  string
	addKey      string
	addPriority int
)

var providersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a provider configuration",
	Run: func(cmd *cobra.Command, args []string) {
		a := initApp()
		defer a.Close()

		cfg := provider.Config{
			ID:       uuid.NewString(),
			UserID:   userID,
			Kind:     provider.Kind(addKind),
			Model:    addModel,
			BaseURL:  addBaseURL,
			Priority: addPriority,
			IsActive: true,
		}

		if addKey != "" {
			if a.cipher == nil {
				printError("Cannot store API key", fmt.Errorf("set encryption.key in config.yaml first"))
				os.Exit(1)
			}
			enc, err := a.cipher.Encrypt(addKey)
			if err != nil {
				printError("Failed to encrypt API key", err)
				os.Exit(1)
			}
			cfg.EncryptedKey = enc
		}

		if err := a.configs.Insert(cmd.Context(), cfg); err != nil {
			printError("Failed to add provider", err)
			os.Exit(1)
		}

		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
			Render(fmt.Sprintf("Added %s provider %s", addKind, cfg.ID)))
	},
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List provider configurations",
	Run: func(cmd *cobra.Command, args []string) {
		a := initApp()
		defer a.Close()

		configs, err := a.configs.AllConfigs(cmd.Context(), userID)
		if err != nil {
			printError("Failed to list providers", err)
			os.Exit(1)
		}

		dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
		kindStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)

		if len(configs) == 0 {
			fmt.Println(dimStyle.Render("No providers configured."))
			if a.cfg.Default.Kind != "" {
				fmt.Println(dimStyle.Render(fmt.Sprintf("Using shared default: %s (%s)", a.cfg.Default.Kind, a.cfg.Default.Model)))
			}
			return
		}

		for _, cfg := range configs {
			status := "active"
			if !cfg.IsActive {
				status = "inactive"
			}
			fmt.Printf("%s  %s\n", kindStyle.Render(string(cfg.Kind)), dimStyle.Render(cfg.ID))
			fmt.Printf("  model: %s  priority: %d  %s\n", cfg.Model, cfg.Priority, status)
			if cfg.BaseURL != "" {
				fmt.Printf("  url: %s\n", cfg.BaseURL)
			}
			if cfg.EncryptedKey != "" {
				fmt.Println(dimStyle.Render("  key: (encrypted)"))
			}
		}
	},
}

var providersRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Deactivate a provider configuration",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := initApp()
		defer a.Close()

		if err := a.configs.Deactivate(cmd.Context(), userID, args[0]); err != nil {
			printError("Failed to remove provider", err)
			os.Exit(1)
		}
		fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).
			Render("Provider deactivated."))
	},
}

var providersTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check that a tool-capable provider is reachable",
	Run: func(cmd *cobra.Command, args []string) {
		a := initApp()
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()

		adapter, cfg, err := a.selector.SelectForTools(ctx, userID)
		if err != nil {
			printError("No usable provider", err)
			os.Exit(1)
		}

		fmt.Printf("Testing %s (%s)... ", adapter.Name(), cfg.Model)
		if adapter.IsAvailable(ctx) {
			fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("ok"))
		} else {
			fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("unreachable"))
			os.Exit(1)
		}
	},
}

func init() {
	providersAddCmd.Flags().StringVar(&addKind, "kind", "", "Provider kind (anthropic, openai, openai_compatible, ollama)")
	providersAddCmd.Flags().StringVar(&addModel, "model", "", "Model name")
	providersAddCmd.Flags().StringVar(&addBaseURL, "url", "", "Base URL (self-hosted kinds)")
	providersAddCmd.Flags().StringVar(&addKey, "key", "", "API key (stored encrypted)")
	providersAddCmd.Flags().IntVar(&addPriority, "priority", 0, "Fallback priority, lowest first")
	providersAddCmd.MarkFlagRequired("kind")
	providersAddCmd.MarkFlagRequired("model")

	providersCmd.AddCommand(providersAddCmd)
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersRemoveCmd)
	providersCmd.AddCommand(providersTestCmd)
}
