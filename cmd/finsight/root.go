package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/agent"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/finance"
	"github.com/finsight/finsight/internal/provider"
	"github.com/finsight/finsight/internal/secret"
	"github.com/finsight/finsight/internal/tools"
	"github.com/finsight/finsight/internal/ui"
	"github.com/finsight/finsight/internal/usage"
)

var (
	configPath string
	verbose    bool
	userID     string
)

var rootCmd = &cobra.Command{
	Use:   "finsight [question]",
	Short: "AI-powered personal finance assistant",
	Long: `
███████╗██╗███╗   ██╗███████╗██╗ ██████╗ ██╗  ██╗████████╗
██╔════╝██║████╗  ██║██╔════╝██║██╔════╝ ██║  ██║╚══██╔══╝
█████╗  ██║██╔██╗ ██║███████╗██║██║  ███╗███████║   ██║
██╔══╝  ██║██║╚██╗██║╚════██║██║██║   ██║██╔══██║   ██║
██║     ██║██║ ╚████║███████║██║╚██████╔╝██║  ██║   ██║
╚═╝     ╚═╝╚═╝  ╚═══╝╚══════╝╚═╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝

  Ask questions about your accounts, spending, and net worth.
  Answers come from your own financial database through a tool-using
  AI agent; the model never sees individual transactions.

Usage:
  finsight "How much did I spend on groceries last month?"
  finsight chat
  finsight serve`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if len(args) > 0 {
			runAsk(strings.Join(args, " "))
			return
		}
		cmd.Help()
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "default", "User whose data to query")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles everything a command needs after wiring.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *finance.Store
	configs  *provider.SQLStore
	cipher   secret.Cipher
	selector *provider.Selector
	loop     *agent.Loop
}

func (a *app) Close() {
	a.store.Close()
	a.logger.Sync()
}

// initApp loads config and wires the full stack: database, credential
// cipher, provider selector, tool executor, and agent loop.
func initApp() *app {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("Warning: Could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	logger := createLogger()

	store, err := finance.Open(cfg.Database.Path)
	if err != nil {
		printError("Failed to open database", err)
		os.Exit(1)
	}

	var cipher secret.Cipher
	if cfg.Encryption.Key != "" {
		c, err := secret.NewAESCipher(cfg.Encryption.Key)
		if err != nil {
			printError("Failed to initialize credential encryption", err)
			os.Exit(1)
		}
		cipher = c
	}

	configStore, err := provider.NewSQLStore(store.DB())
	if err != nil {
		printError("Failed to initialize provider store", err)
		os.Exit(1)
	}

	var recorder usage.Recorder
	if sqlRecorder, err := usage.NewSQLRecorder(store.DB()); err != nil {
		logger.Warn("usage table unavailable, logging usage instead", zap.Error(err))
		recorder = usage.NewLogRecorder(logger)
	} else {
		recorder = sqlRecorder
	}

	var def *provider.SystemDefault
	if cfg.Default.Kind != "" {
		def = &provider.SystemDefault{
			Kind:    provider.Kind(cfg.Default.Kind),
			Model:   cfg.Default.Model,
			BaseURL: cfg.Default.BaseURL,
			APIKey:  cfg.Default.APIKey,
		}
	}

	selector := provider.NewSelector(configStore, provider.NewFactory(cipher), cipher, recorder, def, logger)

	loop := agent.New(agent.Config{
		Selector: selector,
		Executor: tools.NewExecutor(store, logger),
		Prompts:  agent.NewFinanceContextBuilder(store),
		Logger:   logger,
	})

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		configs:  configStore,
		cipher:   cipher,
		selector: selector,
		loop:     loop,
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromPaths(
		"config.local.yaml",
		"config.yaml",
	)
}

func createLogger() *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

func printError(msg string, err error) {
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).
		Render(fmt.Sprintf("Error: %s: %v", msg, err)))
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Run: func(cmd *cobra.Command, args []string) {
		a := initApp()
		defer a.Close()

		err := ui.Run(func(question string) <-chan agent.Event {
			return a.loop.Run(cmd.Context(), userID, question)
		})
		if err != nil {
			printError("Chat session failed", err)
			os.Exit(1)
		}
	},
}
