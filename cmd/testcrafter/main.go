// Package main provides the testcrafter CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"testcrafter/internal/config"
	"testcrafter/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "testcrafter",
	Short: "Generate, review and run LLM-written test cases",
	Long: `testcrafter asks a chat-completion model for test cases across 25
categories (basic, edge case, security, performance, ...) and keeps them in a
reviewable list you can accept, reject and run.

Run "testcrafter chat <file>" for the interactive panel, or
"testcrafter serve" to drive the panel over JSON lines on stdin/stdout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		opts := logging.Options{
			Level:      cfg.Logging.Level,
			File:       cfg.Logging.File,
			JSON:       cfg.Logging.JSON,
			Categories: cfg.Logging.Categories,
		}
		if verbose {
			opts.Level = "debug"
		}
		// The TUI owns the terminal; log to a file or not at all.
		if cmd.Name() == "chat" && opts.File == "" {
			logger = zap.NewNop()
			logging.SetLogger(logger)
			return nil
		}
		logger, err = logging.Initialize(opts)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.BootDebug("config loaded from %s (provider=%s model=%s)", configPath, cfg.LLM.Provider, cfg.LLM.Model)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Operation timeout (0 disables)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT/SIGTERM.
func commandContext(parent context.Context, bounded bool) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if !bounded || timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}
