// Package main is the CLI entry point for the copilot daemon.
//
// Start the server:
//
//	copilotd serve --config copilot.yaml
//
// List registered agents and tools without starting the server:
//
//	copilotd agents list
//	copilotd tools list
//
// Configuration can reference environment variables; the provider API key
// falls back to ANTHROPIC_API_KEY or OPENAI_API_KEY when the config file
// leaves it empty.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "copilotd",
		Short: "copilotd - in-app AI copilot runtime",
		Long: `copilotd hosts the in-app copilot: registered agents with typed
input and output contracts, guarded tool execution with per-agent
allowlists, confirmation-gated write actions, and streaming runs over
an HTTP boundary.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildAgentsCmd(),
		buildToolsCmd(),
	)
	return rootCmd
}
