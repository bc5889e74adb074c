// Package main provides the CLI entry point for the Sentinel personal
// AI assistant gateway.
//
// Sentinel drives a single-user Agent Iteration Loop over one or more
// LLM providers (Anthropic, OpenAI) with tool execution, a compressing
// Memory Controller, and a cron Scheduler for unattended agent runs.
//
// # Basic Usage
//
// Start the gateway:
//
//	gatewayd serve --config sentinel.yaml
//
// Validate configuration:
//
//	gatewayd doctor --config sentinel.yaml
//
// Fire all due cron jobs once and exit:
//
//	gatewayd cron run-once --config sentinel.yaml
//
// # Environment Variables
//
// Provider credentials are read from the configured api_key fields,
// which may reference environment variables with ${VAR} syntax, e.g.
// ANTHROPIC_API_KEY or OPENAI_API_KEY.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to allow testing the command tree directly.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gatewayd",
		Short: "Sentinel - personal AI assistant gateway",
		Long: `Sentinel drives a single-user Agent Iteration Loop over one or more
LLM providers with tool execution, memory compression, and a cron
scheduler for unattended agent runs.

Supported LLM providers: Anthropic (Claude), OpenAI (GPT)`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildDoctorCmd(),
		buildCronCmd(),
	)

	return rootCmd
}

func defaultConfigPath() string {
	if v := os.Getenv("GATEWAYD_CONFIG"); v != "" {
		return v
	}
	return "sentinel.yaml"
}
