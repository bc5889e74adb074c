package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/mira-ai/sentinel/internal/config"
	"github.com/mira-ai/sentinel/internal/logging"
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that starts the gateway:
// the Agent Loop's collaborators are wired up and the cron Scheduler
// is started, running until a shutdown signal arrives.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Sentinel gateway",
		Long: `Start the Sentinel gateway.

The server will:
1. Load and validate configuration
2. Register configured LLM providers
3. Bootstrap the workspace prompt documents
4. Start the cron Scheduler for any configured jobs

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default sentinel.yaml)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Logging.Level = "debug"
	}

	log := logging.New(cfg.Logging)
	slog.SetDefault(log)

	log.Info("configuration loaded",
		"config", configPath,
		"default_provider", cfg.LLM.DefaultProvider,
		"cron_jobs", len(cfg.Cron.Jobs),
	)

	gw, err := buildGateway(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gw.scheduler.Start(ctx)
	log.Info("sentinel gateway started", "tick_interval", cfg.Cron.TickInterval)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping scheduler")
	gw.scheduler.Stop()

	if err := gw.sessionMgr.PersistAll(); err != nil {
		log.Warn("failed to persist sessions on shutdown", "error", err)
	}

	log.Info("sentinel gateway stopped")
	return nil
}
