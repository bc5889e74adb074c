package main

import (
	"context"
	"fmt"

	"github.com/mira-ai/sentinel/internal/config"
	"github.com/mira-ai/sentinel/internal/logging"
	"github.com/spf13/cobra"
)

// buildCronCmd creates the "cron" command group for operating the
// Scheduler outside of "serve", e.g. from an external cron(1) entry
// or for manual inspection.
func buildCronCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cron",
		Short: "Inspect or manually drive the cron scheduler",
	}
	cmd.AddCommand(buildCronRunOnceCmd(), buildCronListCmd())
	return cmd
}

func buildCronRunOnceCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Fire every due, non-running job once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			return runCronRunOnce(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default sentinel.yaml)")
	return cmd
}

func runCronRunOnce(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.New(cfg.Logging)

	gw, err := buildGateway(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	fired := gw.scheduler.Tick(context.Background())
	fmt.Fprintf(cmd.OutOrStdout(), "fired %d job(s)\n", fired)
	return nil
}

func buildCronListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured cron jobs and their next run time",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			return runCronList(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default sentinel.yaml)")
	return cmd
}

func runCronList(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	gw, err := buildGateway(cfg, discardLogger())
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	out := cmd.OutOrStdout()
	jobs := gw.scheduler.Jobs()
	if len(jobs) == 0 {
		fmt.Fprintln(out, "no cron jobs configured")
		return nil
	}
	for _, job := range jobs {
		fmt.Fprintf(out, "%s\t%s\tnext=%s\truns=%d\tfails=%d\n",
			job.ID, job.Expression, job.NextRun.Format("2006-01-02T15:04:05Z07:00"), job.RunCount, job.FailCount)
	}
	return nil
}
