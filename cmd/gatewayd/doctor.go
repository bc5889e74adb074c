package main

import (
	"fmt"

	"github.com/mira-ai/sentinel/internal/config"
	"github.com/spf13/cobra"
)

// buildDoctorCmd creates the "doctor" command: load the config,
// register providers and cron jobs exactly as "serve" would, and
// report what would happen without starting anything.
func buildDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration and provider/cron wiring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = defaultConfigPath()
			}
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (default sentinel.yaml)")
	return cmd
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	fmt.Fprintf(out, "config OK: %s\n", configPath)

	gw, err := buildGateway(cfg, discardLogger())
	if err != nil {
		return fmt.Errorf("gateway wiring failed: %w", err)
	}

	fmt.Fprintf(out, "providers registered: %d\n", gw.providerReg.Count())
	fmt.Fprintf(out, "session store: %s (%s)\n", cfg.Session.Store, cfg.Session.Path)
	fmt.Fprintf(out, "tools registered: %d\n", len(gw.toolReg.AsToolSchemas()))
	fmt.Fprintf(out, "cron jobs loaded: %d\n", len(gw.scheduler.Jobs()))
	for _, job := range gw.scheduler.Jobs() {
		status := "enabled"
		if !job.Enabled {
			status = "disabled"
		}
		fmt.Fprintf(out, "  - %s (%s) next_run=%s [%s]\n", job.ID, job.Expression, job.NextRun.Format("2006-01-02T15:04:05Z07:00"), status)
	}

	fmt.Fprintln(out, "doctor: all checks passed")
	return nil
}
