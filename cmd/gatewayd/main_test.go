package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"serve", "doctor", "cron"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestCronCmdIncludesSubcommands(t *testing.T) {
	cron := buildCronCmd()
	names := map[string]bool{}
	for _, sub := range cron.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"run-once", "list"} {
		if !names[name] {
			t.Fatalf("expected cron subcommand %q to be registered", name)
		}
	}
}

func TestDefaultConfigPathFallsBackWhenUnset(t *testing.T) {
	t.Setenv("GATEWAYD_CONFIG", "")
	if got := defaultConfigPath(); got != "sentinel.yaml" {
		t.Fatalf("expected default sentinel.yaml, got %q", got)
	}
}
