package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  host: 0.0.0.0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Memory.KeepRecentMessages != 10 {
		t.Errorf("expected default keep-recent 10, got %d", cfg.Memory.KeepRecentMessages)
	}
	if cfg.Session.Store != "file" {
		t.Errorf("expected default session store \"file\", got %q", cfg.Session.Store)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	os.Setenv("TEST_GATEWAY_API_KEY", "sk-test-123")
	defer os.Unsetenv("TEST_GATEWAY_API_KEY")

	path := writeConfig(t, "llm:\n  providers:\n    anthropic:\n      api_key: ${TEST_GATEWAY_API_KEY}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Providers["anthropic"].APIKey != "sk-test-123" {
		t.Errorf("expected expanded api key, got %q", cfg.LLM.Providers["anthropic"].APIKey)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "bogus_top_level_key: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown top-level key")
	}
}

func TestLoadRejectsInvalidSessionStore(t *testing.T) {
	path := writeConfig(t, "session:\n  store: postgres\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid session.store")
	}
}

func TestLoadRejectsProviderWithoutCredentials(t *testing.T) {
	path := writeConfig(t, "llm:\n  providers:\n    anthropic: {}\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for provider missing api_key/base_url")
	}
}

func TestCronJobsConversion(t *testing.T) {
	path := writeConfig(t, `cron:
  jobs:
    - id: morning-report
      expression: "0 9 * * *"
      enabled: true
      actions:
        - kind: agent
          channel: cli
          prompt: "Report status."
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	jobs := cfg.CronJobs()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].ID != "morning-report" || len(jobs[0].Actions) != 1 {
		t.Fatalf("unexpected job conversion: %+v", jobs[0])
	}
	if jobs[0].Actions[0].Kind != "agent" {
		t.Fatalf("expected agent action kind, got %q", jobs[0].Actions[0].Kind)
	}
}
