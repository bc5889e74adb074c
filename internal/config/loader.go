package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mira-ai/sentinel/pkg/models"
	"gopkg.in/yaml.v3"
)

// Load reads path, expands ${VAR}-style environment references, and
// decodes it into a Config with unknown keys rejected and defaults
// applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, fmt.Errorf("config: %s must contain exactly one YAML document", path)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.LLM.MaxIterations == 0 {
		cfg.LLM.MaxIterations = 10
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.PerCallTimeout == 0 {
		cfg.LLM.PerCallTimeout = 90 * time.Second
	}
	if len(cfg.LLM.CheapSubstrings) == 0 {
		cfg.LLM.CheapSubstrings = []string{"mini", "haiku", "flash", "nano"}
	}
	if len(cfg.LLM.ReasoningSubstrings) == 0 {
		cfg.LLM.ReasoningSubstrings = []string{"opus", "o1", "o3", "reasoning"}
	}

	if cfg.Memory.KeepRecentMessages == 0 {
		cfg.Memory.KeepRecentMessages = 10
	}
	if cfg.Memory.MaxMessagesBeforeCompact == 0 {
		cfg.Memory.MaxMessagesBeforeCompact = 100
	}
	if cfg.Memory.CompressionTargetTokens == 0 {
		cfg.Memory.CompressionTargetTokens = 800
	}
	if cfg.Memory.IdleTimeout == 0 {
		cfg.Memory.IdleTimeout = 30 * time.Minute
	}

	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = "./workspace"
	}

	if cfg.Cron.TickInterval == 0 {
		cfg.Cron.TickInterval = 60 * time.Second
	}
	if cfg.Cron.JobTimeout == 0 {
		cfg.Cron.JobTimeout = 5 * time.Minute
	}
	if cfg.Cron.StorePath == "" {
		cfg.Cron.StorePath = "./workspace/.cron/jobs.json"
	}

	if cfg.Tools.DefaultTimeout == 0 {
		cfg.Tools.DefaultTimeout = 30 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = "file"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = "./workspace/.sessions"
	}
}

func validate(cfg *Config) error {
	if cfg.Session.Store != "memory" && cfg.Session.Store != "file" {
		return fmt.Errorf("config: session.store must be \"memory\" or \"file\", got %q", cfg.Session.Store)
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level must be one of debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	for id, p := range cfg.LLM.Providers {
		if p.APIKey == "" && p.BaseURL == "" {
			return fmt.Errorf("config: llm.providers.%s needs an api_key or a local base_url", id)
		}
	}
	for _, job := range cfg.Cron.Jobs {
		if job.Enabled && strings.TrimSpace(job.Expression) == "" {
			return fmt.Errorf("config: cron job %q enabled with no expression", job.ID)
		}
	}
	return nil
}

// CronJobs converts the configured cron job overrides into the
// Scheduler's domain type.
func (c *Config) CronJobs() []models.CronJob {
	out := make([]models.CronJob, 0, len(c.Cron.Jobs))
	for _, j := range c.Cron.Jobs {
		job := models.CronJob{
			ID:         j.ID,
			Name:       j.Name,
			Expression: j.Expression,
			Enabled:    j.Enabled,
			Timeout:    j.Timeout,
			RetryCount: j.RetryCount,
		}
		for _, a := range j.Actions {
			job.Actions = append(job.Actions, models.CronAction{
				Kind:       models.CronActionKind(a.Kind),
				Channel:    a.Channel,
				Text:       a.Text,
				ToolName:   a.ToolName,
				ToolArgs:   a.ToolArgs,
				SendOutput: a.SendOutput,
				Prompt:     a.Prompt,
				ToolSubset: a.ToolSubset,
			})
		}
		out = append(out, job)
	}
	return out
}
