// Package config loads and validates the gateway's YAML configuration
// tree, producing the Config structure every other component is
// constructed from.
package config

import "time"

// Config is the root configuration structure for the gateway.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Memory    MemoryConfig    `yaml:"memory"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Cron      CronConfig      `yaml:"cron"`
	Tools     ToolsConfig     `yaml:"tools"`
	Logging   LoggingConfig   `yaml:"logging"`
	Session   SessionConfig   `yaml:"session"`
}

// ServerConfig configures the gateway's HTTP dispatch surface.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	BearerToken string `yaml:"bearer_token"`
}

// LLMProviderConfig is one entry in LLMConfig.Providers.
type LLMProviderConfig struct {
	APIKey       string   `yaml:"api_key"`
	BaseURL      string   `yaml:"base_url"`
	DefaultModel string   `yaml:"default_model"`
	Models       []string `yaml:"models"`
	Priority     int      `yaml:"priority"`
	CostRank     int      `yaml:"cost_rank"`
	QualityRank  int      `yaml:"quality_rank"`
}

// LLMConfig configures the Provider Registry and Model/Fallback
// Routers.
type LLMConfig struct {
	DefaultProvider     string                       `yaml:"default_provider"`
	DefaultModel        string                       `yaml:"default_model"`
	Providers           map[string]LLMProviderConfig `yaml:"providers"`
	FallbackChain       []string                     `yaml:"fallback_chain"`
	CheapSubstrings     []string                     `yaml:"cheap_substrings"`
	ReasoningSubstrings []string                     `yaml:"reasoning_substrings"`
	PerCallTimeout      time.Duration                `yaml:"per_call_timeout"`
	MaxIterations       int                          `yaml:"max_iterations"`
	MaxTokens           int                          `yaml:"max_tokens"`
	Temperature         float64                      `yaml:"temperature"`
}

// MemoryConfig configures the Memory Controller and Compressor.
type MemoryConfig struct {
	KeepRecentMessages     int           `yaml:"keep_recent_messages"`
	MaxMessagesBeforeCompact int         `yaml:"max_messages_before_compact"`
	CompressionTargetTokens int           `yaml:"compression_target_tokens"`
	IdleTimeout            time.Duration `yaml:"idle_timeout"`
}

// WorkspaceConfig configures where the system-prompt documents live.
type WorkspaceConfig struct {
	Root      string            `yaml:"root"`
	Overrides map[string]string `yaml:"overrides"`
}

// CronScheduleOverride is a single job descriptor read from config,
// converted into a models.CronJob at startup.
type CronScheduleOverride struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Expression string   `yaml:"expression"`
	Enabled    bool     `yaml:"enabled"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int      `yaml:"retry_count"`
	Actions    []CronActionOverride `yaml:"actions"`
}

// CronActionOverride mirrors models.CronAction for YAML decoding.
type CronActionOverride struct {
	Kind       string   `yaml:"kind"`
	Channel    string   `yaml:"channel"`
	Text       string   `yaml:"text"`
	ToolName   string   `yaml:"tool_name"`
	ToolArgs   string   `yaml:"tool_args"`
	SendOutput bool     `yaml:"send_output"`
	Prompt     string   `yaml:"prompt"`
	ToolSubset []string `yaml:"tool_subset"`
}

// CronConfig configures the Scheduler.
type CronConfig struct {
	Enabled      bool                   `yaml:"enabled"`
	TickInterval time.Duration          `yaml:"tick_interval"`
	JobTimeout   time.Duration          `yaml:"job_timeout"`
	StorePath    string                 `yaml:"store_path"`
	Jobs         []CronScheduleOverride `yaml:"jobs"`
}

// ToolsConfig configures per-tool timeout overrides.
type ToolsConfig struct {
	DefaultTimeout time.Duration            `yaml:"default_timeout"`
	Timeouts       map[string]time.Duration `yaml:"timeouts"`
}

// LoggingConfig configures the Structured Logging component.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SessionConfig selects and tunes the Session Store backend.
type SessionConfig struct {
	Store string `yaml:"store"` // "memory" | "file"
	Path  string `yaml:"path"`
}
