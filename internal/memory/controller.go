package memory

import (
	"github.com/mira-ai/sentinel/internal/context"
	"github.com/mira-ai/sentinel/internal/workspace"
	"github.com/mira-ai/sentinel/pkg/models"
)

// Config tunes the Memory Controller's compression trigger and
// keep-recent window.
type Config struct {
	KeepRecentMessages       int
	MaxMessagesBeforeCompact int
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{KeepRecentMessages: 10, MaxMessagesBeforeCompact: 100}
}

// Controller assembles the per-iteration context and decides when
// compression must run.
type Controller struct {
	cfg     Config
	prompts *workspace.Loader
}

// NewController constructs a Controller backed by a workspace Loader
// for system-prompt assembly.
func NewController(cfg Config, prompts *workspace.Loader) *Controller {
	if cfg.KeepRecentMessages <= 0 {
		cfg = DefaultConfig()
	}
	return &Controller{cfg: cfg, prompts: prompts}
}

// BuildContext produces the ordered message sequence for one LLM
// call: system prompt, compressed summary (if any), then the
// trailing keep-recent window, extended backwards as needed to avoid
// splitting a tool-call/tool-result pairing.
func (c *Controller) BuildContext(session models.Session, tools []models.ToolSchema) ([]models.Message, error) {
	systemPrompt, err := c.prompts.BuildSystemPrompt(tools)
	if err != nil {
		return nil, err
	}

	var out []models.Message
	if systemPrompt != "" {
		out = append(out, models.Message{Role: models.RoleSystem, Content: systemPrompt})
	}
	if session.Summary != "" {
		out = append(out, models.Message{Role: models.RoleSystem, Content: "Prior conversation summary:\n" + session.Summary})
	}

	if len(session.Messages) == 0 {
		return out, nil
	}

	recent := keepRecentWindow(session.Messages, c.cfg.KeepRecentMessages)
	return append(out, recent...), nil
}

// keepRecentWindow returns the trailing k messages, extended
// backwards so an assistant-with-tool-calls message is never
// separated from its tool-role results. Tool-role messages are always
// appended immediately after the assistant call that produced them,
// so walking back over a contiguous run of tool-role messages always
// lands on their owning assistant message.
func keepRecentWindow(messages []models.Message, k int) []models.Message {
	if k >= len(messages) {
		return append([]models.Message(nil), messages...)
	}
	start := len(messages) - k

	for start > 0 && messages[start].Role == models.RoleTool {
		start--
	}
	return append([]models.Message(nil), messages[start:]...)
}

// NeedsCompression reports whether session has crossed the
// message-count trigger or the Context Guard reports a blocking
// overrun for the given model.
func (c *Controller) NeedsCompression(session models.Session, modelID string) bool {
	if session.Config.ForceCompression {
		return true
	}
	if len(session.Messages) > c.cfg.MaxMessagesBeforeCompact {
		return true
	}
	info := context.Evaluate(modelID, session.Messages)
	return info.ShouldBlock()
}

// GetMessagesForCompression returns the prefix of session.Messages
// that falls outside the keep-recent window — the portion a
// compression pass should fold into the summary.
func (c *Controller) GetMessagesForCompression(session models.Session) []models.Message {
	if len(session.Messages) <= c.cfg.KeepRecentMessages {
		return nil
	}
	recent := keepRecentWindow(session.Messages, c.cfg.KeepRecentMessages)
	cut := len(session.Messages) - len(recent)
	return append([]models.Message(nil), session.Messages[:cut]...)
}

// ApplyCompression replaces session's summary and drops the
// compressed prefix from its live message list.
func ApplyCompression(session *models.Session, newSummary string, compressedCount int) {
	session.Summary = newSummary
	if compressedCount > 0 && compressedCount <= len(session.Messages) {
		session.Messages = session.Messages[compressedCount:]
	}
	session.Metadata.MessageCount = len(session.Messages)
}
