package bus

import (
	"github.com/mira-ai/sentinel/internal/outbound"
	"github.com/mira-ai/sentinel/pkg/models"
)

// Topic name constants for the gateway's required event surface.
const (
	TopicMessageInbound  = "message.inbound"
	TopicMessageOutbound = "message.outbound"
	TopicSessionCreated  = "session.created"
	TopicSessionIdle     = "session.idle"
	TopicSessionResumed  = "session.resumed"
	TopicToolExecute     = "tool.execute"
	TopicToolComplete    = "tool.complete"
	TopicAgentThinking   = "agent.thinking"
	TopicAgentModelUsed  = "agent.model.used"
	TopicCronJobStarted  = "cron.job.started"
	TopicCronJobFailed   = "cron.job.failed"
)

// MessagePayload is published on TopicMessageInbound/TopicMessageOutbound.
// Envelope is set only on TopicMessageOutbound, carrying the
// transport-agnostic normalized form a channel adapter actually
// consumes; Message remains the gateway's own internal record.
type MessagePayload struct {
	SessionID string
	Message   models.Message
	Envelope  *outbound.Envelope
}

// SessionPayload is published on the session.* topics.
type SessionPayload struct {
	SessionID string
}

// ToolExecutePayload is published on TopicToolExecute.
type ToolExecutePayload struct {
	SessionID string
	Tool      string
	Args      string
}

// ToolCompletePayload is published on TopicToolComplete.
type ToolCompletePayload struct {
	SessionID string
	Tool      string
	Result    models.ToolResult
}

// AgentThinkingPayload is published on TopicAgentThinking.
type AgentThinkingPayload struct {
	SessionID string
}

// AgentModelUsedPayload is published on TopicAgentModelUsed.
type AgentModelUsedPayload struct {
	SessionID string
	Provider  string
	Model     string
	Iteration int
}

// CronJobPayload is published on the cron.job.* topics.
type CronJobPayload struct {
	JobID string
	RunID string
	Error string
}
