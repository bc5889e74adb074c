// Package agent implements the Agent Loop: the state machine that
// coordinates the Session Manager, Memory Controller, Context Guard,
// Fallback Router, and Tool Registry over a single user turn,
// streaming a tagged chunk sequence to its caller.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mira-ai/sentinel/internal/bus"
	gwcontext "github.com/mira-ai/sentinel/internal/context"
	"github.com/mira-ai/sentinel/internal/memory"
	"github.com/mira-ai/sentinel/internal/routing"
	"github.com/mira-ai/sentinel/internal/sessions"
	"github.com/mira-ai/sentinel/internal/tools"
	"github.com/mira-ai/sentinel/pkg/models"
)

// Phase is a position in the Agent Loop's state machine.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseThinking    Phase = "thinking"
	PhaseExecuting   Phase = "executing"
	PhaseEvaluating  Phase = "evaluating"
	PhaseCompressing Phase = "compressing"
	PhaseResponding  Phase = "responding"
	PhaseError       Phase = "error"
)

// maxToolOutputBytes is the truncation limit applied to buffered
// pending results (the full tool output still reaches the tool-role
// Message).
const maxToolOutputBytes = 2000

// Config tunes the per-turn bounds of the Agent Loop.
type Config struct {
	MaxIterations int
	MaxTokens     int
	MaxWallTime   time.Duration
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{MaxIterations: 10, MaxTokens: 4096, MaxWallTime: 5 * time.Minute}
}

// pendingResult is one (name, truncated output, success) triple
// buffered across iterations of a turn.
type pendingResult struct {
	name    string
	output  string
	success bool
}

// sessionCap is the narrow SessionCapability handed to tool handlers.
type sessionCap struct {
	id      string
	channel string
}

func (s sessionCap) SessionID() string { return s.id }
func (s sessionCap) Channel() string   { return s.channel }

// Loop is the Agent Loop: it owns no state of its own beyond
// configuration and its collaborators, all of which are injected.
type Loop struct {
	sessions    *sessions.Manager
	memoryCtl   *memory.Controller
	compressor  Compressor
	modelRouter *routing.ModelRouter
	fallback    *routing.FallbackRouter
	toolReg     *tools.Registry
	bus         *bus.Bus
	log         *slog.Logger
	cfg         Config
}

// Compressor is the narrow interface the loop needs from
// memory.Compressor, named locally to avoid a direct dependency on
// memory's own chat-delegation wiring.
type Compressor interface {
	Compress(ctx context.Context, priorSummary string, messages []models.Message) string
}

// New constructs a Loop from its collaborators.
func New(
	sessionMgr *sessions.Manager,
	memoryCtl *memory.Controller,
	compressor Compressor,
	modelRouter *routing.ModelRouter,
	fallback *routing.FallbackRouter,
	toolReg *tools.Registry,
	b *bus.Bus,
	log *slog.Logger,
	cfg Config,
) *Loop {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxIterations <= 0 {
		cfg = DefaultConfig()
	}
	return &Loop{
		sessions:    sessionMgr,
		memoryCtl:   memoryCtl,
		compressor:  compressor,
		modelRouter: modelRouter,
		fallback:    fallback,
		toolReg:     toolReg,
		bus:         b,
		log:         log,
		cfg:         cfg,
	}
}

// Run drives one turn for sessionID and streams its chunk sequence.
// The returned channel is closed after exactly one terminal ChunkDone
// or ChunkError has been sent.
func (l *Loop) Run(ctx context.Context, sessionID string) <-chan models.Chunk {
	out := make(chan models.Chunk, 8)
	go l.run(ctx, sessionID, out)
	return out
}

// RunToCompletion drains Run and returns the final assistant-visible
// text, for callers (such as the Scheduler) that need a single
// string rather than a stream.
func (l *Loop) RunToCompletion(ctx context.Context, sessionID string) (string, error) {
	var text string
	var runErr error
	for chunk := range l.Run(ctx, sessionID) {
		switch chunk.Type {
		case models.ChunkText:
			text = chunk.Text
		case models.ChunkError:
			runErr = fmt.Errorf("agent loop: %s", chunk.Text)
		}
	}
	return text, runErr
}

func (l *Loop) run(ctx context.Context, sessionID string, out chan<- models.Chunk) {
	defer close(out)

	if l.cfg.MaxWallTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.MaxWallTime)
		defer cancel()
	}

	session, err := l.sessions.Get(sessionID)
	if err != nil {
		l.emitError(out, "session not found")
		return
	}

	l.publish(bus.TopicAgentThinking, bus.AgentThinkingPayload{SessionID: sessionID})
	out <- l.chunk(models.ChunkThinking, "")

	toolSchemas := toModelToolSchemas(l.toolReg.AsToolSchemas())

	if l.memoryCtl.NeedsCompression(session, "") {
		l.compress(ctx, &session)
		out <- l.chunk(models.ChunkThinking, "compressing older messages into summary")
		l.sessions.Put(sessionID, session)
	}

	if _, err := l.modelRouter.Select(routing.Moderate); err != nil {
		l.emitError(out, "no LLM provider configured")
		return
	}

	var pending []pendingResult
	modelUsed := ""
	providerUsed := ""

	for iteration := 1; iteration <= l.cfg.MaxIterations; iteration++ {
		ctxMessages, err := l.memoryCtl.BuildContext(session, toolSchemas)
		if err != nil {
			l.emitError(out, "failed to assemble context: "+err.Error())
			return
		}

		guard := gwcontext.Evaluate(modelUsed, ctxMessages)
		if guard.ShouldBlock() {
			target := int(float64(guard.TotalWindow) * 0.8)
			ctxMessages = gwcontext.Truncate(ctxMessages, target)
			session.Config.ForceCompression = true
		}

		out <- l.chunk(models.ChunkThinking, fmt.Sprintf("iteration %d", iteration))

		req := models.CompletionRequest{
			Messages:  toCompletionMessages(ctxMessages),
			Tools:     toolSchemas,
			MaxTokens: l.cfg.MaxTokens,
		}

		result, err := l.fallback.Chat(ctx, routing.Moderate, req)
		if err != nil {
			if len(pending) > 0 {
				session.Messages = append(session.Messages, surfacePending(pending))
				l.sessions.Put(sessionID, session)
			}
			l.emitError(out, lastAttemptMessage(result, err))
			return
		}

		modelUsed = result.Model
		providerUsed = result.Provider
		l.publish(bus.TopicAgentModelUsed, bus.AgentModelUsedPayload{
			SessionID: sessionID, Provider: providerUsed, Model: modelUsed, Iteration: iteration,
		})

		resp := result.Response

		if len(resp.ToolCalls) > 0 {
			assistantMsg := models.Message{
				ID:        uuid.NewString(),
				Role:      models.RoleAssistant,
				Content:   resp.Content,
				ToolCalls: resp.ToolCalls,
				CreatedAt: time.Now(),
			}
			session.Messages = append(session.Messages, assistantMsg)

			cap := sessionCap{id: sessionID, channel: session.Channel}
			for _, tc := range resp.ToolCalls {
				l.publish(bus.TopicToolExecute, bus.ToolExecutePayload{SessionID: sessionID, Tool: tc.Name, Args: string(tc.Args)})
				out <- models.Chunk{ID: uuid.NewString(), Type: models.ChunkToolCall, ToolCallID: tc.ID, ToolName: tc.Name, ToolArgs: string(tc.Args)}

				execResult := l.toolReg.Execute(ctx, cap, tc.Name, tc.Args)
				toolMsg, result := toToolResult(tc, execResult)
				session.Messages = append(session.Messages, toolMsg)

				l.publish(bus.TopicToolComplete, bus.ToolCompletePayload{SessionID: sessionID, Tool: tc.Name, Result: result})
				out <- models.Chunk{ID: uuid.NewString(), Type: models.ChunkToolResult, ToolCallID: tc.ID, ToolOutput: result.Output, Success: result.Success}

				pending = append(pending, pendingResult{name: tc.Name, output: truncate(result.Output, maxToolOutputBytes), success: result.Success})
			}

			l.sessions.Put(sessionID, session)
			continue
		}

		// No tool calls: evaluating -> responding.
		content := resp.Content
		if content == "" {
			if len(pending) > 0 {
				content = renderPending(pending)
			} else {
				out <- l.chunk(models.ChunkThinking, "completed but produced no output")
				content = ""
			}
		}

		assistantMsg := models.Message{ID: uuid.NewString(), Role: models.RoleAssistant, Content: content, CreatedAt: time.Now()}
		session.Messages = append(session.Messages, assistantMsg)
		l.sessions.Put(sessionID, session)

		if content != "" {
			out <- l.chunk(models.ChunkText, content)
		}
		out <- models.Chunk{
			ID: uuid.NewString(), Type: models.ChunkDone,
			Usage:      &models.Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens, TotalTokens: resp.Usage.TotalTokens},
			ProviderID: providerUsed, Model: modelUsed,
		}
		return
	}

	// Max iterations reached.
	var final strings.Builder
	if len(pending) > 0 {
		final.WriteString(renderPending(pending))
		final.WriteString("\n\n")
	}
	final.WriteString("Reached the iteration limit for this turn.")

	session.Messages = append(session.Messages, models.Message{
		ID: uuid.NewString(), Role: models.RoleAssistant, Content: final.String(), CreatedAt: time.Now(),
	})
	l.sessions.Put(sessionID, session)

	out <- l.chunk(models.ChunkText, final.String())
	out <- models.Chunk{ID: uuid.NewString(), Type: models.ChunkDone, ProviderID: providerUsed, Model: modelUsed}
}

func (l *Loop) compress(ctx context.Context, session *models.Session) {
	toCompress := l.memoryCtl.GetMessagesForCompression(*session)
	newSummary := l.compressor.Compress(ctx, session.Summary, toCompress)
	memory.ApplyCompression(session, newSummary, len(toCompress))
	session.Config.ForceCompression = false
}

func (l *Loop) publish(topic string, payload any) {
	if l.bus != nil {
		l.bus.Publish(topic, payload)
	}
}

func (l *Loop) chunk(t models.ChunkType, text string) models.Chunk {
	return models.Chunk{ID: uuid.NewString(), Type: t, Text: text, Timestamp: time.Now().Unix()}
}

func (l *Loop) emitError(out chan<- models.Chunk, message string) {
	out <- models.Chunk{ID: uuid.NewString(), Type: models.ChunkError, Text: message, Timestamp: time.Now().Unix()}
}

func lastAttemptMessage(result routing.Result, err error) string {
	if len(result.Attempts) == 0 {
		return "no LLM provider configured"
	}
	last := result.Attempts[len(result.Attempts)-1]
	return fmt.Sprintf("all providers failed, last error: %s (%v)", last.ErrorKind, err)
}

func surfacePending(pending []pendingResult) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   renderPending(pending),
		CreatedAt: time.Now(),
	}
}

func renderPending(pending []pendingResult) string {
	var b strings.Builder
	for _, p := range pending {
		mark := "ok"
		if !p.success {
			mark = "error"
		}
		fmt.Fprintf(&b, "[%s:%s] %s\n", p.name, mark, p.output)
	}
	return strings.TrimSpace(b.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func toModelToolSchemas(ts []tools.ToolSchema) []models.ToolSchema {
	out := make([]models.ToolSchema, len(ts))
	for i, t := range ts {
		out[i] = models.ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}
	return out
}

func toCompletionMessages(msgs []models.Message) []models.CompletionMessage {
	out := make([]models.CompletionMessage, len(msgs))
	for i, m := range msgs {
		out[i] = models.CompletionMessage{Role: m.Role, Content: m.Content, ToolCalls: m.ToolCalls, ToolResults: m.ToolResults}
	}
	return out
}

func toToolResult(tc models.ToolCall, r *tools.Result) (models.Message, models.ToolResult) {
	var output string
	success := r.Success
	if r.Success {
		if s, ok := r.Data.(string); ok {
			output = s
		} else if raw, err := json.Marshal(r.Data); err == nil {
			output = string(raw)
		}
	} else {
		output = fmt.Sprintf("error[%s]: %s", r.Error.Code, r.Error.Message)
	}

	tr := models.ToolResult{ToolCallID: tc.ID, Output: output, Success: success}
	msg := models.Message{
		ID:          uuid.NewString(),
		Role:        models.RoleTool,
		Content:     output,
		ToolResults: []models.ToolResult{tr},
		CreatedAt:   time.Now(),
	}
	return msg, tr
}
