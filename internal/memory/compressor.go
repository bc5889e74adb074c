package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/mira-ai/sentinel/internal/routing"
	"github.com/mira-ai/sentinel/pkg/models"
)

const summaryInstructionTemplate = `Summarize the conversation below into a structured summary of at most 800 tokens, covering: user profile, current task, decisions made, facts learned, and recent actions taken. Be terse.

Prior summary:
%s

Messages to fold into the summary:
%s`

// chatFunc is the narrow capability the Compressor needs: send one
// chat request at Summarize complexity and get content back. It is
// satisfied by *routing.FallbackRouter in production and by a stub in
// tests.
type chatFunc func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error)

// Compressor summarizes older messages into a bounded structured
// summary, delegating to the cheapest available provider.
type Compressor struct {
	chat chatFunc
}

// NewCompressor wraps a FallbackRouter for Summarize-class calls.
func NewCompressor(router *routing.FallbackRouter) *Compressor {
	return &Compressor{
		chat: func(ctx context.Context, req models.CompletionRequest) (models.CompletionResponse, error) {
			result, err := router.Chat(ctx, routing.Summarize, req)
			return result.Response, err
		},
	}
}

// Compress folds messages into priorSummary via a summarize-class
// provider call. On provider failure it returns priorSummary
// unchanged — memory must never degrade on a failed compression.
func (c *Compressor) Compress(ctx context.Context, priorSummary string, messages []models.Message) string {
	if len(messages) == 0 {
		return priorSummary
	}

	prompt := fmt.Sprintf(summaryInstructionTemplate, nonEmpty(priorSummary, "(none)"), renderMessages(messages))
	req := models.CompletionRequest{
		Messages: []models.CompletionMessage{
			{Role: models.RoleUser, Content: prompt},
		},
		MaxTokens:   summaryMaxOutputTokens,
		Temperature: summaryTemperature,
	}

	resp, err := c.chat(ctx, req)
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return priorSummary
	}
	return capTokens(resp.Content, summaryTokenBudget)
}

// capTokens truncates s to roughly budget tokens by the same chars/4
// heuristic the rest of the gateway uses, guarding against a provider
// that ignores the prompt's length instruction.
func capTokens(s string, budget int) string {
	if estimateTokens(s) <= budget {
		return s
	}
	limit := budget * charsPerToken
	if limit >= len(s) {
		return s
	}
	return strings.TrimSpace(s[:limit]) + "…"
}

func renderMessages(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s\n", m.Role, m.Content)
	}
	return b.String()
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
