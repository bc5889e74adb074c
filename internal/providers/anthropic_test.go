package providers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mira-ai/sentinel/pkg/models"
)

// marshalContent renders a message's content blocks to JSON so the
// test can assert on the wire shape without reaching into the SDK's
// internal param types.
func marshalContent(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal content: %v", err)
	}
	return string(b)
}

func TestConvertAnthropicMessagesEmitsToolUseBlockForAssistantToolCalls(t *testing.T) {
	messages := []models.CompletionMessage{
		{Role: models.RoleSystem, Content: "be helpful"},
		{Role: models.RoleUser, Content: "what's the weather in boston?"},
		{
			Role:    models.RoleAssistant,
			Content: "let me check",
			ToolCalls: []models.ToolCall{
				{ID: "call_1", Name: "get_weather", Args: json.RawMessage(`{"city":"boston"}`)},
			},
		},
		{
			Role: models.RoleTool,
			ToolResults: []models.ToolResult{
				{ToolCallID: "call_1", Output: "62F and cloudy", Success: true},
			},
		},
	}

	system, msgs := convertAnthropicMessages(messages)

	if system != "be helpful" {
		t.Fatalf("expected system prompt to be pulled out, got %q", system)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages (user, assistant, tool-result), got %d", len(msgs))
	}

	assistant := msgs[1]
	raw := marshalContent(t, assistant.Content)
	if !strings.Contains(raw, `"type":"tool_use"`) {
		t.Fatalf("expected assistant message content to contain a tool_use block, got %s", raw)
	}
	if !strings.Contains(raw, `"id":"call_1"`) || !strings.Contains(raw, `"name":"get_weather"`) {
		t.Fatalf("expected tool_use block to carry the call id and name, got %s", raw)
	}
	if !strings.Contains(raw, `"type":"text"`) {
		t.Fatalf("expected assistant message to also carry its text block, got %s", raw)
	}

	toolResult := msgs[2]
	resultRaw := marshalContent(t, toolResult.Content)
	if !strings.Contains(resultRaw, `"type":"tool_result"`) || !strings.Contains(resultRaw, `"tool_use_id":"call_1"`) {
		t.Fatalf("expected tool-result message to reference call_1, got %s", resultRaw)
	}
}

func TestConvertAnthropicMessagesOmitsEmptyAssistantText(t *testing.T) {
	messages := []models.CompletionMessage{
		{
			Role: models.RoleAssistant,
			ToolCalls: []models.ToolCall{
				{ID: "call_2", Name: "noop", Args: json.RawMessage(`{}`)},
			},
		},
	}

	_, msgs := convertAnthropicMessages(messages)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	raw := marshalContent(t, msgs[0].Content)
	if strings.Contains(raw, `"type":"text"`) {
		t.Fatalf("expected no text block for an assistant message with empty content, got %s", raw)
	}
	if !strings.Contains(raw, `"type":"tool_use"`) {
		t.Fatalf("expected tool_use block to still be present, got %s", raw)
	}
}
