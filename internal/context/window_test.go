package context

import (
	"strings"
	"testing"

	"github.com/mira-ai/sentinel/pkg/models"
)

func TestWindowForLongestPrefixMatch(t *testing.T) {
	if got := WindowFor("claude-sonnet-4-20250514"); got != 200000 {
		t.Fatalf("expected 200000, got %d", got)
	}
	if got := WindowFor("unknown-model-xyz"); got != DefaultContextWindow {
		t.Fatalf("expected default window for unknown model, got %d", got)
	}
}

func TestEvaluateShouldBlock(t *testing.T) {
	big := strings.Repeat("x", 9000*charsPerToken)
	info := Evaluate("gpt-4", []models.Message{{Content: big}})
	if !info.ShouldBlock() {
		t.Fatalf("expected ShouldBlock true when remaining < %d", MinContextWindow)
	}
}

func TestTruncatePreservesToolPairing(t *testing.T) {
	msgs := []models.Message{
		{Role: models.RoleSystem, Content: "sys"},
		{Role: models.RoleUser, Content: strings.Repeat("a", 10000)},
		{Role: models.RoleAssistant, Content: "", ToolCalls: []models.ToolCall{{ID: "t1", Name: "x"}}},
		{Role: models.RoleTool, ToolResults: []models.ToolResult{{ToolCallID: "t1", Output: "ok", Success: true}}},
		{Role: models.RoleUser, Content: "recent"},
	}

	out := Truncate(msgs, 5)

	if out[0].Role != models.RoleSystem {
		t.Fatalf("expected leading system message preserved")
	}
	for i, m := range out {
		if m.HasToolCalls() {
			foundAllResults := true
			ids := make(map[string]bool)
			for _, id := range m.ToolCallIDs() {
				ids[id] = true
			}
			for j := i + 1; j < len(out) && len(ids) > 0; j++ {
				for _, tr := range out[j].ToolResults {
					delete(ids, tr.ToolCallID)
				}
			}
			if len(ids) > 0 {
				foundAllResults = false
			}
			if !foundAllResults {
				t.Fatalf("tool call pairing broken by truncation: %+v", out)
			}
		}
	}
}

func TestTruncateEmptyMessages(t *testing.T) {
	if out := Truncate(nil, 100); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}
