// Package context implements the Context Guard: token-footprint
// estimation against a model's advertised context window, with
// warn/block thresholds and pairing-preserving truncation.
package context

import (
	"strings"

	"github.com/mira-ai/sentinel/pkg/models"
)

const (
	// DefaultContextWindow is used for unrecognized model ids.
	DefaultContextWindow = 128000
	// WarnBelowTokens is the remaining-token threshold below which
	// WindowInfo.ShouldWarn reports true.
	WarnBelowTokens = 32000
	// MinContextWindow is the remaining-token threshold below which
	// WindowInfo.ShouldBlock reports true.
	MinContextWindow = 16000
	// charsPerToken is the char-count heuristic used in lieu of a
	// real tokenizer, matching the teacher's own estimation.
	charsPerToken = 4
	// perMessageOverheadTokens approximates role/formatting overhead
	// not captured by raw content length.
	perMessageOverheadTokens = 4
)

// ModelContextWindows maps model id prefixes to their advertised
// context window size, longest-prefix-match on lookup.
var ModelContextWindows = map[string]int{
	"claude-opus-4":      200000,
	"claude-sonnet-4":    200000,
	"claude-3-5-haiku":   200000,
	"claude-3":           200000,
	"gpt-4o":             128000,
	"gpt-4o-mini":        128000,
	"gpt-4-turbo":        128000,
	"gpt-4":              8192,
	"o1":                 200000,
	"o3-mini":            200000,
	"gemini-1.5-pro":     2097152,
	"gemini-1.5-flash":   1048576,
}

// WindowFor returns the advertised context window for modelID, using
// the longest matching configured prefix, or DefaultContextWindow if
// none match.
func WindowFor(modelID string) int {
	if w, ok := ModelContextWindows[modelID]; ok {
		return w
	}
	best := 0
	bestLen := -1
	for prefix, w := range ModelContextWindows {
		if strings.HasPrefix(modelID, prefix) && len(prefix) > bestLen {
			best = w
			bestLen = len(prefix)
		}
	}
	if bestLen < 0 {
		return DefaultContextWindow
	}
	return best
}

// EstimateTokens approximates the token footprint of an assembled
// message sequence using a chars/4 heuristic plus a small per-message
// overhead.
func EstimateTokens(messages []models.Message) int {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + charsPerToken - 1) / charsPerToken
		total += perMessageOverheadTokens
	}
	return total
}

// Info is the Context Guard's verdict for one assembled context.
type Info struct {
	ModelID         string
	TotalWindow     int
	UsedTokens      int
	RemainingTokens int
}

// Evaluate produces an Info for the given model and message sequence.
func Evaluate(modelID string, messages []models.Message) Info {
	window := WindowFor(modelID)
	used := EstimateTokens(messages)
	remaining := window - used
	if remaining < 0 {
		remaining = 0
	}
	return Info{ModelID: modelID, TotalWindow: window, UsedTokens: used, RemainingTokens: remaining}
}

// ShouldWarn reports whether remaining headroom has dropped below the
// warning threshold.
func (i Info) ShouldWarn() bool { return i.RemainingTokens < WarnBelowTokens }

// ShouldBlock reports whether remaining headroom has dropped below
// the blocking threshold, requiring truncation before the next
// provider call.
func (i Info) ShouldBlock() bool { return i.RemainingTokens < MinContextWindow }

// Truncate drops the oldest messages from messages until their
// estimated size is at most targetTokens, always keeping a leading
// system-role message (if present) and never splitting an
// assistant-with-tool-calls message from its paired tool-role
// results.
func Truncate(messages []models.Message, targetTokens int) []models.Message {
	if len(messages) == 0 {
		return messages
	}

	var system *models.Message
	rest := messages
	if messages[0].Role == models.RoleSystem {
		system = &messages[0]
		rest = messages[1:]
	}

	kept := append([]models.Message(nil), rest...)
	for len(kept) > 0 {
		size := EstimateTokens(kept)
		if system != nil {
			size += EstimateTokens([]models.Message{*system})
		}
		if size <= targetTokens {
			break
		}
		drop := dropUnit(kept)
		kept = kept[drop:]
	}

	if system == nil {
		return kept
	}
	return append([]models.Message{*system}, kept...)
}

// dropUnit returns how many leading messages from kept must be
// removed together to avoid separating a tool-calling assistant
// message from its tool-role results.
func dropUnit(kept []models.Message) int {
	if len(kept) == 0 {
		return 0
	}
	if !kept[0].HasToolCalls() {
		return 1
	}
	ids := make(map[string]bool)
	for _, id := range kept[0].ToolCallIDs() {
		ids[id] = true
	}
	n := 1
	for n < len(kept) && len(ids) > 0 {
		m := kept[n]
		n++
		for _, tr := range m.ToolResults {
			delete(ids, tr.ToolCallID)
		}
		if len(ids) == 0 {
			break
		}
	}
	return n
}
