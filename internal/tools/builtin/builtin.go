// Package builtin registers the handful of tools that ship with the
// gateway itself rather than as an external collaborator: ambient
// utilities an agent needs regardless of which real-world tool
// integrations (file I/O, shell, web search, calendar) an operator
// wires in separately.
package builtin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mira-ai/sentinel/internal/tools"
)

// Register adds the built-in tool set to reg.
func Register(reg *tools.Registry) {
	reg.Register(currentTimeTool())
	reg.Register(sessionInfoTool())
}

func currentTimeTool() tools.Tool {
	return tools.Tool{
		Name:        "current_time",
		Description: "Returns the current UTC time in RFC3339 form.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, session tools.SessionCapability, args json.RawMessage) (any, error) {
			return map[string]string{"utc": time.Now().UTC().Format(time.RFC3339)}, nil
		},
	}
}

func sessionInfoTool() tools.Tool {
	return tools.Tool{
		Name:        "session_info",
		Description: "Returns the calling session's id and channel.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, session tools.SessionCapability, args json.RawMessage) (any, error) {
			return map[string]string{
				"session_id": session.SessionID(),
				"channel":    session.Channel(),
			}, nil
		},
	}
}
