package models

import "time"

// SessionState is a position in the session lifecycle.
type SessionState string

const (
	SessionCreated SessionState = "created"
	SessionActive  SessionState = "active"
	SessionIdle    SessionState = "idle"
)

// SessionMetadata carries bookkeeping fields separate from the
// message history proper.
type SessionMetadata struct {
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
	MessageCount int       `json:"messageCount"`
	BoundModel   string    `json:"boundModel,omitempty"`
}

// SessionConfig holds per-session overrides of the gateway defaults.
type SessionConfig struct {
	MaxIterations int    `json:"maxIterations,omitempty"`
	DefaultModel  string `json:"defaultModel,omitempty"`
	// ForceCompression is set by the Agent Loop after a context-guard
	// truncation, so the Memory Controller compresses at the start of
	// the next turn even if the message-count trigger has not fired.
	ForceCompression bool `json:"forceCompression,omitempty"`
}

// Session is one conversation thread, addressed by sender or group.
type Session struct {
	ID       string          `json:"id"`
	SenderID string          `json:"senderId"`
	GroupID  string          `json:"groupId,omitempty"`
	Channel  string          `json:"channel"`
	State    SessionState    `json:"state"`
	Messages []Message       `json:"messages"`
	Summary  string          `json:"summary"`
	Metadata SessionMetadata `json:"metadata"`
	Config   SessionConfig   `json:"config"`
}

// Clone returns a deep copy of s so callers never mutate the
// manager's internal state through a returned reference.
func (s Session) Clone() Session {
	out := s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		cm := m
		if m.ToolCalls != nil {
			cm.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		}
		if m.ToolResults != nil {
			cm.ToolResults = append([]ToolResult(nil), m.ToolResults...)
		}
		out.Messages[i] = cm
	}
	return out
}

// IndexKey identifies which index (sender or group) maps to this
// session. Group sessions take precedence when both are present.
func (s Session) IndexKey() string {
	if s.GroupID != "" {
		return "group:" + s.GroupID
	}
	return "sender:" + s.SenderID
}
