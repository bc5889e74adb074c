package models

// ChunkType tags the variant carried by a Chunk.
type ChunkType string

const (
	ChunkThinking   ChunkType = "thinking"
	ChunkText       ChunkType = "text"
	ChunkToolCall   ChunkType = "tool_call"
	ChunkToolResult ChunkType = "tool_result"
	ChunkError      ChunkType = "error"
	ChunkDone       ChunkType = "done"
)

// Usage reports token accounting for a completed provider call.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Chunk is one element of the stream emitted by the agent loop for a
// single turn. Exactly one of the fields relevant to Type is
// populated; the stream for a turn ends with exactly one chunk of
// type ChunkDone or ChunkError.
type Chunk struct {
	ID        string    `json:"id"`
	Type      ChunkType `json:"type"`
	Timestamp int64     `json:"timestamp"`

	Text string `json:"text,omitempty"`

	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	ToolArgs   string `json:"toolArgs,omitempty"`
	ToolOutput string `json:"toolOutput,omitempty"`
	Success    bool   `json:"success,omitempty"`

	Usage      *Usage `json:"usage,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
	Model      string `json:"model,omitempty"`
}
