package models

// ToolSchema is the declaration document for one tool: the name,
// description and JSON-schema parameters that each provider adapter
// converts into its own SDK's tool definition.
type ToolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// CompletionMessage is one role-tagged entry in a provider request's
// context window.
type CompletionMessage struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// CompletionRequest is the provider-agnostic chat request shape.
type CompletionRequest struct {
	Model       string
	Messages    []CompletionMessage
	Tools       []ToolSchema
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the provider-agnostic chat response shape.
type CompletionResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// ProviderDescriptor records configuration identity for one provider,
// independent of the live client handle the Provider Registry holds
// for it.
type ProviderDescriptor struct {
	ID       string
	Endpoint string
	HasCreds bool
	Models   []string
	Priority int
}

// Selectable reports whether the descriptor may be chosen by the
// Model Router. A provider lacking credentials is unselectable
// unless it is explicitly marked no-auth via Endpoint == "local".
func (p ProviderDescriptor) Selectable() bool {
	return p.HasCreds || p.Endpoint == "local"
}
