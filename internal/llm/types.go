// Package llm defines the shared message and completion protocol that
// every provider adapter speaks, plus the Provider interface itself.
package llm

// Role identifies who authored a conversational turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single conversational turn. Conversations are ordered,
// append-only sequences for the lifetime of one agent-loop run.
//
// A tool message must reference a ToolCallID emitted by the preceding
// assistant message's ToolCalls.
type Message struct {
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	// Tool-role only: linkage back to the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
}

// ToolCall is an instance of a tool invocation requested by the model.
// ID is vendor-assigned or synthesized and round-trips into the
// corresponding tool result message.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolDefinition describes one entry of the fixed tool catalog.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// CompletionRequest carries everything an adapter needs for one call.
type CompletionRequest struct {
	SystemPrompt   string
	Messages       []Message
	MaxTokens      int
	Temperature    *float64
	ResponseFormat string // "" or "json"
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another round's usage.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// CompletionResponse is the result of a plain, no-tool completion.
type CompletionResponse struct {
	Content  string
	Usage    Usage
	Model    string
	Provider string
}

// StopReason is the vendor's own signal for why a completion ended,
// normalized across backends.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ToolCompletionResponse is the result of a tool-enabled completion.
// StopReason is StopToolUse iff ToolCalls is non-empty.
type ToolCompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Usage      Usage
	Model      string
	Provider   string
	StopReason StopReason
}

// HasToolCalls reports whether the model paused to request tools.
func (r *ToolCompletionResponse) HasToolCalls() bool {
	return r.StopReason == StopToolUse && len(r.ToolCalls) > 0
}

// StreamChunk is one increment of a streamed completion. Done marks the
// final chunk; no further chunks follow it.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}
