package llm

import "context"

// Capabilities is the explicit capability set a Provider advertises.
// Callers must branch on these flags before invoking the optional
// operations; not every backend offers every operation.
type Capabilities struct {
	Streaming bool
	ToolUse   bool
}

// Provider is the uniform interface every vendor adapter implements.
//
// Adapters are stateless per request: each agent-loop run or one-shot
// completion constructs its own instance from config, so instances are
// never shared across concurrent requests.
type Provider interface {
	// Name returns the provider kind, e.g. "anthropic" or "ollama".
	Name() string

	// Capabilities reports which optional operations this adapter supports.
	Capabilities() Capabilities

	// Complete performs a single request/response completion without tools.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream performs an incremental completion. The returned channel is
	// closed after the chunk with Done set (or after a chunk carrying Err).
	// The sequence is not restartable; chunks arrive in transport order.
	// Only valid when Capabilities().Streaming is true.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// CompleteWithTools performs a tool-enabled completion. Only valid when
	// Capabilities().ToolUse is true.
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDefinition) (*ToolCompletionResponse, error)

	// IsAvailable is a cheap liveness probe with a short timeout, used for
	// configuration testing only, never on the hot path. It never panics
	// and never returns an error; any failure resolves to false.
	IsAvailable(ctx context.Context) bool
}
