// Package provider builds configured adapter instances and selects
// among a user's backends in priority order.
package provider

import (
	"context"
	"time"
)

// Kind identifies a vendor backend family.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindOpenAI    Kind = "openai"
	// KindOpenAICompatible covers self-hosted servers speaking the
	// chat-completions protocol (vLLM, LM Studio, llama.cpp server).
	// It shares the openai adapter, differing only in base URL and model.
	KindOpenAICompatible Kind = "openai_compatible"
	KindOllama           Kind = "ollama"
)

// Config is one stored provider configuration, owned by the user and
// read-only input to this core. EncryptedKey is opaque until the
// factory decrypts it lazily.
type Config struct {
	ID           string
	UserID       string
	Kind         Kind
	EncryptedKey string
	Model        string
	BaseURL      string
	Priority     int // lower is tried first
	IsActive     bool
	CreatedAt    time.Time
}

// Store loads a user's provider configurations. Creation and editing of
// configs happens elsewhere; this core only reads them.
type Store interface {
	// ActiveConfigs returns the user's active configs ordered by
	// ascending priority, ties broken by creation order.
	ActiveConfigs(ctx context.Context, userID string) ([]Config, error)
}
