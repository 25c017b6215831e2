package provider

import (
	"fmt"
	"time"

	"github.com/finsight/finsight/internal/llm"
	"github.com/finsight/finsight/internal/llm/anthropic"
	"github.com/finsight/finsight/internal/llm/ollama"
	"github.com/finsight/finsight/internal/llm/openai"
	"github.com/finsight/finsight/internal/secret"
)

// Hosted vendors answer quickly; self-hosted backends may need minutes
// for cold inference.
const (
	hostedTimeout     = 60 * time.Second
	selfHostedTimeout = 5 * time.Minute
)

// Factory instantiates a configured adapter from one stored config,
// decrypting its credential only when one is present.
type Factory struct {
	cipher secret.Cipher
}

// NewFactory creates a Factory using the given credential cipher.
func NewFactory(cipher secret.Cipher) *Factory {
	return &Factory{cipher: cipher}
}

// Build returns a fresh adapter instance for cfg. Unknown kinds and
// kinds that mandate a base URL when none is configured are immediate
// configuration errors, never network errors.
func (f *Factory) Build(cfg Config) (llm.Provider, error) {
	apiKey, err := f.decryptKey(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: hostedTimeout,
		}), nil

	case KindOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: hostedTimeout,
		}), nil

	case KindOpenAICompatible:
		if cfg.BaseURL == "" {
			return nil, &llm.ConfigError{Provider: string(cfg.Kind), Message: "base URL is required"}
		}
		return openai.NewClient(openai.Config{
			Name:    string(KindOpenAICompatible),
			APIKey:  apiKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: selfHostedTimeout,
		}), nil

	case KindOllama:
		if cfg.BaseURL == "" {
			return nil, &llm.ConfigError{Provider: string(cfg.Kind), Message: "base URL is required"}
		}
		return ollama.NewClient(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: selfHostedTimeout,
		}), nil

	default:
		return nil, &llm.ConfigError{
			Provider: string(cfg.Kind),
			Message:  fmt.Sprintf("unknown provider kind %q", cfg.Kind),
		}
	}
}

func (f *Factory) decryptKey(cfg Config) (string, error) {
	if cfg.EncryptedKey == "" {
		return "", nil
	}
	if f.cipher == nil {
		return "", &llm.ConfigError{Provider: string(cfg.Kind), Message: "credential present but encryption unavailable"}
	}
	key, err := f.cipher.Decrypt(cfg.EncryptedKey)
	if err != nil {
		return "", &llm.ConfigError{Provider: string(cfg.Kind), Message: fmt.Sprintf("decrypt credential: %v", err)}
	}
	return key, nil
}
