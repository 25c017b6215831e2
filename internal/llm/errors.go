package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoProviders is returned when a user has no active provider configs
// and no system default exists. No network calls are attempted.
var ErrNoProviders = errors.New("no active AI providers configured")

// ErrNoToolSupport is returned when the agent loop needs tool calling
// but none of the user's providers supports it.
var ErrNoToolSupport = errors.New("no configured provider supports tool use")

// ConfigError marks a provider configuration problem: unknown kind,
// missing mandatory base URL, or unusable credentials. Never retried,
// never attempted against other providers.
type ConfigError struct {
	Provider string
	Message  string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("provider config %s: %s", e.Provider, e.Message)
}

// ProviderError represents an HTTP/API failure from a vendor backend.
// StatusCode may be 0 for transport-level failures such as timeouts.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// FallbackError aggregates the per-provider failures of an exhausted
// fallback chain, naming each provider with its own reason.
type FallbackError struct {
	Failures []ProviderFailure
}

// ProviderFailure is one link of an exhausted fallback chain.
type ProviderFailure struct {
	Provider string
	Err      error
}

func (e *FallbackError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return "all providers failed"
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Provider, f.Err))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

func (e *FallbackError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
