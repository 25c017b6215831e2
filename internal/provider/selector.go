package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/finsight/finsight/internal/llm"
	"github.com/finsight/finsight/internal/secret"
	"github.com/finsight/finsight/internal/usage"
)

// SystemDefault describes the process-wide fallback provider used when
// a user has no configs of their own. It comes from deployment
// configuration and is synthesized fresh per call, never persisted.
type SystemDefault struct {
	Kind    Kind
	Model   string
	BaseURL string
	APIKey  string
}

// Builder instantiates an adapter from one stored config. *Factory is
// the production implementation.
type Builder interface {
	Build(cfg Config) (llm.Provider, error)
}

// Selector orders a user's active provider configs and drives the
// fallback chain for one-shot completions.
type Selector struct {
	store    Store
	factory  Builder
	cipher   secret.Cipher
	recorder usage.Recorder
	def      *SystemDefault
	logger   *zap.Logger
}

// NewSelector creates a Selector. def may be nil when the deployment has
// no shared default provider.
func NewSelector(store Store, factory Builder, cipher secret.Cipher, recorder usage.Recorder, def *SystemDefault, logger *zap.Logger) *Selector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = usage.NewLogRecorder(logger)
	}
	return &Selector{
		store:    store,
		factory:  factory,
		cipher:   cipher,
		recorder: recorder,
		def:      def,
		logger:   logger,
	}
}

// Complete runs a plain completion through the fallback chain: each
// config is tried in priority order until one succeeds. Only provider
// and network failures advance the chain; a configuration error is the
// operator's to fix and surfaces immediately, never retried against
// other providers. Every provider failure is recorded; an exhausted
// chain reports every per-provider reason.
func (s *Selector) Complete(ctx context.Context, userID string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	configs, err := s.candidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	var failures []llm.ProviderFailure
	for _, cfg := range configs {
		adapter, err := s.factory.Build(cfg)
		if err != nil {
			if isConfigError(err) {
				return nil, err
			}
			failures = append(failures, llm.ProviderFailure{Provider: string(cfg.Kind), Err: err})
			s.recordFailure(ctx, userID, cfg, err)
			continue
		}

		resp, err := adapter.Complete(ctx, req)
		if err != nil {
			s.logger.Warn("provider completion failed, trying next",
				zap.String("provider", adapter.Name()),
				zap.Error(err))
			failures = append(failures, llm.ProviderFailure{Provider: adapter.Name(), Err: err})
			s.recordFailure(ctx, userID, cfg, err)
			continue
		}

		s.record(ctx, usage.Entry{
			UserID:       userID,
			Provider:     resp.Provider,
			Model:        resp.Model,
			Kind:         "completion",
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Success:      true,
		})
		return resp, nil
	}

	return nil, &llm.FallbackError{Failures: failures}
}

// SelectForTools returns the first config whose adapter supports tool
// use, together with the built adapter. Configuration errors surface
// immediately, same as Complete; only a capability mismatch moves on to
// the next config. The agent loop commits to one provider for its whole
// run: accumulated conversation state is not transferable across
// heterogeneous tool-call encodings, so there is no mid-loop fallback.
func (s *Selector) SelectForTools(ctx context.Context, userID string) (llm.Provider, Config, error) {
	configs, err := s.candidates(ctx, userID)
	if err != nil {
		return nil, Config{}, err
	}

	for _, cfg := range configs {
		adapter, err := s.factory.Build(cfg)
		if err != nil {
			if isConfigError(err) {
				return nil, Config{}, err
			}
			s.logger.Warn("skipping unbuildable provider config",
				zap.String("kind", string(cfg.Kind)),
				zap.Error(err))
			continue
		}
		if adapter.Capabilities().ToolUse {
			return adapter, cfg, nil
		}
		s.logger.Debug("provider lacks tool support, trying next",
			zap.String("kind", string(cfg.Kind)))
	}
	return nil, Config{}, llm.ErrNoToolSupport
}

func isConfigError(err error) bool {
	var cfgErr *llm.ConfigError
	return errors.As(err, &cfgErr)
}

// candidates returns the user's active configs, or the synthesized
// system default when the user has none. The default is rebuilt (and
// its credential re-encrypted) on every call; correctness over
// performance, and the selector stays stateless.
func (s *Selector) candidates(ctx context.Context, userID string) ([]Config, error) {
	var configs []Config
	if s.store != nil {
		var err error
		configs, err = s.store.ActiveConfigs(ctx, userID)
		if err != nil {
			return nil, err
		}
	}
	if len(configs) > 0 {
		return configs, nil
	}

	if s.def == nil || s.def.Kind == "" {
		return nil, llm.ErrNoProviders
	}

	cfg := Config{
		ID:       "system-default",
		UserID:   userID,
		Kind:     s.def.Kind,
		Model:    s.def.Model,
		BaseURL:  s.def.BaseURL,
		IsActive: true,
	}
	if s.def.APIKey != "" {
		if s.cipher == nil {
			return nil, &llm.ConfigError{Provider: string(s.def.Kind), Message: "credential present but encryption unavailable"}
		}
		enc, err := s.cipher.Encrypt(s.def.APIKey)
		if err != nil {
			return nil, &llm.ConfigError{Provider: string(s.def.Kind), Message: "encrypt default credential: " + err.Error()}
		}
		cfg.EncryptedKey = enc
	}
	return []Config{cfg}, nil
}

// Record forwards a usage entry, warning instead of failing when the
// recorder itself breaks.
func (s *Selector) Record(ctx context.Context, entry usage.Entry) {
	s.record(ctx, entry)
}

func (s *Selector) record(ctx context.Context, entry usage.Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		s.logger.Warn("usage recording failed", zap.Error(err))
	}
}

func (s *Selector) recordFailure(ctx context.Context, userID string, cfg Config, err error) {
	s.record(ctx, usage.Entry{
		UserID:   userID,
		Provider: string(cfg.Kind),
		Model:    cfg.Model,
		Kind:     "completion",
		Success:  false,
		Error:    err.Error(),
	})
}
