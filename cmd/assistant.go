package cmd

import (
	"time"

	"go.uber.org/zap"

	"github.com/martinemde/formpilot/agentloop"
	"github.com/martinemde/formpilot/internal/config"
	"github.com/martinemde/formpilot/unifiedllm"
)

// AssistantFactory builds the assistant service for a configuration.
type AssistantFactory func(cfg *config.Config, logger *zap.Logger) (agentloop.Assistant, error)

// newClient wires the configured provider adapter into a unifiedllm.Client
// with request logging and the configured retry policy.
func newClient(cfg *config.Config, logger *zap.Logger) (agentloop.Assistant, error) {
	provider := cfg.Assistant.Provider
	adapter, err := newAdapter(cfg)
	if err != nil {
		return nil, err
	}

	policy := unifiedllm.DefaultRetryPolicy()
	policy.MaxRetries = cfg.Assistant.MaxRetries
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		logger.Warn("Retrying assistant request",
			zap.Error(err), zap.Int("attempt", attempt), zap.Duration("delay", delay))
	}

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(provider, adapter),
		unifiedllm.WithDefaultProvider(provider),
		unifiedllm.WithMiddleware(
			unifiedllm.LoggingMiddleware(logger),
			unifiedllm.RetryMiddleware(policy),
		),
	), nil
}

func newAdapter(cfg *config.Config) (unifiedllm.ProviderAdapter, error) {
	a := cfg.Assistant
	if a.Provider == "anthropic" {
		var opts []unifiedllm.AnthropicOption
		if a.BaseURL != "" {
			opts = append(opts, unifiedllm.WithBaseURL(a.BaseURL))
		}
		adapter, err := unifiedllm.NewAnthropicAdapter(a.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		return adapter, nil
	}

	adapter, err := unifiedllm.NewGollmAdapter(a.Provider, a.APIKey,
		unifiedllm.WithModel(resolveModel(a.Model)),
		unifiedllm.WithMaxTokens(a.MaxTokens),
	)
	if err != nil {
		return nil, err
	}
	return adapter, nil
}
