package llm

import (
	"context"
	"fmt"

	"dsbench/internal/config"
	"dsbench/internal/ratelimit"
)

// New builds the configured generator, wrapped with retries, the configured
// rate limit and, when logDir is set, a transcript log.
func New(ctx context.Context, cfg *config.Config, logDir string) (Generator, error) {
	var base Generator
	switch cfg.Model.Provider {
	case config.ProviderGemini:
		g, err := NewGeminiGenerator(ctx, GeminiConfig{
			APIKey:          cfg.API.GeminiKey,
			Model:           cfg.Model.Name,
			MaxOutputTokens: cfg.Model.MaxOutputTokens,
			Temperature:     cfg.Model.Temperature,
		})
		if err != nil {
			return nil, err
		}
		base = g
	case config.ProviderOllama:
		g, err := NewOllamaGenerator(OllamaConfig{
			BaseURL:     cfg.API.OllamaBaseURL,
			APIKey:      cfg.API.OllamaKey,
			Model:       cfg.Model.Name,
			Temperature: cfg.Model.Temperature,
			MaxTokens:   cfg.Model.MaxOutputTokens,
			HTTPTimeout: cfg.API.Retry.HTTPTimeout,
		})
		if err != nil {
			return nil, err
		}
		base = g
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}

	if logDir != "" {
		t, err := WithTranscript(base, logDir, cfg.API.GeminiKey, cfg.API.OllamaKey)
		if err != nil {
			return nil, err
		}
		base = t
	}

	base = WithRateLimit(base, ratelimit.Config{
		RequestsPerMinute: cfg.API.RateLimit.RequestsPerMinute,
		TokensPerMinute:   cfg.API.RateLimit.TokensPerMinute,
		BurstSize:         cfg.API.RateLimit.Burst,
	})

	return WithRetry(base, RetryConfig{
		MaxRetries: cfg.API.Retry.MaxRetries,
		RetryDelay: cfg.API.Retry.RetryDelay,
	}), nil
}
