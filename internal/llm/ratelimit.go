package llm

import (
	"context"

	"dsbench/internal/logging"
	"dsbench/internal/ratelimit"
	"dsbench/internal/tokens"
)

// Limited delays calls to the wrapped generator to stay within a rate limit.
type Limited struct {
	Next    Generator
	Limiter *ratelimit.Limiter
}

// WithRateLimit wraps g with cfg. A disabled cfg returns g unchanged.
func WithRateLimit(g Generator, cfg ratelimit.Config) Generator {
	l := ratelimit.NewLimiter(cfg)
	if l == nil {
		return g
	}
	return &Limited{Next: g, Limiter: l}
}

// Generate implements Generator.
func (l *Limited) Generate(ctx context.Context, req Request) (string, error) {
	estimate := int64(tokens.Count(req.Prompt)) + int64(req.MaxTokens)
	if err := l.Limiter.Wait(ctx, estimate); err != nil {
		return "", err
	}
	logging.Debug("generation admitted", "estimated_tokens", estimate)
	return l.Next.Generate(ctx, req)
}
