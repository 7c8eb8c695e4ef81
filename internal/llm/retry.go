package llm

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"dsbench/internal/logging"
)

// RetryConfig holds retry configuration for generation calls.
type RetryConfig struct {
	MaxRetries int           // Retries after the first attempt
	RetryDelay time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum backoff delay (cap)
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// CalculateBackoff calculates exponential backoff with up to 25% jitter.
func CalculateBackoff(baseDelay time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	delay := baseDelay * time.Duration(1<<uint(attempt))
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	if delay/4 <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}

// Retrying retries transient failures of the wrapped generator.
type Retrying struct {
	Next   Generator
	Config RetryConfig
}

// WithRetry wraps g with retry behavior.
func WithRetry(g Generator, cfg RetryConfig) *Retrying {
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	return &Retrying{Next: g, Config: cfg}
}

// Generate implements Generator.
func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := CalculateBackoff(r.Config.RetryDelay, attempt-1, r.Config.MaxDelay)
			logging.Info("retrying generation request", "attempt", attempt, "delay", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := r.Next.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !IsRetryableError(err) || ctx.Err() != nil {
			return "", err
		}
		logging.Warn("generation request failed, will retry", "attempt", attempt, "error", err)
	}

	return "", fmt.Errorf("max retries (%d) exceeded: %w", r.Config.MaxRetries, lastErr)
}
