// Package ratelimit throttles generation requests by request count and by
// estimated token volume.
package ratelimit

import (
	"context"
	"sync/atomic"
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	TokensPerMinute   int64
	BurstSize         int
}

// Enabled reports whether the configuration limits anything.
func (c Config) Enabled() bool {
	return c.RequestsPerMinute > 0
}

// Limiter bounds requests per minute and tokens per minute.
type Limiter struct {
	requests *TokenBucket
	tokens   *TokenBucket // nil when tokens are not limited

	total   atomic.Int64
	waited  atomic.Int64
	reserve atomic.Int64
}

// Stats reports limiter usage.
type Stats struct {
	Requests int64 // Requests admitted
	Waited   int64 // Requests that had to wait
	Tokens   int64 // Estimated tokens admitted
}

// NewLimiter creates a limiter for cfg, or nil when cfg is disabled.
func NewLimiter(cfg Config) *Limiter {
	if !cfg.Enabled() {
		return nil
	}
	burst := float64(cfg.BurstSize)
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{requests: NewTokenBucket(burst, float64(cfg.RequestsPerMinute)/60.0)}
	if cfg.TokensPerMinute > 0 {
		// A tenth of the per-minute budget may be spent at once.
		l.tokens = NewTokenBucket(float64(cfg.TokensPerMinute)/10.0, float64(cfg.TokensPerMinute)/60.0)
	}
	return l
}

// Wait blocks until one request of estimatedTokens may be sent or ctx is
// done. A nil Limiter never blocks.
func (l *Limiter) Wait(ctx context.Context, estimatedTokens int64) error {
	if l == nil {
		return nil
	}

	waited := !l.requests.TryConsume(1)
	if waited {
		if err := l.requests.Wait(ctx, 1); err != nil {
			return err
		}
	}
	if l.tokens != nil && estimatedTokens > 0 {
		if !l.tokens.TryConsume(float64(estimatedTokens)) {
			waited = true
			if err := l.tokens.Wait(ctx, float64(estimatedTokens)); err != nil {
				l.requests.Return(1)
				return err
			}
		}
	}

	l.total.Add(1)
	l.reserve.Add(estimatedTokens)
	if waited {
		l.waited.Add(1)
	}
	return nil
}

// Stats returns usage counters.
func (l *Limiter) Stats() Stats {
	if l == nil {
		return Stats{}
	}
	return Stats{Requests: l.total.Load(), Waited: l.waited.Load(), Tokens: l.reserve.Load()}
}
