package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	b := NewTokenBucket(2, 1000)
	assert.True(t, b.TryConsume(2))
	assert.False(t, b.TryConsume(2))

	require.NoError(t, b.Wait(context.Background(), 1))

	b.Return(10)
	assert.InDelta(t, 2, b.Available(), 0.01)
}

func TestTokenBucket_WaitLargerThanBucket(t *testing.T) {
	b := NewTokenBucket(5, 1000)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, b.Wait(ctx, 50))
	assert.Less(t, b.Available(), 5.0)
}

func TestTokenBucket_WaitCancelled(t *testing.T) {
	b := NewTokenBucket(1, 0.001)
	require.True(t, b.TryConsume(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Wait(ctx, 1), context.DeadlineExceeded)
}

func TestLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(Config{}))
	var nilLimiter *Limiter
	require.NoError(t, nilLimiter.Wait(context.Background(), 100))
	assert.Equal(t, Stats{}, nilLimiter.Stats())

	l := NewLimiter(Config{RequestsPerMinute: 60000, TokensPerMinute: 6000, BurstSize: 5})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, 400))
	require.NoError(t, l.Wait(ctx, 400))

	stats := l.Stats()
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(800), stats.Tokens)
	// The token burst is 600, so the second request had to wait for a refill.
	assert.Equal(t, int64(1), stats.Waited)
}

func TestLimiter_CancelReturnsRequestSlot(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, TokensPerMinute: 60, BurstSize: 2})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// 6 tokens fit the burst; 100 more cannot arrive in time.
	require.NoError(t, l.Wait(context.Background(), 6))
	require.ErrorIs(t, l.Wait(ctx, 100), context.DeadlineExceeded)
	assert.InDelta(t, 1, l.requests.Available(), 0.05)
}
