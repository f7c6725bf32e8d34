package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoPassesThroughNonRateLimitErrors(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100, 200)
	boom := errors.New("boom")

	calls := 0
	err := limiter.Do(context.Background(), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls, "only rate-limit errors are retried")
}

func TestDoRetriesRateLimitThreeTimes(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100, 200)

	calls := 0
	start := time.Now()
	err := limiter.Do(context.Background(), func() error {
		calls++
		return ErrRateLimited
	})

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, calls)
	assert.GreaterOrEqual(t, time.Since(start), 2*time.Second, "backoff must actually wait")
}

func TestDoRecoversAfterRateLimit(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100, 200)

	calls := 0
	err := limiter.Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return ErrRateLimited
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRateAdaptsUpAndDown(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(4, 10)

	limiter.onRateLimited()
	assert.InDelta(t, 2.0, limiter.currentRate, 0.001, "a 429 halves the rate")

	limiter.onSuccess()
	assert.InDelta(t, 2.2, limiter.currentRate, 0.001, "success nudges the rate back up")
}

func TestRateNeverDropsBelowMinimum(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(2, 10)

	for i := 0; i < 4; i++ {
		limiter.onRateLimited()
	}
	assert.InDelta(t, 1.0, limiter.currentRate, 0.001)
}

func TestRateCapsAtMaximum(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(9.8, 10)

	for i := 0; i < 5; i++ {
		limiter.onSuccess()
	}
	assert.InDelta(t, 10.0, limiter.currentRate, 0.001)
}

func TestCircuitBreakerOpensAfterFiveFailures(t *testing.T) {
	cb := newCircuitBreaker()

	for i := 0; i < 4; i++ {
		cb.recordFailure()
		assert.False(t, cb.isOpen())
	}
	cb.recordFailure()
	assert.True(t, cb.isOpen())

	cb.recordSuccess()
	assert.False(t, cb.isOpen())
}

func TestDoReturnsCircuitOpen(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100, 200)
	for i := 0; i < 5; i++ {
		limiter.breaker.recordFailure()
	}

	err := limiter.Do(context.Background(), func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestTokenBucketHonoursContextCancellation(t *testing.T) {
	bucket := newTokenBucket(0.1, 1)
	require.NoError(t, bucket.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := bucket.wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
