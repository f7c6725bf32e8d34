package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimited marks an upstream 429. The adaptive limiter retries these
// (bounded); every other error passes through untouched.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// ErrCircuitOpen is returned while the circuit breaker is refusing calls
// after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker is open - too many failures")

// tokenBucket implements a simple token bucket: tokens refill continuously at
// rate per second up to capacity.
type tokenBucket struct {
	mu         sync.Mutex
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
}

func newTokenBucket(rate, capacity float64) *tokenBucket {
	return &tokenBucket{
		rate:       rate,
		capacity:   capacity,
		tokens:     capacity,
		lastRefill: time.Now(),
	}
}

// refill must be called with the lock held.
func (b *tokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.capacity, b.tokens+elapsed*b.rate)
	b.lastRefill = now
}

// wait blocks until a token is available or the context is cancelled.
func (b *tokenBucket) wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.refill()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		waitTime := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()

		if waitTime < 10*time.Millisecond {
			waitTime = 10 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// updateRate changes the refill rate, applying any pending refill first so
// tokens earned at the old rate are not lost.
func (b *tokenBucket) updateRate(newRate float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	b.rate = newRate
	if b.capacity < newRate {
		b.capacity = newRate
	}
}

// circuitBreaker refuses calls after failureThreshold consecutive failures,
// re-admitting a probe once recoveryTimeout has passed.
type circuitBreaker struct {
	mu               sync.Mutex
	failureThreshold int
	recoveryTimeout  time.Duration
	failureCount     int
	lastFailure      time.Time
	open             bool
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{failureThreshold: 5, recoveryTimeout: 30 * time.Second}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount = 0
	cb.open = false
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failureCount++
	cb.lastFailure = time.Now()
	if cb.failureCount >= cb.failureThreshold {
		cb.open = true
	}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.open && time.Since(cb.lastFailure) > cb.recoveryTimeout {
		// Half-open: let the next call through as a probe.
		cb.open = false
	}
	return cb.open
}

// AdaptiveRateLimiter paces archive requests: the rate creeps up while the
// archive is happy and halves whenever it answers 429. A circuit breaker
// stops the hammering entirely after repeated failures.
type AdaptiveRateLimiter struct {
	mu          sync.Mutex
	baseRate    float64
	maxRate     float64
	minRate     float64
	currentRate float64

	bucket  *tokenBucket
	breaker *circuitBreaker

	successCount     int
	rateLimitedCount int
}

// NewAdaptiveRateLimiter creates a limiter starting at baseRate requests per
// second, never exceeding maxRate. Burst capacity is twice the base rate.
func NewAdaptiveRateLimiter(baseRate, maxRate float64) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		baseRate:    baseRate,
		maxRate:     maxRate,
		minRate:     1,
		currentRate: baseRate,
		bucket:      newTokenBucket(baseRate, baseRate*2),
		breaker:     newCircuitBreaker(),
	}
}

func (l *AdaptiveRateLimiter) onSuccess() {
	l.breaker.recordSuccess()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.successCount++
	if l.currentRate < l.maxRate {
		l.currentRate = min(l.currentRate*1.1, l.maxRate)
		l.bucket.updateRate(l.currentRate)
	}
}

func (l *AdaptiveRateLimiter) onRateLimited() {
	l.breaker.recordFailure()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rateLimitedCount++
	l.currentRate = max(l.currentRate*0.5, l.minRate)
	l.bucket.updateRate(l.currentRate)
}

// Do runs fn under the rate limiter. ErrRateLimited results are retried up to
// 3 times with exponential backoff; any other error is returned as-is on the
// first occurrence.
func (l *AdaptiveRateLimiter) Do(ctx context.Context, fn func() error) error {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if l.breaker.isOpen() {
			return ErrCircuitOpen
		}
		if err := l.bucket.wait(ctx); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			l.onSuccess()
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
		l.onRateLimited()
		if attempt == maxAttempts {
			return err
		}

		backoff := time.Duration(1<<attempt) * 500 * time.Millisecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return ErrRateLimited
}
