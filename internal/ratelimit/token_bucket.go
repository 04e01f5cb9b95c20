package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smallbiznis/shopmirror/internal/clock"
)

// TokenBucket is a blocking in-process token bucket. Every page fetcher in a
// run shares one instance, so the bucket state is a mutex-protected pair of
// {tokens, last refill instant} driven by the injected clock.
type TokenBucket struct {
	mu     sync.Mutex
	clock  clock.Clock
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func NewTokenBucket(c clock.Clock, rate float64, burst int) (*TokenBucket, error) {
	if c == nil {
		return nil, errors.New("rate limiter clock is required")
	}
	if rate <= 0 {
		return nil, errors.New("rate limiter rate must be positive")
	}
	if burst <= 0 {
		return nil, errors.New("rate limiter burst must be positive")
	}
	return &TokenBucket{
		clock:  c,
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   c.Now(),
	}, nil
}

// Acquire blocks until one token is available and removes it. Waiters are not
// strictly FIFO, but no waiter can starve longer than its deficit divided by
// the refill rate.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.mu.Lock()
		b.refill()
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return nil
		}
		deficit := 1 - b.tokens
		wait := time.Duration(deficit / b.rate * float64(time.Second))
		b.mu.Unlock()

		if err := b.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// TryAcquire removes a token without blocking and reports whether it could.
func (b *TokenBucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens reports the currently available tokens after a refill.
func (b *TokenBucket) Tokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill()
	return b.tokens
}

func (b *TokenBucket) refill() {
	now := b.clock.Now()
	delta := now.Sub(b.last)
	if delta < 0 {
		delta = 0
	}
	b.tokens += delta.Seconds() * b.rate
	if b.tokens > b.burst {
		b.tokens = b.burst
	}
	b.last = now
}
