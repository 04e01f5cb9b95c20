package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/shopmirror/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireConsumesBurst(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, err := NewTokenBucket(fc, 2, 2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, b.Acquire(ctx))
	require.NoError(t, b.Acquire(ctx))
	assert.Empty(t, fc.Sleeps(), "burst tokens should not block")

	// Third acquire has an empty bucket and must wait for one token at 2/s.
	require.NoError(t, b.Acquire(ctx))
	sleeps := fc.Sleeps()
	require.Len(t, sleeps, 1)
	assert.Equal(t, 500*time.Millisecond, sleeps[0])
}

func TestRefillCapsAtBurst(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, err := NewTokenBucket(fc, 2, 2)
	require.NoError(t, err)

	require.NoError(t, b.Acquire(context.Background()))
	fc.Advance(time.Hour)
	assert.Equal(t, 2.0, b.Tokens(), "idle refill must not exceed burst")
}

func TestTryAcquire(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, err := NewTokenBucket(fc, 1, 1)
	require.NoError(t, err)

	assert.True(t, b.TryAcquire())
	assert.False(t, b.TryAcquire())
	fc.Advance(time.Second)
	assert.True(t, b.TryAcquire())
}

func TestAcquireCancelled(t *testing.T) {
	fc := clock.NewFakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b, err := NewTokenBucket(fc, 1, 1)
	require.NoError(t, err)

	require.NoError(t, b.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Acquire(ctx), context.Canceled)
}

func TestNewTokenBucketValidation(t *testing.T) {
	fc := clock.NewFakeClock(time.Now())
	_, err := NewTokenBucket(nil, 1, 1)
	assert.Error(t, err)
	_, err = NewTokenBucket(fc, 0, 1)
	assert.Error(t, err)
	_, err = NewTokenBucket(fc, 1, 0)
	assert.Error(t, err)
}
