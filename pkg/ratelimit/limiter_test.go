package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter_EnforcesMinInterval(t *testing.T) {
	limiter := NewHostLimiter(80*time.Millisecond, 0)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "example.com"))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "example.com"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 70*time.Millisecond, "second request to the same host must wait out the interval")
}

func TestHostLimiter_HostsAreIndependent(t *testing.T) {
	limiter := NewHostLimiter(200*time.Millisecond, 0)
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "a.example"))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "b.example"))

	assert.Less(t, time.Since(start), 100*time.Millisecond, "a different host must not be delayed")
}

func TestHostLimiter_ContextCancel(t *testing.T) {
	limiter := NewHostLimiter(5*time.Second, 0)

	require.NoError(t, limiter.Wait(context.Background(), "slow.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx, "slow.example")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHostLimiter_JitterStaysWithinBounds(t *testing.T) {
	limiter := NewHostLimiter(10*time.Millisecond, 20*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := limiter.interval()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 30*time.Millisecond)
	}
}
