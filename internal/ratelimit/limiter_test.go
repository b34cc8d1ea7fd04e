package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLimiterBlocksAfterMaxFailures(t *testing.T) {
	limiter := NewLoginLimiter(3, time.Hour)

	key := "203.0.113.9"
	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow(key), "attempt %d should be allowed", i)
		limiter.RecordFailure(key)
	}

	require.False(t, limiter.Allow(key))
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewLoginLimiter(1, time.Hour)

	limiter.RecordFailure("203.0.113.9")
	require.False(t, limiter.Allow("203.0.113.9"))
	require.True(t, limiter.Allow("198.51.100.7"))
}

func TestLimiterRefillsWithinWindow(t *testing.T) {
	// One attempt per 20ms window: after burning it, budget returns once
	// the window has rolled past.
	limiter := NewLoginLimiter(1, 20*time.Millisecond)

	limiter.RecordFailure("key")
	require.False(t, limiter.Allow("key"))

	time.Sleep(30 * time.Millisecond)
	require.True(t, limiter.Allow("key"))
}

func TestSuccessfulLoginsDoNotConsumeBudget(t *testing.T) {
	limiter := NewLoginLimiter(2, time.Hour)

	// Allow alone never burns an attempt.
	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow("key"))
	}
}
