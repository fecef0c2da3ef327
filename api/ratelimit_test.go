package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsBeforeThreshold(t *testing.T) {
	rl := newSubmitRateLimiter()

	// Under the threshold, requests should not be blocked.
	for i := 0; i < maxFailures-1; i++ {
		rl.recordRejection("sess-1")
		blocked, _ := rl.check("sess-1")
		assert.False(t, blocked, "should not block before reaching maxFailures")
	}
}

func TestRateLimiter_BlocksAfterThreshold(t *testing.T) {
	rl := newSubmitRateLimiter()

	// Reach and exceed the threshold.
	for i := 0; i < maxFailures; i++ {
		rl.recordRejection("sess-1")
	}

	blocked, retryAfter := rl.check("sess-1")
	require.True(t, blocked, "should block after maxFailures")
	assert.Greater(t, retryAfter, time.Duration(0), "retry-after should be positive")
}

func TestRateLimiter_ExponentialBackoff(t *testing.T) {
	rl := newSubmitRateLimiter()

	// Hit the threshold.
	for i := 0; i < maxFailures; i++ {
		rl.recordRejection("sess-1")
	}
	_, first := rl.check("sess-1")

	// One more rejection should double the lockout.
	rl.recordRejection("sess-1")
	_, second := rl.check("sess-1")
	assert.Greater(t, second, first, "lockout should increase with more rejections")
}

func TestRateLimiter_AcceptedResetsCounter(t *testing.T) {
	rl := newSubmitRateLimiter()

	for i := 0; i < maxFailures; i++ {
		rl.recordRejection("sess-1")
	}
	blocked, _ := rl.check("sess-1")
	require.True(t, blocked)

	// An evaluated submission should clear the state.
	rl.recordAccepted("sess-1")

	blocked, _ = rl.check("sess-1")
	assert.False(t, blocked, "should not block after an accepted submission")
}

func TestRateLimiter_IsolatesSessions(t *testing.T) {
	rl := newSubmitRateLimiter()

	// Lock out sess-1.
	for i := 0; i < maxFailures; i++ {
		rl.recordRejection("sess-1")
	}
	blocked, _ := rl.check("sess-1")
	require.True(t, blocked)

	// sess-2 should be unaffected.
	blocked, _ = rl.check("sess-2")
	assert.False(t, blocked, "rate limit for one session should not affect another")
}

func TestRateLimiter_UnknownSessionNotBlocked(t *testing.T) {
	rl := newSubmitRateLimiter()

	blocked, _ := rl.check("unknown")
	assert.False(t, blocked)
}

func TestRateLimiter_SweepRemovesExpired(t *testing.T) {
	rl := newSubmitRateLimiter()

	// Manually create an expired record.
	rl.mu.Lock()
	rl.attempts["old"] = &attemptRecord{
		failures:    maxFailures + 1,
		lastFailure: time.Now().Add(-2 * attemptExpiry),
		lockedUntil: time.Now().Add(-attemptExpiry),
	}
	rl.mu.Unlock()

	rl.sweep()

	rl.mu.Lock()
	_, exists := rl.attempts["old"]
	rl.mu.Unlock()
	assert.False(t, exists, "sweep should remove expired records")
}

func TestRateLimiter_MaxLockoutCap(t *testing.T) {
	rl := newSubmitRateLimiter()

	// Add many rejections to hit the cap.
	for i := 0; i < maxFailures+20; i++ {
		rl.recordRejection("sess-1")
	}

	_, retryAfter := rl.check("sess-1")
	assert.LessOrEqual(t, retryAfter, maxLockout+time.Second, "lockout should not exceed maxLockout")
}

func TestGlobalLimiter_AllowsBeforeThreshold(t *testing.T) {
	rl := &globalSubmitLimiter{}

	for i := 0; i < globalMaxRejected-1; i++ {
		rl.record()
		blocked, _ := rl.check()
		assert.False(t, blocked, "should not block before globalMaxRejected")
	}
}

func TestGlobalLimiter_BlocksAfterThreshold(t *testing.T) {
	rl := &globalSubmitLimiter{}

	for i := 0; i < globalMaxRejected; i++ {
		rl.record()
	}

	blocked, retryAfter := rl.check()
	require.True(t, blocked, "should block after globalMaxRejected in window")
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, globalLockout+time.Second)
}

func TestGlobalLimiter_SlidingWindowExpiry(t *testing.T) {
	rl := &globalSubmitLimiter{}

	// Inject old rejections outside the sliding window.
	rl.mu.Lock()
	for i := 0; i < globalMaxRejected; i++ {
		rl.rejected = append(rl.rejected, time.Now().Add(-2*globalWindow))
	}
	rl.mu.Unlock()

	// One new rejection should NOT trigger lockout.
	rl.record()
	blocked, _ := rl.check()
	assert.False(t, blocked, "expired rejections outside window should not count")
}
