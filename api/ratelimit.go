package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// submitRateLimiter tracks rejected submissions per session and enforces
// exponential backoff. The key is the session ID, so a client hammering one
// session with bad tokens or out-of-order submissions gets locked out without
// affecting other sessions on the same host.
type submitRateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	global   *globalSubmitLimiter
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

const (
	// maxFailures is the number of rejected submissions before lockout begins.
	maxFailures = 5
	// baseLockout is the initial lockout duration after maxFailures is reached.
	// Sessions live minutes, not hours, so the backoff starts short.
	baseLockout = 15 * time.Second
	// maxLockout caps the exponential backoff.
	maxLockout = 5 * time.Minute
	// attemptExpiry is how long after the last rejection before the record is
	// garbage-collected.
	attemptExpiry = 15 * time.Minute
)

func newSubmitRateLimiter() *submitRateLimiter {
	return &submitRateLimiter{
		attempts: make(map[string]*attemptRecord),
		global:   &globalSubmitLimiter{},
	}
}

// check returns true if the session is currently locked out, along with how
// long the caller should wait. A zero duration means the request may proceed.
func (rl *submitRateLimiter) check(sessionID string) (blocked bool, retryAfter time.Duration) {
	if blocked, retryAfter = rl.global.check(); blocked {
		return blocked, retryAfter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[sessionID]
	if !ok {
		return false, 0
	}
	// Expire stale records.
	if time.Since(rec.lastFailure) > attemptExpiry {
		delete(rl.attempts, sessionID)
		return false, 0
	}
	if time.Now().Before(rec.lockedUntil) {
		return true, time.Until(rec.lockedUntil)
	}
	return false, 0
}

// recordRejection increments the rejection counter and applies exponential
// backoff once maxFailures is exceeded.
func (rl *submitRateLimiter) recordRejection(sessionID string) {
	rl.global.record()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[sessionID]
	if !ok {
		rec = &attemptRecord{}
		rl.attempts[sessionID] = rec
	}
	rec.failures++
	rec.lastFailure = time.Now()

	if rec.failures >= maxFailures {
		// Exponential backoff: baseLockout * 2^(failures - maxFailures)
		shift := rec.failures - maxFailures
		lockout := baseLockout
		for i := 0; i < shift; i++ {
			lockout *= 2
			if lockout > maxLockout {
				lockout = maxLockout
				break
			}
		}
		rec.lockedUntil = time.Now().Add(lockout)
	}
}

// recordAccepted resets the rejection counter once a submission is evaluated.
// A failed challenge attempt is still an accepted submission; only protocol
// violations (bad token, replay, out of order) count toward lockout.
func (rl *submitRateLimiter) recordAccepted(sessionID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, sessionID)
}

// sweep removes expired records. Call periodically from a background goroutine.
func (rl *submitRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for id, rec := range rl.attempts {
		if now.Sub(rec.lastFailure) > attemptExpiry {
			delete(rl.attempts, id)
		}
	}
}

// writeRateLimited sends a 429 Too Many Requests response.
func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	writeError(w, http.StatusTooManyRequests, "too many rejected submissions; try again later")
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

const (
	globalWindow      = 1 * time.Minute
	globalMaxRejected = 100
	globalLockout     = 2 * time.Minute
)

// globalSubmitLimiter tracks total rejected submissions across all sessions
// using a sliding window. A burst of rejections across many sessions looks
// like a scripted probe rather than a confused client.
type globalSubmitLimiter struct {
	mu          sync.Mutex
	rejected    []time.Time
	lockedUntil time.Time
}

func (rl *globalSubmitLimiter) check() (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Now().Before(rl.lockedUntil) {
		return true, time.Until(rl.lockedUntil)
	}
	return false, 0
}

func (rl *globalSubmitLimiter) record() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.rejected = append(rl.rejected, now)

	// Trim rejections outside the window.
	cutoff := now.Add(-globalWindow)
	start := 0
	for start < len(rl.rejected) && rl.rejected[start].Before(cutoff) {
		start++
	}
	rl.rejected = rl.rejected[start:]

	if len(rl.rejected) >= globalMaxRejected {
		rl.lockedUntil = now.Add(globalLockout)
	}
}
