package api

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureSpikeAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	// Override threshold for fast testing.
	collector.failureThreshold = 5

	// Record failures below threshold — no alert.
	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditSubmissionFailed)
	}
	mu.Lock()
	assert.Empty(t, alerts, "no alert below threshold")
	mu.Unlock()

	// The 5th failure should trigger an alert.
	collector.recordEvent(AuditSubmissionRejected)
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	mu.Unlock()
}

func TestReplayBurstAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.replayThreshold = 3

	for i := 0; i < 2; i++ {
		collector.recordEvent(AuditReplayDetected)
	}
	mu.Lock()
	assert.Empty(t, alerts, "no alert below threshold")
	mu.Unlock()

	collector.recordEvent(AuditReplayDetected)
	mu.Lock()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertReplayBurst, alerts[0].Type)
	assert.Equal(t, 3, alerts[0].Count)
	mu.Unlock()
}

func TestMetricsNoAlertWithoutCallback(t *testing.T) {
	// A nil alertFn should not panic.
	collector := newMetricsCollector(nil)
	collector.recordEvent(AuditSubmissionFailed)
}

func TestMetricsNilCollector(t *testing.T) {
	// A nil collector should not panic.
	var collector *metricsCollector
	collector.recordEvent(AuditSubmissionFailed)
}

func TestMetricsSlidingWindowExpiry(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.failureThreshold = 5
	collector.failureWindow = 100 * time.Millisecond

	// Record 4 failures.
	for i := 0; i < 4; i++ {
		collector.recordEvent(AuditSubmissionFailed)
	}

	// Wait for them to slide out of the window.
	time.Sleep(150 * time.Millisecond)

	// Record 1 more — should NOT trigger alert because old ones expired.
	collector.recordEvent(AuditSubmissionFailed)
	mu.Lock()
	assert.Empty(t, alerts, "old failures should not count after window expiry")
	mu.Unlock()
}

func TestMetricsResetAfterAlert(t *testing.T) {
	var mu sync.Mutex
	var alerts []AlertEvent
	collector := newMetricsCollector(func(e AlertEvent) {
		mu.Lock()
		alerts = append(alerts, e)
		mu.Unlock()
	})
	collector.failureThreshold = 3

	// Trigger first alert.
	for i := 0; i < 3; i++ {
		collector.recordEvent(AuditSubmissionFailed)
	}
	mu.Lock()
	require.Len(t, alerts, 1, "first alert triggered")
	mu.Unlock()

	// Counter was reset — need 3 more to trigger again.
	for i := 0; i < 2; i++ {
		collector.recordEvent(AuditSubmissionFailed)
	}
	mu.Lock()
	assert.Len(t, alerts, 1, "no second alert yet")
	mu.Unlock()

	collector.recordEvent(AuditSubmissionFailed)
	mu.Lock()
	assert.Len(t, alerts, 2, "second alert triggered")
	mu.Unlock()
}
