package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertFailureSpike AlertType = "verification_failure_spike"
	AlertReplayBurst  AlertType = "replay_burst"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	// Sliding window for failed or rejected submissions.
	failures         []time.Time
	failureWindow    time.Duration
	failureThreshold int

	// Sliding window for replay detections.
	replays         []time.Time
	replayWindow    time.Duration
	replayThreshold int

	alertFn AlertFunc
}

const (
	defaultFailureWindow    = 1 * time.Minute
	defaultFailureThreshold = 25
	defaultReplayWindow     = 5 * time.Minute
	defaultReplayThreshold  = 10
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		failureWindow:    defaultFailureWindow,
		failureThreshold: defaultFailureThreshold,
		replayWindow:     defaultReplayWindow,
		replayThreshold:  defaultReplayThreshold,
		alertFn:          alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditSubmissionFailed, AuditSubmissionRejected:
		m.recordFailure()
	case AuditReplayDetected:
		m.recordReplay()
	}
}

func (m *metricsCollector) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.failures = append(m.failures, now)
	m.failures = trimWindow(m.failures, now, m.failureWindow)

	if len(m.failures) >= m.failureThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertFailureSpike,
			Message:   "verification failure rate exceeds threshold",
			Count:     len(m.failures),
			Threshold: m.failureThreshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		m.failures = m.failures[:0]
	}
}

func (m *metricsCollector) recordReplay() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.replays = append(m.replays, now)
	m.replays = trimWindow(m.replays, now, m.replayWindow)

	if len(m.replays) >= m.replayThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertReplayBurst,
			Message:   "replayed media rate exceeds threshold",
			Count:     len(m.replays),
			Threshold: m.replayThreshold,
			Timestamp: now,
		})
		m.replays = m.replays[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
