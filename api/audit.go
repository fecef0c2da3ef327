package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditSessionStarted      AuditEvent = "session_started"
	AuditChallengeFetched    AuditEvent = "challenge_fetched"
	AuditSubmissionPassed    AuditEvent = "submission_passed"
	AuditSubmissionFailed    AuditEvent = "submission_failed"
	AuditSubmissionRejected  AuditEvent = "submission_rejected"
	AuditSubmissionRateLimit AuditEvent = "submission_rate_limited"
	AuditReplayDetected      AuditEvent = "replay_detected"
	AuditSessionFinalized    AuditEvent = "session_finalized"
	AuditSessionExpired      AuditEvent = "session_expired"
	AuditReportsQueried      AuditEvent = "reports_queried"
	AuditAnalyzerUnavailable AuditEvent = "analyzer_unavailable"
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry. Only session IDs and device
// fingerprints appear in logs, never raw device identifiers or media.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)

	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logSession is a convenience for events scoped to a session.
func (al *auditLogger) logSession(event AuditEvent, r *http.Request, sessionID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("session_id", sessionID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logRejection logs a submission that was turned away before evaluation.
func (al *auditLogger) logRejection(event AuditEvent, r *http.Request, sessionID, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
