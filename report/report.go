// Package report persists finalized session outcomes to an append-only log
// for audit and analytics. Records are never updated after insert.
package report

import (
	"context"
	"time"
)

// Record is one finalized session outcome.
type Record struct {
	SessionID   string    `json:"session_id"`
	Fingerprint string    `json:"device_fingerprint"`
	TrustScore  float64   `json:"trust_score"`
	TrustLevel  string    `json:"trust_level"`
	FailedCount int       `json:"failed_count"`
	TotalCount  int       `json:"total_count"`
	AvgLiveness float64   `json:"avg_liveness"`
	CreatedAt   time.Time `json:"timestamp_utc"`
}

// Store is the append-only report log. List returns records newest first;
// an empty fingerprint matches all records.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, fingerprint string) ([]Record, error)
}
