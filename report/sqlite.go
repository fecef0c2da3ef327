package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_reports (
	session_id         TEXT PRIMARY KEY,
	device_fingerprint TEXT NOT NULL,
	trust_score        REAL NOT NULL,
	trust_level        TEXT NOT NULL,
	failed_count       INTEGER NOT NULL,
	total_count        INTEGER NOT NULL,
	avg_liveness       REAL NOT NULL,
	created_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_reports_fingerprint
	ON session_reports (device_fingerprint);
`

// SQLStore is a Store backed by SQLite.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (and if needed initializes) a SQLite report log at path.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening report db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing report schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_reports
			(session_id, device_fingerprint, trust_score, trust_level,
			 failed_count, total_count, avg_liveness, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.Fingerprint, rec.TrustScore, rec.TrustLevel,
		rec.FailedCount, rec.TotalCount, rec.AvgLiveness,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending session report: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, fingerprint string) ([]Record, error) {
	query := `
		SELECT session_id, device_fingerprint, trust_score, trust_level,
		       failed_count, total_count, avg_liveness, created_at
		FROM session_reports`
	args := []any{}
	if fingerprint != "" {
		query += ` WHERE device_fingerprint = ?`
		args = append(args, fingerprint)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing session reports: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec     Record
			created string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Fingerprint, &rec.TrustScore,
			&rec.TrustLevel, &rec.FailedCount, &rec.TotalCount,
			&rec.AvgLiveness, &created); err != nil {
			return nil, fmt.Errorf("scanning session report: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parsing report timestamp: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
