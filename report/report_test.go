package report_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certivo/certivo/report"
)

func stores(t *testing.T) map[string]report.Store {
	t.Helper()
	sqlite, err := report.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]report.Store{
		"memory": report.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			recs := []report.Record{
				{SessionID: "s1", Fingerprint: "fp-a", TrustScore: 91.5, TrustLevel: "high",
					FailedCount: 0, TotalCount: 3, AvgLiveness: 0.95, CreatedAt: base},
				{SessionID: "s2", Fingerprint: "fp-b", TrustScore: 46, TrustLevel: "low",
					FailedCount: 1, TotalCount: 3, AvgLiveness: 0.6, CreatedAt: base.Add(time.Minute)},
				{SessionID: "s3", Fingerprint: "fp-a", TrustScore: 72, TrustLevel: "medium",
					FailedCount: 0, TotalCount: 3, AvgLiveness: 0.8, CreatedAt: base.Add(2 * time.Minute)},
			}
			for _, rec := range recs {
				require.NoError(t, store.Append(ctx, rec))
			}

			all, err := store.List(ctx, "")
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "s3", all[0].SessionID, "newest first")
			assert.Equal(t, "s1", all[2].SessionID)

			byFP, err := store.List(ctx, "fp-a")
			require.NoError(t, err)
			require.Len(t, byFP, 2)
			for _, rec := range byFP {
				assert.Equal(t, "fp-a", rec.Fingerprint)
			}
			assert.InDelta(t, 72, byFP[0].TrustScore, 1e-9)
			assert.Equal(t, "medium", byFP[0].TrustLevel)
		})
	}
}

func TestListEmpty(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			recs, err := store.List(ctx, "fp-none")
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}
