package bbolt_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/certivo/certivo/storage"
	boltstore "github.com/certivo/certivo/storage/bbolt"
	"github.com/certivo/certivo/storage/storetest"
)

func TestBoltStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) storage.Store {
		path := filepath.Join(t.TempDir(), "sessions.db")
		store, err := boltstore.NewStoreFromFile(path, nil, boltstore.WithClock(now))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	})
}
