package snapshots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladder/internal/domain"
)

func TestWALStoreSaveAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err, "failed to create snapshot store")
	defer func() {
		assert.NoError(t, store.Close(), "failed to close snapshot store")
	}()

	first := domain.EquitySnapshot{
		Timestamp:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Equity:        "1000",
		NetProfit:     "50",
		OpenLots:      2,
		PendingOrders: 1,
	}
	second := first
	second.Equity = "1010"

	require.NoError(t, store.Save(first))
	require.NoError(t, store.Save(second))

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "1000", records[0].Snapshot.Equity)
	assert.Equal(t, "1010", records[1].Snapshot.Equity)
	assert.Equal(t, 2, records[0].Snapshot.OpenLots)
	assert.True(t, records[1].Index > records[0].Index, "indexes must be monotonic")

	// streaming clients resume from the last index they saw
	records, err = store.SnapshotsAfter(records[0].Index)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1010", records[0].Snapshot.Equity)
}

func TestWALStoreEmpty(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, store.Close())
	}()

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, uint64(0), store.CurrentIndex())
}
