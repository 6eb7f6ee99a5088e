package journal

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladder/internal/domain"
)

func TestWALStoreRecordAndReplay(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err, "failed to create trade journal")
	defer func() {
		assert.NoError(t, store.Close(), "failed to close trade journal")
	}()

	submitted := domain.TradeEvent{
		Kind:     domain.TradeEventSubmitted,
		Symbol:   "BTCUSDT",
		OrderID:  "1",
		Side:     domain.SideBuy,
		Price:    decimal.NewFromInt(50000),
		Quantity: decimal.RequireFromString("0.002"),
		Time:     time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	filled := submitted
	filled.Kind = domain.TradeEventFilled

	require.NoError(t, store.Record(submitted))
	require.NoError(t, store.Record(filled))

	events, err := store.EventsAfter(0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.TradeEventSubmitted, events[0].Kind)
	assert.Equal(t, domain.TradeEventFilled, events[1].Kind)
	assert.Equal(t, "BTCUSDT", events[0].Symbol)
	assert.True(t, submitted.Price.Equal(events[0].Price))
	assert.True(t, submitted.Quantity.Equal(events[0].Quantity))
}

func TestWALStoreEventsAfterIndex(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, store.Close())
	}()

	for i, kind := range []domain.TradeEventKind{
		domain.TradeEventSubmitted,
		domain.TradeEventFilled,
		domain.TradeEventExited,
	} {
		require.NoError(t, store.Record(domain.TradeEvent{
			Kind:     kind,
			Symbol:   "BTCUSDT",
			OrderID:  string(rune('1' + i)),
			Side:     domain.SideBuy,
			Price:    decimal.NewFromInt(50000),
			Quantity: decimal.RequireFromString("0.002"),
			Time:     time.Now(),
		}))
	}

	events, err := store.EventsAfter(2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.TradeEventExited, events[0].Kind)

	events, err = store.EventsAfter(10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestWALStoreRejectsEventWithoutSymbol(t *testing.T) {
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, store.Close())
	}()

	err = store.Record(domain.TradeEvent{Kind: domain.TradeEventSubmitted})
	require.Error(t, err)
}
