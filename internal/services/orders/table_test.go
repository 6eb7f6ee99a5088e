package orders

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladder/internal/domain"
)

func mustOrder(t *testing.T, symbol, orderID, price string, submittedAt time.Time) domain.PendingOrder {
	t.Helper()
	order, err := domain.NewPendingOrder(symbol, orderID, domain.SideBuy,
		decimal.RequireFromString(price),
		decimal.RequireFromString("0.002"),
		submittedAt)
	require.NoError(t, err)
	return order
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	tbl := New()
	now := time.Now()

	first := mustOrder(t, "BTCUSDT", "42", "50000", now)
	require.NoError(t, tbl.Insert(first))

	dup := mustOrder(t, "BTCUSDT", "42", "49000", now)
	err := tbl.Insert(dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDuplicateOrder))

	// the original order survives the failed insert untouched
	got, ok := tbl.Get("42")
	require.True(t, ok)
	assert.True(t, first.Price.Equal(got.Price))
	assert.Equal(t, 1, tbl.Len())
}

func TestAge(t *testing.T) {
	tbl := New()
	submitted := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tbl.Insert(mustOrder(t, "BTCUSDT", "1", "50000", submitted)))

	// one second under the 5 minute TTL
	age, ok := tbl.Age("1", submitted.Add(299*time.Second))
	require.True(t, ok)
	assert.Equal(t, 299*time.Second, age)
	assert.False(t, age > 5*time.Minute)

	// one second over
	age, ok = tbl.Age("1", submitted.Add(301*time.Second))
	require.True(t, ok)
	assert.True(t, age > 5*time.Minute)

	_, ok = tbl.Age("missing", submitted)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	tbl := New()
	require.NoError(t, tbl.Insert(mustOrder(t, "BTCUSDT", "1", "50000", time.Now())))

	order, ok := tbl.Remove("1")
	require.True(t, ok)
	assert.Equal(t, "1", order.OrderID)
	assert.Equal(t, 0, tbl.Len())

	_, ok = tbl.Remove("1")
	assert.False(t, ok)
}

func TestForSymbolSortedByID(t *testing.T) {
	tbl := New()
	now := time.Now()
	require.NoError(t, tbl.Insert(mustOrder(t, "BTCUSDT", "3", "50000", now)))
	require.NoError(t, tbl.Insert(mustOrder(t, "BTCUSDT", "1", "49500", now)))
	require.NoError(t, tbl.Insert(mustOrder(t, "ETHUSDT", "2", "3000", now)))

	btc := tbl.ForSymbol("BTCUSDT")
	require.Len(t, btc, 2)
	assert.Equal(t, "1", btc[0].OrderID)
	assert.Equal(t, "3", btc[1].OrderID)

	assert.Equal(t, 2, tbl.CountForSymbol("BTCUSDT"))
	assert.Equal(t, 1, tbl.CountForSymbol("ETHUSDT"))
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, tbl.Symbols())
	assert.Len(t, tbl.All(), 3)
}
