package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/ladder/internal/domain"
	"go.uber.org/zap"
)

type fakeSource struct {
	calls int
	rules domain.SymbolRules
	err   error
}

func (f *fakeSource) SymbolRules(ctx context.Context, symbol string) (domain.SymbolRules, error) {
	f.calls++
	if f.err != nil {
		return domain.SymbolRules{}, f.err
	}
	return f.rules, nil
}

func testRules() domain.SymbolRules {
	return domain.SymbolRules{
		Symbol:   "BTCUSDT",
		StepSize: decimal.RequireFromString("0.00001"),
		TickSize: decimal.RequireFromString("0.01"),
		MinQty:   decimal.RequireFromString("0.00001"),
		MaxQty:   decimal.NewFromInt(9000),
	}
}

func TestRulesCachedWithinInterval(t *testing.T) {
	source := &fakeSource{rules: testRules()}
	r := NewResolver(source, 10*time.Minute, zap.NewNop())

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	got, err := r.Rules(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", got.Symbol)
	assert.Equal(t, 1, source.calls)

	// nine minutes later the cache is still fresh
	now = now.Add(9 * time.Minute)
	_, err = r.Rules(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, source.calls)

	// past the interval the metadata is re-fetched
	now = now.Add(2 * time.Minute)
	_, err = r.Rules(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}

func TestRulesServesStaleCacheOnRefreshFailure(t *testing.T) {
	source := &fakeSource{rules: testRules()}
	r := NewResolver(source, 10*time.Minute, zap.NewNop())

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, err := r.Rules(context.Background(), "BTCUSDT")
	require.NoError(t, err)

	source.err = fmt.Errorf("exchange is down")
	now = now.Add(11 * time.Minute)

	got, err := r.Rules(context.Background(), "BTCUSDT")
	require.NoError(t, err, "stale cache must be served instead of an error")
	assert.Equal(t, "BTCUSDT", got.Symbol)
}

func TestRulesUnavailableWithoutCache(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("exchange is down")}
	r := NewResolver(source, 10*time.Minute, zap.NewNop())

	_, err := r.Rules(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRulesUnavailable))
}

func TestRulesCachePerSymbol(t *testing.T) {
	source := &fakeSource{rules: testRules()}
	r := NewResolver(source, 10*time.Minute, zap.NewNop())

	_, err := r.Rules(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	_, err = r.Rules(context.Background(), "ETHUSDT")
	require.NoError(t, err)

	assert.Equal(t, 2, source.calls, "each symbol is fetched separately")
}
