package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestGetYamlFullConfig(t *testing.T) {
	path := writeConfig(t, `
platform: binance
symbols: [btcusdt, ETHUSDT]
quote_asset: usdt
order_value: "250"
min_movement: "0.00001"
rounding: 5
below_percent: "0.75"
profit_percent: "1.5"
max_orders: 8
order_ttl: 3m
reprice_bias: "0.997"
trade_from: "2026-08-01T12:00:00Z"
reconcile_interval: 30s
rules_refresh_interval: 15m
initial_capital: "1000"
listen_addr: ":9090"
webhook_token: sekret
journal_dir: /tmp/journal
snapshot_dir: /tmp/snapshots
`)

	cfg, err := getYaml(path)
	require.NoError(t, err)

	assert.Equal(t, "binance", cfg.Platform)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.True(t, decimal.NewFromInt(250).Equal(cfg.OrderValue))
	assert.True(t, decimal.RequireFromString("0.75").Equal(cfg.BelowPercent))
	assert.True(t, decimal.RequireFromString("1.5").Equal(cfg.ProfitPercent))
	assert.Equal(t, 8, cfg.MaxOrders)
	assert.Equal(t, 3*time.Minute, cfg.OrderTTL)
	assert.True(t, decimal.RequireFromString("0.997").Equal(cfg.RepriceBias))
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), cfg.TradeFrom.UTC())
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 15*time.Minute, cfg.RulesRefreshInterval)
	assert.True(t, decimal.NewFromInt(1000).Equal(cfg.InitialCapital))
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "sekret", cfg.WebhookToken)
	assert.Equal(t, "/tmp/journal", cfg.JournalDir)
	assert.Equal(t, "/tmp/snapshots", cfg.SnapshotDir)
}

func TestGetYamlDefaults(t *testing.T) {
	path := writeConfig(t, `
platform: bybit
symbols: [BTCUSDT]
`)

	cfg, err := getYaml(path)
	require.NoError(t, err)

	assert.Equal(t, "USDT", cfg.QuoteAsset)
	assert.True(t, defaultOrderValue.Equal(cfg.OrderValue))
	assert.True(t, defaultBelowPercent.Equal(cfg.BelowPercent))
	assert.True(t, defaultProfitPercent.Equal(cfg.ProfitPercent))
	assert.True(t, defaultRepriceBias.Equal(cfg.RepriceBias))
	assert.Equal(t, defaultMaxOrders, cfg.MaxOrders)
	assert.Equal(t, defaultOrderTTL, cfg.OrderTTL)
	assert.Equal(t, defaultReconcileInterval, cfg.ReconcileInterval)
	assert.Equal(t, defaultRulesRefreshInterval, cfg.RulesRefreshInterval)
	assert.Equal(t, defaultListenAddr, cfg.ListenAddr)
	assert.True(t, cfg.TradeFrom.IsZero())
}

func TestGetYamlValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing platform",
			content: "symbols: [BTCUSDT]",
		},
		{
			name:    "unsupported platform",
			content: "platform: kraken\nsymbols: [BTCUSDT]",
		},
		{
			name:    "missing symbols",
			content: "platform: binance",
		},
		{
			name:    "bad decimal",
			content: "platform: binance\nsymbols: [BTCUSDT]\norder_value: \"abc\"",
		},
		{
			name:    "bad trade_from",
			content: "platform: binance\nsymbols: [BTCUSDT]\ntrade_from: \"yesterday\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := getYaml(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}
