package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func btcRules() SymbolRules {
	return SymbolRules{
		Symbol:   "BTCUSDT",
		StepSize: decimal.RequireFromString("0.00001"),
		TickSize: decimal.RequireFromString("0.01"),
		MinQty:   decimal.RequireFromString("0.00001"),
		MaxQty:   decimal.NewFromInt(9000),
		MinPrice: decimal.RequireFromString("0.01"),
		MaxPrice: decimal.NewFromInt(1000000),
	}
}

func TestSizeQuantity(t *testing.T) {
	minMovement := decimal.RequireFromString("0.00001")

	tests := []struct {
		name     string
		notional string
		price    string
		expected string
	}{
		{
			// 100/50000 = 0.002 exactly, rounding lands on the raw value,
			// one increment is added
			name:     "exact division nudges one increment",
			notional: "100",
			price:    "50000",
			expected: "0.00201",
		},
		{
			// 100/30000 = 0.003333..., rounding truncates below the raw
			// value, two increments compensate
			name:     "round down nudges two increments",
			notional: "100",
			price:    "30000",
			expected: "0.00335",
		},
		{
			// 100/60000 = 0.0016666..., rounding lands above the raw value
			name:     "round up nudges one increment",
			notional: "100",
			price:    "60000",
			expected: "0.00168",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := SizeQuantity(
				decimal.RequireFromString(tt.notional),
				decimal.RequireFromString(tt.price),
				btcRules(),
				minMovement,
				5,
			)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(qty),
				"expected %s, got %s", tt.expected, qty.String())
		})
	}
}

func TestSizeQuantityStepMultiple(t *testing.T) {
	rules := btcRules()
	rules.StepSize = decimal.RequireFromString("0.0001")

	qty, err := SizeQuantity(
		decimal.NewFromInt(100),
		decimal.NewFromInt(30000),
		rules,
		decimal.RequireFromString("0.00001"),
		5,
	)
	require.NoError(t, err)

	// the result must be a whole multiple of the step size
	rem := qty.Mod(rules.StepSize)
	assert.True(t, rem.IsZero(), "quantity %s is not a multiple of step %s", qty, rules.StepSize)
	assert.True(t, qty.GreaterThanOrEqual(rules.MinQty))
	assert.True(t, qty.LessThanOrEqual(rules.MaxQty))
}

func TestSizeQuantityClampsToBounds(t *testing.T) {
	rules := btcRules()
	rules.MinQty = decimal.RequireFromString("0.01")

	qty, err := SizeQuantity(
		decimal.NewFromInt(100),
		decimal.NewFromInt(50000),
		rules,
		decimal.RequireFromString("0.00001"),
		5,
	)
	require.NoError(t, err)
	assert.True(t, qty.Equal(rules.MinQty), "expected clamp to min qty, got %s", qty)

	rules = btcRules()
	rules.MaxQty = decimal.RequireFromString("0.001")

	qty, err = SizeQuantity(
		decimal.NewFromInt(100),
		decimal.NewFromInt(50000),
		rules,
		decimal.RequireFromString("0.00001"),
		5,
	)
	require.NoError(t, err)
	assert.True(t, qty.Equal(rules.MaxQty), "expected clamp to max qty, got %s", qty)
}

func TestSizeQuantityRejectsBadInputs(t *testing.T) {
	_, err := SizeQuantity(decimal.NewFromInt(100), decimal.Zero, btcRules(), decimal.Zero, 5)
	require.Error(t, err)

	_, err = SizeQuantity(decimal.Zero, decimal.NewFromInt(50000), btcRules(), decimal.Zero, 5)
	require.Error(t, err)
}

func TestQuantizePrice(t *testing.T) {
	coarse := btcRules()
	coarse.TickSize = decimal.RequireFromString("0.1")

	price := QuantizePrice(decimal.RequireFromString("49999.37"), coarse)
	assert.True(t, decimal.RequireFromString("49999.3").Equal(price), "got %s", price)

	rules := btcRules()

	// below the exchange floor the price is lifted to MinPrice
	price = QuantizePrice(decimal.RequireFromString("0.001"), rules)
	assert.True(t, rules.MinPrice.Equal(price), "got %s", price)

	// above the ceiling it is capped at MaxPrice
	price = QuantizePrice(decimal.NewFromInt(2000000), rules)
	assert.True(t, rules.MaxPrice.Equal(price), "got %s", price)
}

func TestQuantizeQuantity(t *testing.T) {
	rules := btcRules()
	rules.StepSize = decimal.RequireFromString("0.001")

	qty := QuantizeQuantity(decimal.RequireFromString("0.0257"), rules)
	assert.True(t, decimal.RequireFromString("0.025").Equal(qty), "got %s", qty)
}

func TestQuantizeSkipsUnsetBounds(t *testing.T) {
	// bybit spot publishes no price bounds; zero bounds must not clamp
	rules := SymbolRules{
		Symbol:   "ETHUSDT",
		StepSize: decimal.RequireFromString("0.0001"),
		TickSize: decimal.RequireFromString("0.01"),
	}

	price := QuantizePrice(decimal.RequireFromString("3000.55"), rules)
	assert.True(t, decimal.RequireFromString("3000.55").Equal(price), "got %s", price)
}
