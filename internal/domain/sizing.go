package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// SizeQuantity converts a target notional value and a price into an
// exchange-compliant order quantity.
//
// The raw quantity is rounded to the configured precision and then nudged
// upward by one minMovement increment when rounding landed at or above the
// raw value, by two increments otherwise. The asymmetric nudge biases toward
// slight over-sizing after a round-down, so the order never under-fills the
// intended notional due to truncation. This is intentional strategy tuning
// carried over unchanged; minMovement is configurable.
//
// The result is clamped to [MinQty, MaxQty] and floored to the nearest
// StepSize multiple.
func SizeQuantity(targetNotional, price decimal.Decimal, rules SymbolRules, minMovement decimal.Decimal, precision int32) (decimal.Decimal, error) {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", price.String())
	}
	if targetNotional.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("target notional must be positive, got %s", targetNotional.String())
	}

	raw := targetNotional.Div(price)
	rounded := raw.Round(precision)

	var qty decimal.Decimal
	if rounded.GreaterThanOrEqual(raw) {
		qty = rounded.Add(minMovement)
	} else {
		qty = rounded.Add(minMovement.Mul(two))
	}

	qty = clamp(qty, rules.MinQty, rules.MaxQty)
	return stepFloor(qty, rules.StepSize), nil
}

// QuantizePrice clamps the price to [MinPrice, MaxPrice] and floors it to
// the nearest TickSize multiple.
func QuantizePrice(price decimal.Decimal, rules SymbolRules) decimal.Decimal {
	price = clamp(price, rules.MinPrice, rules.MaxPrice)
	return stepFloor(price, rules.TickSize)
}

// QuantizeQuantity clamps the quantity to [MinQty, MaxQty] and floors it to
// the nearest StepSize multiple.
func QuantizeQuantity(qty decimal.Decimal, rules SymbolRules) decimal.Decimal {
	qty = clamp(qty, rules.MinQty, rules.MaxQty)
	return stepFloor(qty, rules.StepSize)
}

func clamp(v, min, max decimal.Decimal) decimal.Decimal {
	if min.IsPositive() && v.LessThan(min) {
		v = min
	}
	if max.IsPositive() && v.GreaterThan(max) {
		v = max
	}
	return v
}

func stepFloor(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}
