// Package domain defines core data structures used throughout the trading bot.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one executed buy fill recorded against a symbol's position.
// Lots are immutable once created and are destroyed only by full-position
// closure; this design never reduces a lot partially.
type Lot struct {
	Symbol        string          `json:"symbol"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	OriginOrderID string          `json:"origin_order_id"`
	OpenedAt      time.Time       `json:"opened_at"`
}

// NewLot creates a validated Lot.
func NewLot(symbol string, entryPrice, quantity decimal.Decimal, originOrderID string, openedAt time.Time) (Lot, error) {
	if symbol == "" {
		return Lot{}, fmt.Errorf("symbol is required")
	}
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return Lot{}, fmt.Errorf("entry price must be positive, got %s", entryPrice.String())
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return Lot{}, fmt.Errorf("quantity must be positive, got %s", quantity.String())
	}

	return Lot{
		Symbol:        symbol,
		EntryPrice:    entryPrice,
		Quantity:      quantity,
		OriginOrderID: originOrderID,
		OpenedAt:      openedAt,
	}, nil
}

// Notional returns the quote value of the lot at its entry price.
func (l Lot) Notional() decimal.Decimal {
	return l.EntryPrice.Mul(l.Quantity)
}

// PositionSnapshot is the exchange's authoritative view of a net long
// position, used to rebuild the ledger after a restart.
type PositionSnapshot struct {
	Symbol    string
	Quantity  decimal.Decimal
	AvgPrice  decimal.Decimal
	EntryTime time.Time
}
