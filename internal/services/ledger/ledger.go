// Package ledger owns the authoritative record of open cost-basis lots.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/internal/domain"
)

// Ledger tracks open lots per symbol and derives cost-basis figures from
// them. All lots of a symbol are long; exits close them atomically.
//
// Ledger is not safe for concurrent use on its own: the strategy engine
// serializes every access behind its single lock, together with the pending
// order table, so admission checks always see a consistent snapshot.
type Ledger struct {
	lots map[string][]domain.Lot
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{lots: make(map[string][]domain.Lot)}
}

// AddLot appends a lot for its symbol. Lots are never merged.
func (l *Ledger) AddLot(lot domain.Lot) {
	l.lots[lot.Symbol] = append(l.lots[lot.Symbol], lot)
}

// Lots returns a copy of the symbol's lots in insertion order.
func (l *Ledger) Lots(symbol string) []domain.Lot {
	lots := l.lots[symbol]
	if len(lots) == 0 {
		return nil
	}
	out := make([]domain.Lot, len(lots))
	copy(out, lots)
	return out
}

// LotCount returns the number of open lots for the symbol.
func (l *Ledger) LotCount(symbol string) int {
	return len(l.lots[symbol])
}

// TotalLots returns the number of open lots across all symbols.
func (l *Ledger) TotalLots() int {
	total := 0
	for _, lots := range l.lots {
		total += len(lots)
	}
	return total
}

// AveragePrice returns the quantity-weighted mean entry price of the
// symbol's lots. The second return is false when no lots exist; an absent
// average is a normal value, not a failure.
func (l *Ledger) AveragePrice(symbol string) (decimal.Decimal, bool) {
	lots := l.lots[symbol]
	if len(lots) == 0 {
		return decimal.Zero, false
	}

	totalCost := decimal.Zero
	totalQty := decimal.Zero
	for _, lot := range lots {
		totalCost = totalCost.Add(lot.EntryPrice.Mul(lot.Quantity))
		totalQty = totalQty.Add(lot.Quantity)
	}
	if totalQty.IsZero() {
		return decimal.Zero, false
	}

	return totalCost.Div(totalQty), true
}

// LastEntryPrice returns the entry price of the most recent lot. The DCA
// ladder anchors on the last entry, not the symbol average.
func (l *Ledger) LastEntryPrice(symbol string) (decimal.Decimal, bool) {
	lots := l.lots[symbol]
	if len(lots) == 0 {
		return decimal.Zero, false
	}
	return lots[len(lots)-1].EntryPrice, true
}

// UnrealizedProfit returns Σ(currentPrice − entryPrice)·quantity across the
// symbol's lots, zero when no lots exist.
func (l *Ledger) UnrealizedProfit(symbol string, currentPrice decimal.Decimal) decimal.Decimal {
	profit := decimal.Zero
	for _, lot := range l.lots[symbol] {
		profit = profit.Add(currentPrice.Sub(lot.EntryPrice).Mul(lot.Quantity))
	}
	return profit
}

// TotalQuantity returns the summed quantity of the symbol's lots.
func (l *Ledger) TotalQuantity(symbol string) decimal.Decimal {
	qty := decimal.Zero
	for _, lot := range l.lots[symbol] {
		qty = qty.Add(lot.Quantity)
	}
	return qty
}

// CloseAll removes every lot of the symbol and returns them. This is the
// only closing operation; partial exits are out of scope.
func (l *Ledger) CloseAll(symbol string) []domain.Lot {
	lots := l.lots[symbol]
	delete(l.lots, symbol)
	return lots
}

// Symbols returns all symbols with at least one open lot, sorted for
// deterministic reconciliation order.
func (l *Ledger) Symbols() []string {
	symbols := make([]string, 0, len(l.lots))
	for symbol, lots := range l.lots {
		if len(lots) > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}
