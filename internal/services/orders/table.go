// Package orders owns in-flight exchange orders awaiting fill or cancellation.
package orders

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/ladder/internal/domain"
)

// Table tracks pending orders keyed by exchange order id. Insertion of an
// already-present id is rejected: a duplicate implies a reconciliation bug
// and must never overwrite live state.
//
// Like the ledger, the table relies on the strategy engine's lock for
// concurrency safety.
type Table struct {
	orders map[string]domain.PendingOrder
}

// New creates an empty table.
func New() *Table {
	return &Table{orders: make(map[string]domain.PendingOrder)}
}

// Insert adds the order, failing with domain.ErrDuplicateOrder when the
// order id is already present. The table is left unchanged on failure.
func (t *Table) Insert(order domain.PendingOrder) error {
	if _, ok := t.orders[order.OrderID]; ok {
		return errors.Wrapf(domain.ErrDuplicateOrder, "order %s", order.OrderID)
	}
	t.orders[order.OrderID] = order
	return nil
}

// Get returns the order by id.
func (t *Table) Get(orderID string) (domain.PendingOrder, bool) {
	order, ok := t.orders[orderID]
	return order, ok
}

// Age returns how long the order has been outstanding. The second return is
// false when the order is not in the table.
func (t *Table) Age(orderID string, now time.Time) (time.Duration, bool) {
	order, ok := t.orders[orderID]
	if !ok {
		return 0, false
	}
	return order.Age(now), true
}

// Remove deletes the order and returns it.
func (t *Table) Remove(orderID string) (domain.PendingOrder, bool) {
	order, ok := t.orders[orderID]
	if ok {
		delete(t.orders, orderID)
	}
	return order, ok
}

// All returns every pending order, sorted by order id for deterministic
// iteration (insertion order is not significant).
func (t *Table) All() []domain.PendingOrder {
	out := make([]domain.PendingOrder, 0, len(t.orders))
	for _, order := range t.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// ForSymbol returns the symbol's pending orders sorted by order id.
func (t *Table) ForSymbol(symbol string) []domain.PendingOrder {
	var out []domain.PendingOrder
	for _, order := range t.orders {
		if order.Symbol == symbol {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// CountForSymbol returns the number of pending orders for the symbol.
func (t *Table) CountForSymbol(symbol string) int {
	count := 0
	for _, order := range t.orders {
		if order.Symbol == symbol {
			count++
		}
	}
	return count
}

// Len returns the total number of pending orders.
func (t *Table) Len() int {
	return len(t.orders)
}

// Symbols returns all symbols with at least one pending order, sorted.
func (t *Table) Symbols() []string {
	seen := make(map[string]struct{})
	for _, order := range t.orders {
		seen[order.Symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
