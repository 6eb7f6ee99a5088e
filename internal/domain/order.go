package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderStatus is the exchange-reported lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "OPEN"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusExpired  OrderStatus = "EXPIRED"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusUnknown  OrderStatus = "UNKNOWN"
)

// Terminal reports whether the status removes the order from the pending
// table without a fill.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCanceled, OrderStatusExpired, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// PendingOrder is an in-flight exchange order awaiting fill or cancellation.
// It is keyed by the exchange-assigned order id.
type PendingOrder struct {
	Symbol      string          `json:"symbol"`
	OrderID     string          `json:"order_id"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// NewPendingOrder creates a validated PendingOrder.
func NewPendingOrder(symbol, orderID string, side Side, price, quantity decimal.Decimal, submittedAt time.Time) (PendingOrder, error) {
	if symbol == "" {
		return PendingOrder{}, fmt.Errorf("symbol is required")
	}
	if orderID == "" {
		return PendingOrder{}, fmt.Errorf("order id is required")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return PendingOrder{}, fmt.Errorf("quantity must be positive, got %s", quantity.String())
	}

	return PendingOrder{
		Symbol:      symbol,
		OrderID:     orderID,
		Side:        side,
		Price:       price,
		Quantity:    quantity,
		SubmittedAt: submittedAt,
	}, nil
}

// Age returns how long the order has been outstanding at the given time.
func (o PendingOrder) Age(now time.Time) time.Duration {
	return now.Sub(o.SubmittedAt)
}
