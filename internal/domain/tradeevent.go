package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeEventKind labels a trade lifecycle transition.
type TradeEventKind string

const (
	TradeEventSubmitted TradeEventKind = "submitted"
	TradeEventFilled    TradeEventKind = "filled"
	TradeEventCanceled  TradeEventKind = "canceled"
	TradeEventExited    TradeEventKind = "exited"
)

// TradeEvent is emitted for every order lifecycle transition so an external
// recorder can durably log it. The engine itself keeps no durable state.
type TradeEvent struct {
	Kind     TradeEventKind  `json:"kind"`
	Symbol   string          `json:"symbol"`
	OrderID  string          `json:"order_id,omitempty"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Time     time.Time       `json:"time"`
}
