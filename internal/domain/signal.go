package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SignalAction is the external collaborator's instruction.
type SignalAction string

const (
	SignalActionBuy  SignalAction = "buy"
	SignalActionSell SignalAction = "sell"
)

// Signal is one inbound trading signal.
type Signal struct {
	Symbol string          `json:"symbol"`
	Action SignalAction    `json:"action"`
	Price  decimal.Decimal `json:"price"`
}

// Validate checks that the signal is actionable.
func (s Signal) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("signal symbol is required")
	}
	if s.Action != SignalActionBuy && s.Action != SignalActionSell {
		return fmt.Errorf("unsupported signal action %q", s.Action)
	}
	if s.Price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("signal price must be positive, got %s", s.Price.String())
	}
	return nil
}

// SignalStatus is the outcome reported back to the signal source.
type SignalStatus string

const (
	// SignalStatusSuccess means a buy order was submitted.
	SignalStatusSuccess SignalStatus = "success"
	// SignalStatusSold means the position was closed in response to a sell signal.
	SignalStatusSold SignalStatus = "sold"
	// SignalStatusIgnored means the signal failed an admission gate. Not an error.
	SignalStatusIgnored SignalStatus = "ignored"
	// SignalStatusError means processing failed.
	SignalStatusError SignalStatus = "error"
)

// SignalResult is the structured response for one processed signal.
// Quantity is a pointer so non-sell outcomes omit the field entirely
// (omitempty never fires on a zero-valued decimal struct).
type SignalResult struct {
	Status   SignalStatus     `json:"status"`
	OrderID  string           `json:"order_id,omitempty"`
	Quantity *decimal.Decimal `json:"quantity,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Ignored is the no-op result returned when an admission gate rejects a signal.
func Ignored() SignalResult {
	return SignalResult{Status: SignalStatusIgnored}
}
