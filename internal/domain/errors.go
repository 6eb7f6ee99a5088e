package domain

import "errors"

var (
	// ErrDuplicateOrder is returned when an order id is inserted into the
	// pending order table twice. A duplicate means reconciliation went wrong,
	// so it must surface instead of silently overwriting.
	ErrDuplicateOrder = errors.New("duplicate order id")

	// ErrRulesUnavailable is returned when exchange metadata cannot be
	// fetched and no cached rules exist for the symbol.
	ErrRulesUnavailable = errors.New("symbol rules unavailable")

	// ErrOrderRejected is returned when the exchange refuses an order
	// submission (quantity or price out of bounds, insufficient balance).
	ErrOrderRejected = errors.New("order rejected by exchange")

	// ErrExchangeUnavailable marks transport-level failures (network,
	// timeout). Reconciliation logs it and retries on the next pass.
	ErrExchangeUnavailable = errors.New("exchange unavailable")
)
