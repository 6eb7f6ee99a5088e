// Package exchange defines the capability the engine consumes to talk to a
// trading venue, plus adapters for the supported platforms.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/internal/domain"
)

// Exchange is the abstract venue capability. Adapters are responsible for
// wire formats, authentication, and timeouts; failures surface as errors
// wrapped around the domain error taxonomy, never as engine-level
// cancellation.
type Exchange interface {
	// CurrentPrice returns the last traded price for the symbol.
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	// Equity returns the free quote-asset balance.
	Equity(ctx context.Context) (decimal.Decimal, error)
	// NetProfit returns equity gained or lost relative to the configured
	// initial capital.
	NetProfit(ctx context.Context) (decimal.Decimal, error)
	// SymbolRules returns the venue's quantization rules for the symbol.
	SymbolRules(ctx context.Context, symbol string) (domain.SymbolRules, error)
	// SubmitLimitOrder places a GTC limit order and returns the
	// venue-assigned order id.
	SubmitLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (string, error)
	// SubmitMarketOrder places a market order and returns the order id.
	SubmitMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (string, error)
	// OrderStatus reports the lifecycle state of an order.
	OrderStatus(ctx context.Context, symbol, orderID string) (domain.OrderStatus, error)
	// CancelOrder cancels an open order. A false return with nil error means
	// the order was already gone.
	CancelOrder(ctx context.Context, symbol, orderID string) (bool, error)
	// OpenOrders lists the venue's open orders for the symbol.
	OpenOrders(ctx context.Context, symbol string) ([]domain.PendingOrder, error)
	// Position returns the venue's view of the net long position, or nil
	// when flat or unsupported. Used to rebuild state after a restart.
	Position(ctx context.Context, symbol string) (*domain.PositionSnapshot, error)
}
