// Package reconciler runs the periodic pass that aligns local state with
// the exchange's authoritative view.
package reconciler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/metrics"
	"go.uber.org/zap"
)

// DefaultInterval is the recommended time between reconciliation passes.
const DefaultInterval = time.Minute

type lifecycleEngine interface {
	ActiveSymbols() []string
	PendingOrdersForSymbol(symbol string) []domain.PendingOrder
	PromoteFill(orderID string) error
	DropOrder(orderID string, status domain.OrderStatus)
	RepriceIfStale(ctx context.Context, order domain.PendingOrder) error
	CheckExit(ctx context.Context, symbol string, currentPrice decimal.Decimal) (*domain.TradeEvent, error)
	RestorePosition(snapshot domain.PositionSnapshot) error
	RestoreOrder(order domain.PendingOrder)
	Counts() (openLots, pendingOrders int)
}

type exchangeClient interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Equity(ctx context.Context) (decimal.Decimal, error)
	NetProfit(ctx context.Context) (decimal.Decimal, error)
	OrderStatus(ctx context.Context, symbol, orderID string) (domain.OrderStatus, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.PendingOrder, error)
	Position(ctx context.Context, symbol string) (*domain.PositionSnapshot, error)
}

type snapshotStore interface {
	Save(snapshot domain.EquitySnapshot) error
}

type snapshotPublisher interface {
	Publish(snapshot domain.EquitySnapshot)
}

// Reconciler polls the exchange on a fixed interval and advances order and
// ledger state. Every pass is idempotent: it only moves order state forward
// or closes positions, never regresses, so a failed pass is simply retried
// on the next tick.
type Reconciler struct {
	engine      lifecycleEngine
	exchange    exchangeClient
	store       snapshotStore
	broadcaster snapshotPublisher
	interval    time.Duration
	// symbols watched for the initial sync after a restart
	symbols []string
	l       *zap.Logger

	now func() time.Time
}

// New creates a reconciler. store and broadcaster may be nil when snapshot
// persistence is disabled.
func New(engine lifecycleEngine, exchange exchangeClient, store snapshotStore, broadcaster snapshotPublisher,
	interval time.Duration, symbols []string, l *zap.Logger) *Reconciler {

	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		engine:      engine,
		exchange:    exchange,
		store:       store,
		broadcaster: broadcaster,
		interval:    interval,
		symbols:     symbols,
		l:           l,
		now:         time.Now,
	}
}

// Run blocks until the context is cancelled. The first action is the sync
// pass that rebuilds local state from the exchange; the engine holds no
// durable state of its own across restarts.
func (r *Reconciler) Run(ctx context.Context) error {
	r.SyncFromExchange(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Pass(ctx)
		}
	}
}

// SyncFromExchange rebuilds the position ledger and the pending order table
// from the exchange's live state for every watched symbol.
func (r *Reconciler) SyncFromExchange(ctx context.Context) {
	for _, symbol := range r.symbols {
		position, err := r.exchange.Position(ctx, symbol)
		if err != nil {
			r.l.Error("initial sync: position lookup failed",
				zap.String("symbol", symbol), zap.Error(err))
		} else if position != nil {
			if err := r.engine.RestorePosition(*position); err != nil {
				r.l.Error("initial sync: failed to restore position",
					zap.String("symbol", symbol), zap.Error(err))
			} else {
				r.l.Info("initial sync: position restored",
					zap.String("symbol", symbol),
					zap.String("quantity", position.Quantity.String()),
					zap.String("avg_price", position.AvgPrice.String()))
			}
		}

		open, err := r.exchange.OpenOrders(ctx, symbol)
		if err != nil {
			r.l.Error("initial sync: open orders lookup failed",
				zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		for _, order := range open {
			r.engine.RestoreOrder(order)
		}
		if len(open) > 0 {
			r.l.Info("initial sync: pending orders restored",
				zap.String("symbol", symbol), zap.Int("count", len(open)))
		}
	}
}

// Pass runs one reconciliation pass. Per-symbol failures are isolated: one
// bad symbol never starves the others.
func (r *Reconciler) Pass(ctx context.Context) {
	for _, symbol := range r.engine.ActiveSymbols() {
		if err := r.reconcileSymbol(ctx, symbol); err != nil {
			metrics.ReconcileErrors.WithLabelValues(symbol).Inc()
			r.l.Error("reconciliation step failed, continuing with next symbol",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}

	r.snapshot(ctx)
	metrics.ReconcilePasses.Inc()
}

// reconcileSymbol applies order lifecycle transitions for the symbol and
// then runs the exit check, in that order, so a fill observed in this pass
// is reflected in the average price the profit target compares against.
func (r *Reconciler) reconcileSymbol(ctx context.Context, symbol string) error {
	for _, order := range r.engine.PendingOrdersForSymbol(symbol) {
		status, err := r.exchange.OrderStatus(ctx, symbol, order.OrderID)
		if err != nil {
			return err
		}

		switch {
		case status == domain.OrderStatusFilled:
			if err := r.engine.PromoteFill(order.OrderID); err != nil {
				r.l.Error("failed to promote fill",
					zap.String("order_id", order.OrderID), zap.Error(err))
			}
		case status.Terminal():
			r.engine.DropOrder(order.OrderID, status)
		case status == domain.OrderStatusOpen:
			if err := r.engine.RepriceIfStale(ctx, order); err != nil {
				r.l.Error("stale order re-pricing failed",
					zap.String("order_id", order.OrderID), zap.Error(err))
			}
		default:
			// UNKNOWN: leave the order for the next pass
			r.l.Warn("order status unknown, keeping order",
				zap.String("symbol", symbol),
				zap.String("order_id", order.OrderID))
		}
	}

	price, err := r.exchange.CurrentPrice(ctx, symbol)
	if err != nil {
		return err
	}

	event, err := r.engine.CheckExit(ctx, symbol, price)
	if err != nil {
		return err
	}
	if event != nil {
		r.l.Info("exit executed",
			zap.String("symbol", symbol),
			zap.String("quantity", event.Quantity.String()),
			zap.String("price", event.Price.String()))
	}

	return nil
}

func (r *Reconciler) snapshot(ctx context.Context) {
	equity, err := r.exchange.Equity(ctx)
	if err != nil {
		r.l.Error("snapshot: equity lookup failed", zap.Error(err))
		return
	}
	netProfit, err := r.exchange.NetProfit(ctx)
	if err != nil {
		r.l.Error("snapshot: net profit lookup failed", zap.Error(err))
		return
	}

	openLots, pendingOrders := r.engine.Counts()

	metrics.Equity.Set(equity.InexactFloat64())
	metrics.OpenLots.Set(float64(openLots))
	metrics.PendingOrders.Set(float64(pendingOrders))

	snap := domain.EquitySnapshot{
		Timestamp:     r.now(),
		Equity:        equity.String(),
		NetProfit:     netProfit.String(),
		OpenLots:      openLots,
		PendingOrders: pendingOrders,
	}

	if r.store != nil {
		if err := r.store.Save(snap); err != nil {
			r.l.Error("failed to persist equity snapshot", zap.Error(err))
		}
	}
	if r.broadcaster != nil {
		r.broadcaster.Publish(snap)
	}
}
