// Package strategy implements the position and order lifecycle engine: it
// turns inbound signals into sized, price-validated orders, tracks cost
// basis, re-prices aged orders, and detects profit-target exits.
package strategy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/internal/domain"
	"github.com/vadiminshakov/ladder/internal/metrics"
	"github.com/vadiminshakov/ladder/internal/services/ledger"
	"github.com/vadiminshakov/ladder/internal/services/orders"
	"go.uber.org/zap"
)

const syncOriginOrderID = "sync"

var hundred = decimal.NewFromInt(100)

type exchangeClient interface {
	CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Equity(ctx context.Context) (decimal.Decimal, error)
	NetProfit(ctx context.Context) (decimal.Decimal, error)
	SubmitLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (string, error)
	SubmitMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (string, error)
	CancelOrder(ctx context.Context, symbol, orderID string) (bool, error)
	OrderStatus(ctx context.Context, symbol, orderID string) (domain.OrderStatus, error)
}

type rulesResolver interface {
	Rules(ctx context.Context, symbol string) (domain.SymbolRules, error)
}

type tradeRecorder interface {
	Record(event domain.TradeEvent) error
}

// Params are the strategy tuning knobs.
type Params struct {
	// OrderValue is the target notional per buy, in the quote asset.
	OrderValue decimal.Decimal
	// MinMovement is the quantization increment added after rounding; see
	// domain.SizeQuantity for the asymmetric nudge it feeds.
	MinMovement decimal.Decimal
	// Rounding is the decimal precision quantities are rounded to before
	// the nudge.
	Rounding int32
	// BelowPercent sets the DCA rung: each next entry sits this far below
	// the last one.
	BelowPercent decimal.Decimal
	// ProfitPercent sets the exit target above the average entry price.
	ProfitPercent decimal.Decimal
	// MaxOrders caps open lots per symbol together with the PIR.
	MaxOrders int
	// OrderTTL is how long an unfilled order may live before it is
	// canceled and re-quoted.
	OrderTTL time.Duration
	// RepriceBias multiplies the re-quote level to sit slightly below the
	// formal DCA step, raising fill probability. Deliberate tuning, kept
	// configurable; default 0.998.
	RepriceBias decimal.Decimal
	// TradeFrom gates entries: signals arriving earlier are ignored. Zero
	// means always open.
	TradeFrom time.Time
}

// Validate checks the parameters hold workable values.
func (p Params) Validate() error {
	if p.OrderValue.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("order value must be positive, got %s", p.OrderValue.String())
	}
	if p.BelowPercent.LessThanOrEqual(decimal.Zero) || p.BelowPercent.GreaterThanOrEqual(hundred) {
		return fmt.Errorf("below percent must be in (0, 100), got %s", p.BelowPercent.String())
	}
	if p.ProfitPercent.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("profit percent must be positive, got %s", p.ProfitPercent.String())
	}
	if p.MaxOrders < 1 {
		return fmt.Errorf("max orders must be at least 1, got %d", p.MaxOrders)
	}
	if p.OrderTTL <= 0 {
		return fmt.Errorf("order TTL must be positive, got %s", p.OrderTTL)
	}
	if p.RepriceBias.LessThanOrEqual(decimal.Zero) || p.RepriceBias.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("reprice bias must be in (0, 1], got %s", p.RepriceBias.String())
	}
	return nil
}

// Engine owns the position ledger and the pending order table behind a
// single lock. Every compound read-decide-mutate sequence is serialized
// through it; exchange I/O happens outside the lock so the signal-intake
// path and the reconciliation pass never block each other on the network.
type Engine struct {
	params   Params
	exchange exchangeClient
	rules    rulesResolver
	journal  tradeRecorder
	l        *zap.Logger

	mu             sync.Mutex
	ledger         *ledger.Ledger
	orders         *orders.Table
	windowOverride bool

	// now is swappable for tests
	now func() time.Time
}

// New creates an engine with empty state.
func New(params Params, exchange exchangeClient, rules rulesResolver, journal tradeRecorder, l *zap.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid strategy params")
	}

	return &Engine{
		params:   params,
		exchange: exchange,
		rules:    rules,
		journal:  journal,
		l:        l,
		ledger:   ledger.New(),
		orders:   orders.New(),
		now:      time.Now,
	}, nil
}

// SetWindowOverride opens the trading window regardless of the configured
// start time. Operational toggle for testing.
func (e *Engine) SetWindowOverride(enabled bool) {
	e.mu.Lock()
	e.windowOverride = enabled
	e.mu.Unlock()
}

// HandleSignal processes one inbound signal and returns the structured
// result for the caller. Gate rejections are a normal "ignored" outcome,
// not errors.
func (e *Engine) HandleSignal(ctx context.Context, sig domain.Signal) domain.SignalResult {
	if err := sig.Validate(); err != nil {
		return domain.SignalResult{Status: domain.SignalStatusError, Message: err.Error()}
	}

	switch sig.Action {
	case domain.SignalActionBuy:
		return e.handleBuy(ctx, sig)
	case domain.SignalActionSell:
		return e.handleSell(ctx, sig)
	default:
		return domain.SignalResult{Status: domain.SignalStatusError, Message: fmt.Sprintf("unsupported action %q", sig.Action)}
	}
}

func (e *Engine) handleBuy(ctx context.Context, sig domain.Signal) domain.SignalResult {
	if !e.tradingWindowOpen() {
		e.l.Info("signal arrived before trading window start, ignoring",
			zap.String("symbol", sig.Symbol))
		return domain.Ignored()
	}

	e.mu.Lock()
	lastEntry, hasLot := e.ledger.LastEntryPrice(sig.Symbol)
	lotCount := e.ledger.LotCount(sig.Symbol)
	e.mu.Unlock()

	// the DCA ladder anchors on the most recent lot's entry price; the
	// first entry is always accepted at the signal price
	nextEntry := sig.Price
	if hasLot {
		nextEntry = lastEntry.Mul(e.buyStepFactor())
	}

	if sig.Price.GreaterThan(nextEntry) {
		e.l.Info("signal price above next DCA rung, ignoring",
			zap.String("symbol", sig.Symbol),
			zap.String("signal_price", sig.Price.String()),
			zap.String("next_entry", nextEntry.String()))
		return domain.Ignored()
	}

	admitted, err := e.canOpenNewPosition(ctx, sig.Symbol, lotCount)
	if err != nil {
		e.l.Error("position cap check failed", zap.String("symbol", sig.Symbol), zap.Error(err))
		return domain.SignalResult{Status: domain.SignalStatusError, Message: err.Error()}
	}
	if !admitted {
		e.l.Info("position cap reached, ignoring signal",
			zap.String("symbol", sig.Symbol),
			zap.Int("open_lots", lotCount))
		return domain.Ignored()
	}

	order, err := e.submitEntry(ctx, sig.Symbol, nextEntry)
	if err != nil {
		e.l.Error("entry submission failed", zap.String("symbol", sig.Symbol), zap.Error(err))
		return domain.SignalResult{Status: domain.SignalStatusError, Message: err.Error()}
	}

	return domain.SignalResult{Status: domain.SignalStatusSuccess, OrderID: order.OrderID}
}

// submitEntry sizes, quantizes, submits, and registers one limit buy at the
// given target level.
func (e *Engine) submitEntry(ctx context.Context, symbol string, level decimal.Decimal) (domain.PendingOrder, error) {
	rules, err := e.rules.Rules(ctx, symbol)
	if err != nil {
		return domain.PendingOrder{}, err
	}

	qty, err := domain.SizeQuantity(e.params.OrderValue, level, rules, e.params.MinMovement, e.params.Rounding)
	if err != nil {
		return domain.PendingOrder{}, errors.Wrap(err, "failed to size order")
	}
	price := domain.QuantizePrice(level, rules)

	orderID, err := e.exchange.SubmitLimitOrder(ctx, symbol, domain.SideBuy, qty, price)
	if err != nil {
		return domain.PendingOrder{}, err
	}
	metrics.Orders.WithLabelValues(string(domain.SideBuy), "limit").Inc()

	order, err := domain.NewPendingOrder(symbol, orderID, domain.SideBuy, price, qty, e.now())
	if err != nil {
		return domain.PendingOrder{}, err
	}

	e.mu.Lock()
	insertErr := e.orders.Insert(order)
	e.mu.Unlock()
	if insertErr != nil {
		// the venue handed out an id we already track; do not overwrite
		return domain.PendingOrder{}, insertErr
	}

	e.recordEvent(domain.TradeEvent{
		Kind:     domain.TradeEventSubmitted,
		Symbol:   symbol,
		OrderID:  orderID,
		Side:     domain.SideBuy,
		Price:    price,
		Quantity: qty,
		Time:     e.now(),
	})

	e.l.Info("buy order submitted",
		zap.String("symbol", symbol),
		zap.String("order_id", orderID),
		zap.String("price", price.String()),
		zap.String("quantity", qty.String()))

	return order, nil
}

func (e *Engine) handleSell(ctx context.Context, sig domain.Signal) domain.SignalResult {
	e.mu.Lock()
	qty := e.ledger.TotalQuantity(sig.Symbol)
	e.mu.Unlock()

	if qty.LessThanOrEqual(decimal.Zero) {
		return domain.Ignored()
	}

	sold, err := e.closePosition(ctx, sig.Symbol, qty, sig.Price)
	if err != nil {
		e.l.Error("sell signal execution failed", zap.String("symbol", sig.Symbol), zap.Error(err))
		return domain.SignalResult{Status: domain.SignalStatusError, Message: err.Error()}
	}

	return domain.SignalResult{Status: domain.SignalStatusSold, Quantity: &sold}
}

// CheckExit evaluates the profit target for a symbol and closes the whole
// position when reached. Called by the reconciler once per pass, after that
// symbol's order transitions were applied, so a just-filled order is already
// reflected in the average.
func (e *Engine) CheckExit(ctx context.Context, symbol string, currentPrice decimal.Decimal) (*domain.TradeEvent, error) {
	e.mu.Lock()
	avg, hasLots := e.ledger.AveragePrice(symbol)
	unrealized := e.ledger.UnrealizedProfit(symbol, currentPrice)
	qty := e.ledger.TotalQuantity(symbol)
	e.mu.Unlock()

	if !hasLots {
		return nil, nil
	}

	target := avg.Mul(decimal.NewFromInt(1).Add(e.params.ProfitPercent.Div(hundred)))
	if unrealized.LessThanOrEqual(decimal.Zero) || currentPrice.LessThan(target) {
		return nil, nil
	}

	e.l.Info("profit target reached, closing position",
		zap.String("symbol", symbol),
		zap.String("avg_entry", avg.String()),
		zap.String("target", target.String()),
		zap.String("current_price", currentPrice.String()),
		zap.String("unrealized", unrealized.String()))

	sold, err := e.closePosition(ctx, symbol, qty, currentPrice)
	if err != nil {
		return nil, err
	}

	return &domain.TradeEvent{
		Kind:     domain.TradeEventExited,
		Symbol:   symbol,
		Side:     domain.SideSell,
		Price:    currentPrice,
		Quantity: sold,
		Time:     e.now(),
	}, nil
}

// closePosition market-sells the full quantity and empties the symbol's
// ledger. All-or-nothing: partial take-profit is out of scope.
func (e *Engine) closePosition(ctx context.Context, symbol string, qty, price decimal.Decimal) (decimal.Decimal, error) {
	sellQty := qty
	if rules, err := e.rules.Rules(ctx, symbol); err == nil {
		sellQty = domain.QuantizeQuantity(qty, rules)
	} else {
		e.l.Warn("selling unquantized quantity, rules unavailable",
			zap.String("symbol", symbol), zap.Error(err))
	}
	if sellQty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("position quantity %s quantizes to zero", qty.String())
	}

	orderID, err := e.exchange.SubmitMarketOrder(ctx, symbol, domain.SideSell, sellQty)
	if err != nil {
		return decimal.Zero, err
	}
	metrics.Orders.WithLabelValues(string(domain.SideSell), "market").Inc()

	e.mu.Lock()
	closed := e.ledger.CloseAll(symbol)
	e.mu.Unlock()

	e.recordEvent(domain.TradeEvent{
		Kind:     domain.TradeEventExited,
		Symbol:   symbol,
		OrderID:  orderID,
		Side:     domain.SideSell,
		Price:    price,
		Quantity: sellQty,
		Time:     e.now(),
	})

	e.l.Info("position closed",
		zap.String("symbol", symbol),
		zap.String("order_id", orderID),
		zap.Int("lots_closed", len(closed)),
		zap.String("quantity", sellQty.String()))

	return sellQty, nil
}

// canOpenNewPosition applies the PIR cap: open lots must stay below
// min(pir, MaxOrders), where pir = (equity + net profit) / (min notional
// quantity * current price). Equity and price may be stale by up to one
// reconciliation interval, so the cap is advisory.
func (e *Engine) canOpenNewPosition(ctx context.Context, symbol string, openLots int) (bool, error) {
	currentPrice, err := e.exchange.CurrentPrice(ctx, symbol)
	if err != nil {
		return false, err
	}
	equity, err := e.exchange.Equity(ctx)
	if err != nil {
		return false, err
	}
	netProfit, err := e.exchange.NetProfit(ctx)
	if err != nil {
		return false, err
	}

	minNotionalQty := e.params.OrderValue.Div(currentPrice)
	pir := equity.Add(netProfit).Div(minNotionalQty.Mul(currentPrice))

	limit := decimal.NewFromInt(int64(e.params.MaxOrders))
	if pir.LessThan(limit) {
		limit = pir
	}

	return decimal.NewFromInt(int64(openLots)).LessThan(limit), nil
}

// PromoteFill moves a filled order from the pending table into the ledger.
// The removal and the lot insertion happen under one lock acquisition, so
// an order id is never visible in both at once.
func (e *Engine) PromoteFill(orderID string) error {
	e.mu.Lock()
	order, ok := e.orders.Remove(orderID)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("order %s is not pending", orderID)
	}

	lot, err := domain.NewLot(order.Symbol, order.Price, order.Quantity, order.OrderID, e.now())
	if err != nil {
		// put the order back so the next pass can retry; table was just holding it
		_ = e.orders.Insert(order)
		e.mu.Unlock()
		return errors.Wrap(err, "cannot promote fill to lot")
	}
	e.ledger.AddLot(lot)
	e.mu.Unlock()

	e.recordEvent(domain.TradeEvent{
		Kind:     domain.TradeEventFilled,
		Symbol:   order.Symbol,
		OrderID:  order.OrderID,
		Side:     order.Side,
		Price:    order.Price,
		Quantity: order.Quantity,
		Time:     e.now(),
	})

	e.l.Info("order filled, lot recorded",
		zap.String("symbol", order.Symbol),
		zap.String("order_id", order.OrderID),
		zap.String("entry_price", order.Price.String()))

	return nil
}

// DropOrder removes an order the exchange reported as canceled, expired, or
// rejected. No lot is created.
func (e *Engine) DropOrder(orderID string, status domain.OrderStatus) {
	e.mu.Lock()
	order, ok := e.orders.Remove(orderID)
	e.mu.Unlock()
	if !ok {
		return
	}

	e.recordEvent(domain.TradeEvent{
		Kind:     domain.TradeEventCanceled,
		Symbol:   order.Symbol,
		OrderID:  order.OrderID,
		Side:     order.Side,
		Price:    order.Price,
		Quantity: order.Quantity,
		Time:     e.now(),
	})

	e.l.Info("pending order dropped",
		zap.String("symbol", order.Symbol),
		zap.String("order_id", order.OrderID),
		zap.String("status", string(status)))
}

// RepriceIfStale cancels an open order that outlived the TTL and re-submits
// a buy one DCA rung below the last entry (or the market price when no lot
// exists), shaded by the reprice bias. Bounded to once per aging cycle: the
// fresh order's age restarts from zero.
func (e *Engine) RepriceIfStale(ctx context.Context, order domain.PendingOrder) error {
	if order.Age(e.now()) <= e.params.OrderTTL {
		return nil
	}

	e.l.Info("order is stale, canceling for re-quote",
		zap.String("symbol", order.Symbol),
		zap.String("order_id", order.OrderID),
		zap.Duration("age", order.Age(e.now())))

	canceled, err := e.exchange.CancelOrder(ctx, order.Symbol, order.OrderID)
	if err != nil {
		// keep the order; the next pass will see it again
		return errors.Wrapf(err, "failed to cancel stale order %s", order.OrderID)
	}
	if !canceled {
		// the order left the book between the status poll and the cancel;
		// a fill in that gap must land in the ledger, not be dropped
		status, err := e.exchange.OrderStatus(ctx, order.Symbol, order.OrderID)
		if err != nil {
			return errors.Wrapf(err, "failed to query already-resolved order %s", order.OrderID)
		}
		switch {
		case status == domain.OrderStatusFilled:
			e.l.Info("stale order filled before cancellation, recording fill",
				zap.String("symbol", order.Symbol),
				zap.String("order_id", order.OrderID))
			return e.PromoteFill(order.OrderID)
		case status.Terminal():
			e.DropOrder(order.OrderID, status)
		default:
			e.l.Warn("stale order in ambiguous state after cancel attempt, keeping",
				zap.String("symbol", order.Symbol),
				zap.String("order_id", order.OrderID),
				zap.String("status", string(status)))
		}
		return nil
	}

	e.DropOrder(order.OrderID, domain.OrderStatusCanceled)

	e.mu.Lock()
	base, hasLot := e.ledger.LastEntryPrice(order.Symbol)
	e.mu.Unlock()

	if !hasLot {
		price, err := e.exchange.CurrentPrice(ctx, order.Symbol)
		if err != nil {
			return errors.Wrap(err, "failed to get market price for re-quote")
		}
		base = price
	}

	level := base.Mul(e.buyStepFactor()).Mul(e.params.RepriceBias)

	if _, err := e.submitEntry(ctx, order.Symbol, level); err != nil {
		return errors.Wrap(err, "failed to re-submit at re-priced level")
	}
	metrics.Reprices.Inc()

	return nil
}

// RestorePosition seeds the ledger with the exchange's view of an already
// open position, as one synthetic lot. Used by the initial sync pass only.
func (e *Engine) RestorePosition(snapshot domain.PositionSnapshot) error {
	lot, err := domain.NewLot(snapshot.Symbol, snapshot.AvgPrice, snapshot.Quantity, syncOriginOrderID, snapshot.EntryTime)
	if err != nil {
		return errors.Wrap(err, "cannot restore position")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ledger.LotCount(snapshot.Symbol) > 0 {
		return nil
	}
	e.ledger.AddLot(lot)
	return nil
}

// RestoreOrder seeds the pending table with an order the exchange still
// holds open. Already-known ids are left untouched.
func (e *Engine) RestoreOrder(order domain.PendingOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.orders.Insert(order); err != nil {
		// already tracked, nothing to do
		return
	}
}

// PendingOrdersForSymbol returns a consistent snapshot of the symbol's
// in-flight orders.
func (e *Engine) PendingOrdersForSymbol(symbol string) []domain.PendingOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orders.ForSymbol(symbol)
}

// ActiveSymbols returns every symbol with open lots or pending orders.
func (e *Engine) ActiveSymbols() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[string]struct{})
	var out []string
	for _, s := range e.ledger.Symbols() {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range e.orders.Symbols() {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// Counts returns the total open lots and pending orders.
func (e *Engine) Counts() (openLots, pendingOrders int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.TotalLots(), e.orders.Len()
}

func (e *Engine) tradingWindowOpen() bool {
	e.mu.Lock()
	override := e.windowOverride
	e.mu.Unlock()
	if override {
		return true
	}
	if e.params.TradeFrom.IsZero() {
		return true
	}
	return !e.now().Before(e.params.TradeFrom)
}

// buyStepFactor returns 1 - BelowPercent/100.
func (e *Engine) buyStepFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(e.params.BelowPercent.Div(hundred))
}

func (e *Engine) recordEvent(event domain.TradeEvent) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(event); err != nil {
		e.l.Error("failed to journal trade event",
			zap.String("kind", string(event.Kind)),
			zap.String("symbol", event.Symbol),
			zap.Error(err))
	}
}
