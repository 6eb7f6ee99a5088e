package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/internal/domain"
)

// BybitExchange adapts the Bybit v5 spot API to the Exchange capability.
type BybitExchange struct {
	client         *bybit.Client
	quoteAsset     string
	initialCapital decimal.Decimal
}

// NewBybitExchange creates a Bybit adapter.
func NewBybitExchange(client *bybit.Client, quoteAsset string, initialCapital decimal.Decimal) *BybitExchange {
	return &BybitExchange{
		client:         client,
		quoteAsset:     quoteAsset,
		initialCapital: initialCapital,
	}
}

func (e *BybitExchange) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym := bybit.SymbolV5(symbol)
	res, err := e.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit price for %s: %v", symbol, err)
	}
	if len(res.Result.Spot.List) == 0 {
		return decimal.Zero, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit returned no price for %s", symbol)
	}

	price, err := decimal.NewFromString(res.Result.Spot.List[0].LastPrice)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to parse bybit price")
	}
	return price, nil
}

func (e *BybitExchange) Equity(ctx context.Context) (decimal.Decimal, error) {
	res, err := e.client.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit wallet balance: %v", err)
	}

	for _, account := range res.Result.List {
		for _, coin := range account.Coin {
			if string(coin.Coin) != e.quoteAsset {
				continue
			}
			balance, err := decimal.NewFromString(coin.WalletBalance)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse bybit balance")
			}
			return balance, nil
		}
	}
	return decimal.Zero, nil
}

func (e *BybitExchange) NetProfit(ctx context.Context) (decimal.Decimal, error) {
	equity, err := e.Equity(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return equity.Sub(e.initialCapital), nil
}

func (e *BybitExchange) SymbolRules(ctx context.Context, symbol string) (domain.SymbolRules, error) {
	sym := bybit.SymbolV5(symbol)
	res, err := e.client.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
	})
	if err != nil {
		return domain.SymbolRules{}, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit instruments info for %s: %v", symbol, err)
	}
	if len(res.Result.Spot.List) == 0 {
		return domain.SymbolRules{}, fmt.Errorf("bybit knows no spot symbol %s", symbol)
	}

	item := res.Result.Spot.List[0]
	rules := domain.SymbolRules{Symbol: symbol}
	if rules.StepSize, err = decimal.NewFromString(item.LotSizeFilter.BasePrecision); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse base precision")
	}
	if rules.MinQty, err = decimal.NewFromString(item.LotSizeFilter.MinOrderQty); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min order qty")
	}
	if rules.MaxQty, err = decimal.NewFromString(item.LotSizeFilter.MaxOrderQty); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse max order qty")
	}
	if rules.TickSize, err = decimal.NewFromString(item.PriceFilter.TickSize); err != nil {
		return domain.SymbolRules{}, errors.Wrap(err, "failed to parse tick size")
	}
	// bybit spot publishes no min/max price bounds; clamping is skipped for them
	return rules, nil
}

func (e *BybitExchange) SubmitLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (string, error) {
	priceStr := price.String()
	linkID := newClientOrderID()
	res, err := e.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(symbol),
		Side:        bybitSide(side),
		OrderType:   bybit.OrderTypeLimit,
		Qty:         qty.String(),
		Price:       &priceStr,
		OrderLinkID: &linkID,
	})
	if err != nil {
		return "", errors.Wrapf(domain.ErrOrderRejected, "bybit refused limit order for %s: %v", symbol, err)
	}
	return res.Result.OrderID, nil
}

func (e *BybitExchange) SubmitMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (string, error) {
	linkID := newClientOrderID()
	res, err := e.client.V5().Order().CreateOrder(bybit.V5CreateOrderParam{
		Category:    bybit.CategoryV5Spot,
		Symbol:      bybit.SymbolV5(symbol),
		Side:        bybitSide(side),
		OrderType:   bybit.OrderTypeMarket,
		Qty:         qty.String(),
		OrderLinkID: &linkID,
	})
	if err != nil {
		return "", errors.Wrapf(domain.ErrOrderRejected, "bybit refused market order for %s: %v", symbol, err)
	}
	return res.Result.OrderID, nil
}

func (e *BybitExchange) OrderStatus(ctx context.Context, symbol, orderID string) (domain.OrderStatus, error) {
	sym := bybit.SymbolV5(symbol)

	// the realtime query returns open orders plus recently closed ones
	res, err := e.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
		OrderID:  &orderID,
	})
	if err != nil {
		return domain.OrderStatusUnknown, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit order status: %v", err)
	}

	for _, o := range res.Result.List {
		if o.OrderID == orderID {
			return mapBybitStatus(string(o.OrderStatus)), nil
		}
	}

	hist, err := e.client.V5().Order().GetHistoryOrders(bybit.V5GetHistoryOrdersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
		OrderID:  &orderID,
	})
	if err != nil {
		return domain.OrderStatusUnknown, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit order history: %v", err)
	}
	for _, o := range hist.Result.List {
		if o.OrderID == orderID {
			return mapBybitStatus(string(o.OrderStatus)), nil
		}
	}

	return domain.OrderStatusUnknown, nil
}

func (e *BybitExchange) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	_, err := e.client.V5().Order().CancelOrder(bybit.V5CancelOrderParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   bybit.SymbolV5(symbol),
		OrderID:  &orderID,
	})
	if err != nil {
		return false, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit cancel order %s: %v", orderID, err)
	}
	return true, nil
}

func (e *BybitExchange) OpenOrders(ctx context.Context, symbol string) ([]domain.PendingOrder, error) {
	sym := bybit.SymbolV5(symbol)
	res, err := e.client.V5().Order().GetOpenOrders(bybit.V5GetOpenOrdersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &sym,
	})
	if err != nil {
		return nil, errors.Wrapf(domain.ErrExchangeUnavailable, "bybit open orders for %s: %v", symbol, err)
	}

	out := make([]domain.PendingOrder, 0, len(res.Result.List))
	for _, o := range res.Result.List {
		if mapBybitStatus(string(o.OrderStatus)) != domain.OrderStatusOpen {
			continue
		}

		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse bybit order price")
		}
		qty, err := decimal.NewFromString(o.Qty)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse bybit order quantity")
		}

		order, err := domain.NewPendingOrder(symbol, o.OrderID, bybitDomainSide(o.Side), price, qty, parseBybitMillis(o.CreatedTime))
		if err != nil {
			return nil, errors.Wrap(err, "invalid open order from bybit")
		}
		out = append(out, order)
	}
	return out, nil
}

// Position is unsupported on bybit spot: the wallet exposes balances without
// cost basis, so there is nothing authoritative to rebuild lots from. The
// ledger repopulates from fills observed after restart.
func (e *BybitExchange) Position(ctx context.Context, symbol string) (*domain.PositionSnapshot, error) {
	return nil, nil
}

func bybitSide(side domain.Side) bybit.Side {
	if side == domain.SideSell {
		return bybit.SideSell
	}
	return bybit.SideBuy
}

func bybitDomainSide(side bybit.Side) domain.Side {
	if side == bybit.SideSell {
		return domain.SideSell
	}
	return domain.SideBuy
}

func parseBybitMillis(ms string) time.Time {
	v, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(v)
}

func mapBybitStatus(status string) domain.OrderStatus {
	switch status {
	case "New", "PartiallyFilled", "Created":
		return domain.OrderStatusOpen
	case "Filled":
		return domain.OrderStatusFilled
	case "Cancelled", "PartiallyFilledCanceled":
		return domain.OrderStatusCanceled
	case "Rejected":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusUnknown
	}
}
