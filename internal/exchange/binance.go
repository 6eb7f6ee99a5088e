package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/ladder/internal/domain"
)

// BinanceExchange adapts the Binance spot API to the Exchange capability.
type BinanceExchange struct {
	client         *binance.Client
	quoteAsset     string
	initialCapital decimal.Decimal
}

// NewBinanceExchange creates a Binance adapter. quoteAsset is the currency
// equity is measured in (e.g. USDT); initialCapital anchors NetProfit.
func NewBinanceExchange(client *binance.Client, quoteAsset string, initialCapital decimal.Decimal) *BinanceExchange {
	return &BinanceExchange{
		client:         client,
		quoteAsset:     quoteAsset,
		initialCapital: initialCapital,
	}
}

func (e *BinanceExchange) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrExchangeUnavailable, "binance price for %s: %v", symbol, err)
	}
	if len(prices) == 0 {
		return decimal.Zero, errors.Wrapf(domain.ErrExchangeUnavailable, "binance returned no price for %s", symbol)
	}

	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to parse binance price")
	}
	return price, nil
}

func (e *BinanceExchange) Equity(ctx context.Context) (decimal.Decimal, error) {
	account, err := e.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrExchangeUnavailable, "binance account: %v", err)
	}

	for _, balance := range account.Balances {
		if balance.Asset == e.quoteAsset {
			free, err := decimal.NewFromString(balance.Free)
			if err != nil {
				return decimal.Zero, errors.Wrap(err, "failed to parse balance")
			}
			return free, nil
		}
	}
	return decimal.Zero, nil
}

func (e *BinanceExchange) NetProfit(ctx context.Context) (decimal.Decimal, error) {
	equity, err := e.Equity(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return equity.Sub(e.initialCapital), nil
}

func (e *BinanceExchange) SymbolRules(ctx context.Context, symbol string) (domain.SymbolRules, error) {
	info, err := e.client.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return domain.SymbolRules{}, errors.Wrapf(domain.ErrExchangeUnavailable, "binance exchange info for %s: %v", symbol, err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}

		lot := s.LotSizeFilter()
		priceFilter := s.PriceFilter()
		if lot == nil || priceFilter == nil {
			return domain.SymbolRules{}, fmt.Errorf("binance symbol %s is missing LOT_SIZE or PRICE_FILTER", symbol)
		}

		rules := domain.SymbolRules{Symbol: symbol}
		if rules.StepSize, err = decimal.NewFromString(lot.StepSize); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse step size")
		}
		if rules.MinQty, err = decimal.NewFromString(lot.MinQuantity); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min quantity")
		}
		if rules.MaxQty, err = decimal.NewFromString(lot.MaxQuantity); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse max quantity")
		}
		if rules.TickSize, err = decimal.NewFromString(priceFilter.TickSize); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse tick size")
		}
		if rules.MinPrice, err = decimal.NewFromString(priceFilter.MinPrice); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse min price")
		}
		if rules.MaxPrice, err = decimal.NewFromString(priceFilter.MaxPrice); err != nil {
			return domain.SymbolRules{}, errors.Wrap(err, "failed to parse max price")
		}
		return rules, nil
	}

	return domain.SymbolRules{}, fmt.Errorf("binance knows no symbol %s", symbol)
}

func (e *BinanceExchange) SubmitLimitOrder(ctx context.Context, symbol string, side domain.Side, qty, price decimal.Decimal) (string, error) {
	res, err := e.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binanceSide(side)).
		Type(binance.OrderTypeLimit).
		TimeInForce(binance.TimeInForceTypeGTC).
		Quantity(qty.String()).
		Price(price.String()).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return "", submitError(err, symbol)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (e *BinanceExchange) SubmitMarketOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (string, error) {
	res, err := e.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binanceSide(side)).
		Type(binance.OrderTypeMarket).
		Quantity(qty.String()).
		NewClientOrderID(newClientOrderID()).
		Do(ctx)
	if err != nil {
		return "", submitError(err, symbol)
	}
	return strconv.FormatInt(res.OrderID, 10), nil
}

func (e *BinanceExchange) OrderStatus(ctx context.Context, symbol, orderID string) (domain.OrderStatus, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return domain.OrderStatusUnknown, errors.Wrapf(err, "invalid binance order id %s", orderID)
	}

	order, err := e.client.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && apiErr.Code == -2013 {
			// order does not exist
			return domain.OrderStatusUnknown, nil
		}
		return domain.OrderStatusUnknown, errors.Wrapf(domain.ErrExchangeUnavailable, "binance order status: %v", err)
	}

	switch order.Status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return domain.OrderStatusOpen, nil
	case binance.OrderStatusTypeFilled:
		return domain.OrderStatusFilled, nil
	case binance.OrderStatusTypeCanceled:
		return domain.OrderStatusCanceled, nil
	case binance.OrderStatusTypeExpired:
		return domain.OrderStatusExpired, nil
	case binance.OrderStatusTypeRejected:
		return domain.OrderStatusRejected, nil
	default:
		return domain.OrderStatusUnknown, nil
	}
}

func (e *BinanceExchange) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return false, errors.Wrapf(err, "invalid binance order id %s", orderID)
	}

	_, err = e.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		if apiErr, ok := err.(*common.APIError); ok && (apiErr.Code == -2011 || apiErr.Code == -2013) {
			// already canceled or filled in the meantime
			return false, nil
		}
		return false, errors.Wrapf(domain.ErrExchangeUnavailable, "binance cancel order %s: %v", orderID, err)
	}
	return true, nil
}

func (e *BinanceExchange) OpenOrders(ctx context.Context, symbol string) ([]domain.PendingOrder, error) {
	raw, err := e.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrExchangeUnavailable, "binance open orders for %s: %v", symbol, err)
	}

	out := make([]domain.PendingOrder, 0, len(raw))
	for _, o := range raw {
		price, err := decimal.NewFromString(o.Price)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse order price")
		}
		qty, err := decimal.NewFromString(o.OrigQuantity)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse order quantity")
		}

		order, err := domain.NewPendingOrder(
			symbol,
			strconv.FormatInt(o.OrderID, 10),
			domain.Side(o.Side),
			price,
			qty,
			time.UnixMilli(o.Time),
		)
		if err != nil {
			return nil, errors.Wrap(err, "invalid open order from binance")
		}
		out = append(out, order)
	}
	return out, nil
}

// Position rebuilds the net long position from spot trade history: buys
// accumulate cost, sells reduce it at the running average.
func (e *BinanceExchange) Position(ctx context.Context, symbol string) (*domain.PositionSnapshot, error) {
	trades, err := e.client.NewListTradesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(domain.ErrExchangeUnavailable, "binance trades for %s: %v", symbol, err)
	}
	if len(trades) == 0 {
		return nil, nil
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].Time < trades[j].Time })

	totalQty := decimal.Zero
	totalCost := decimal.Zero
	var entryTime time.Time

	for _, trade := range trades {
		qty, parseErr := decimal.NewFromString(trade.Quantity)
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "failed to parse trade quantity")
		}
		price, parseErr := decimal.NewFromString(trade.Price)
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "failed to parse trade price")
		}

		if trade.IsBuyer {
			if totalQty.LessThanOrEqual(decimal.Zero) {
				entryTime = time.UnixMilli(trade.Time)
			}
			totalCost = totalCost.Add(price.Mul(qty))
			totalQty = totalQty.Add(qty)
			continue
		}

		if totalQty.LessThanOrEqual(decimal.Zero) {
			continue
		}

		reduced := qty
		if reduced.GreaterThan(totalQty) {
			reduced = totalQty
		}
		avgCost := totalCost.Div(totalQty)
		totalCost = totalCost.Sub(avgCost.Mul(reduced))
		totalQty = totalQty.Sub(reduced)
		if totalQty.LessThanOrEqual(decimal.Zero) {
			totalQty = decimal.Zero
			totalCost = decimal.Zero
			entryTime = time.Time{}
		}
	}

	if totalQty.LessThanOrEqual(decimal.Zero) || totalCost.LessThanOrEqual(decimal.Zero) {
		return nil, nil
	}

	return &domain.PositionSnapshot{
		Symbol:    symbol,
		Quantity:  totalQty,
		AvgPrice:  totalCost.Div(totalQty),
		EntryTime: entryTime,
	}, nil
}

func binanceSide(side domain.Side) binance.SideType {
	if side == domain.SideSell {
		return binance.SideTypeSell
	}
	return binance.SideTypeBuy
}

func submitError(err error, symbol string) error {
	if apiErr, ok := err.(*common.APIError); ok {
		return errors.Wrapf(domain.ErrOrderRejected, "binance refused order for %s: %s", symbol, apiErr.Message)
	}
	return errors.Wrapf(domain.ErrExchangeUnavailable, "binance order submission for %s: %v", symbol, err)
}
