// Package exchange defines the futures-exchange contract the engine
// depends on (§4.2/§6.3) and two concrete implementations behind it.
package exchange

import (
	"context"
	"time"

	"tradeforge/internal/model"
)

// OrderType mirrors the exchange's own order-type vocabulary.
type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeStopMarket      OrderType = "STOP_MARKET"
	OrderTypeTakeProfitMarket OrderType = "TAKE_PROFIT_MARKET"
)

// OrderSide is the exchange-facing buy/sell label.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderRequest is the input to PlaceOrder: a market entry optionally paired
// with protective stop-loss and take-profit levels.
type OrderRequest struct {
	Symbol               string
	Side                 OrderSide
	Quantity             float64
	StopLoss             *float64
	TakeProfit           *float64
	Leverage             *int
	HedgingMode          bool
	PositionSideOverride *model.PositionSide
}

// OrderResult is the exchange's confirmation of an accepted order.
type OrderResult struct {
	OrderID      string
	Symbol       string
	Side         OrderSide
	PositionSide model.PositionSide
	Quantity     float64
	Price        float64
	StopOrderID  string
	TakeOrderID  string
}

// Client is the minimal signed-REST contract §6.3 requires: ticker, klines,
// account/positions, leverage, order placement/cancellation, open-order
// listing, and position-mode query.
type Client interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
	GetAccount(ctx context.Context) (model.AccountInfo, error)
	GetPositions(ctx context.Context) ([]model.ExchangePosition, error)
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// PlaceOrder places a market entry and, if levels are supplied, paired
	// STOP_MARKET/TAKE_PROFIT_MARKET reduce-only orders on the closing side.
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)

	// ClosePosition places a reducing market order, opposite side, same
	// positionSide.
	ClosePosition(ctx context.Context, symbol string, side model.Side, quantity float64, hedging bool) (OrderResult, error)

	// UpdateStopLossOrder cancels existing STOP_MARKET orders for
	// (symbol, positionSide) only — take-profit orders are left untouched —
	// then places a fresh STOP_MARKET at newStopPrice.
	UpdateStopLossOrder(ctx context.Context, symbol string, positionSide model.PositionSide, quantity, newStopPrice float64) error

	// GetPositionMode reports whether the account is in hedging (dual-side)
	// mode. Implementations cache this for 60s.
	GetPositionMode(ctx context.Context) (hedging bool, err error)

	// InvalidatePositionModeCache forces the next GetPositionMode call to
	// query the exchange again, used on settings change per §4.2.
	InvalidatePositionModeCache()
}

// positionModeCacheTTL is the §4.2-mandated cache lifetime for
// GetPositionMode.
const positionModeCacheTTL = 60 * time.Second
