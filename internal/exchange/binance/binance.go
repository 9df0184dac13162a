// Package binance implements the exchange.Client contract against
// Binance's USDⓈ-M futures REST API via github.com/adshao/go-binance/v2.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/futures"

	"tradeforge/internal/apperr"
	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
)

// Client wraps a futures.Client and caches the account's hedging-mode flag
// for 60s, invalidated explicitly via InvalidatePositionModeCache.
type Client struct {
	fc *futures.Client

	mu                   sync.Mutex
	hedgingCached        bool
	hedgingCacheAt       time.Time
	positionModeCacheTTL time.Duration
}

// New builds a Client against either the production or the testnet
// endpoint, matching the Settings.Testnet flag.
func New(apiKey, apiSecret string, testnet bool) *Client {
	futures.UseTestnet = testnet
	return &Client{
		fc:                   futures.NewClient(apiKey, apiSecret),
		positionModeCacheTTL: 60 * time.Second,
	}
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.fc.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance get price: %w: %v", apperr.ErrNetwork, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance get price: empty response: %w", apperr.ErrNetwork)
	}
	v, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("binance parse price: %w", err)
	}
	return v, nil
}

func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	raw, err := c.fc.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance get klines: %w: %v", apperr.ErrNetwork, err)
	}
	out := make([]model.Candle, 0, len(raw))
	for _, k := range raw {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		close, _ := strconv.ParseFloat(k.Close, 64)
		vol, _ := strconv.ParseFloat(k.Volume, 64)
		out = append(out, model.Candle{
			OpenTime: time.UnixMilli(k.OpenTime),
			Open:     open, High: high, Low: low, Close: close, Volume: vol,
		})
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	balances, err := c.fc.NewGetBalanceService().Do(ctx)
	if err != nil {
		return model.AccountInfo{}, fmt.Errorf("binance get balance: %w: %v", apperr.ErrNetwork, err)
	}
	for _, b := range balances {
		if b.Asset != "USDT" {
			continue
		}
		balance, _ := strconv.ParseFloat(b.Balance, 64)
		available, _ := strconv.ParseFloat(b.AvailableBalance, 64)
		return model.AccountInfo{Balance: balance, AvailableBalance: available}, nil
	}
	return model.AccountInfo{}, fmt.Errorf("binance get balance: USDT asset not found: %w", apperr.ErrNotConfigured)
}

func (c *Client) GetPositions(ctx context.Context) ([]model.ExchangePosition, error) {
	account, err := c.fc.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance get account: %w: %v", apperr.ErrNetwork, err)
	}
	var out []model.ExchangePosition
	for _, p := range account.Positions {
		qty, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if qty == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		leverage, _ := strconv.Atoi(p.Leverage)
		side := model.PositionSideLong
		if qty < 0 {
			side = model.PositionSideShort
		}
		out = append(out, model.ExchangePosition{
			Symbol:       p.Symbol,
			PositionSide: side,
			Quantity:     abs(qty),
			EntryPrice:   entry,
			Leverage:     leverage,
		})
	}
	return out, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := c.fc.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	if err != nil {
		return fmt.Errorf("binance set leverage: %w", apperr.NewExchangeRejected(0, err.Error()))
	}
	return nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if req.Leverage != nil {
		if err := c.SetLeverage(ctx, req.Symbol, *req.Leverage); err != nil {
			return exchange.OrderResult{}, err
		}
	}

	qty := roundQty(req.Symbol, req.Quantity)
	if qty <= 0 {
		return exchange.OrderResult{}, fmt.Errorf("binance place order: quantity rounds to zero: %w", apperr.ErrInvalidQuantity)
	}

	positionSide := model.PositionSideLong
	if req.Side == exchange.OrderSideSell {
		positionSide = model.PositionSideShort
	}
	if req.PositionSideOverride != nil {
		positionSide = *req.PositionSideOverride
	}

	svc := c.fc.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(formatFloat(qty))
	if req.HedgingMode {
		svc = svc.PositionSide(futures.PositionSideType(positionSide))
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("binance create order: %w", apperr.NewExchangeRejected(0, err.Error()))
	}

	result := exchange.OrderResult{
		OrderID:      strconv.FormatInt(order.OrderID, 10),
		Symbol:       req.Symbol,
		Side:         req.Side,
		PositionSide: positionSide,
		Quantity:     qty,
	}

	closingSide := futures.SideTypeSell
	if req.Side == exchange.OrderSideSell {
		closingSide = futures.SideTypeBuy
	}

	if req.StopLoss != nil {
		stopSvc := c.fc.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(closingSide).
			Type(futures.OrderTypeStopMarket).
			StopPrice(formatFloat(roundPrice(req.Symbol, *req.StopLoss))).
			ClosePosition(true)
		if req.HedgingMode {
			stopSvc = stopSvc.PositionSide(futures.PositionSideType(positionSide))
		}
		stopOrder, err := stopSvc.Do(ctx)
		if err != nil {
			return result, fmt.Errorf("binance place stop-loss: %w", apperr.NewExchangeRejected(0, err.Error()))
		}
		result.StopOrderID = strconv.FormatInt(stopOrder.OrderID, 10)
	}

	if req.TakeProfit != nil {
		tpSvc := c.fc.NewCreateOrderService().
			Symbol(req.Symbol).
			Side(closingSide).
			Type(futures.OrderTypeTakeProfitMarket).
			StopPrice(formatFloat(roundPrice(req.Symbol, *req.TakeProfit))).
			ClosePosition(true)
		if req.HedgingMode {
			tpSvc = tpSvc.PositionSide(futures.PositionSideType(positionSide))
		}
		tpOrder, err := tpSvc.Do(ctx)
		if err != nil {
			return result, fmt.Errorf("binance place take-profit: %w", apperr.NewExchangeRejected(0, err.Error()))
		}
		result.TakeOrderID = strconv.FormatInt(tpOrder.OrderID, 10)
	}

	return result, nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string, side model.Side, quantity float64, hedging bool) (exchange.OrderResult, error) {
	closingSide := futures.SideTypeSell
	positionSide := model.PositionSideLong
	if side == model.SideShort {
		closingSide = futures.SideTypeBuy
		positionSide = model.PositionSideShort
	}

	qty := roundQty(symbol, quantity)
	svc := c.fc.NewCreateOrderService().
		Symbol(symbol).
		Side(closingSide).
		Type(futures.OrderTypeMarket).
		Quantity(formatFloat(qty))
	if hedging {
		svc = svc.PositionSide(futures.PositionSideType(positionSide))
	} else {
		svc = svc.ReduceOnly(true)
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("binance close position: %w", apperr.NewExchangeRejected(0, err.Error()))
	}
	return exchange.OrderResult{OrderID: strconv.FormatInt(order.OrderID, 10), Symbol: symbol, Quantity: qty}, nil
}

func (c *Client) UpdateStopLossOrder(ctx context.Context, symbol string, positionSide model.PositionSide, quantity, newStopPrice float64) error {
	openOrders, err := c.fc.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return fmt.Errorf("binance list open orders: %w: %v", apperr.ErrNetwork, err)
	}

	for _, o := range openOrders {
		if o.Type != futures.OrderTypeStopMarket {
			continue
		}
		if positionSide != "" && string(o.PositionSide) != string(positionSide) {
			continue
		}
		if _, err := c.fc.NewCancelOrderService().Symbol(symbol).OrderID(o.OrderID).Do(ctx); err != nil {
			return fmt.Errorf("binance cancel stop order: %w", apperr.NewExchangeRejected(0, err.Error()))
		}
	}

	closingSide := futures.SideTypeSell
	if positionSide == model.PositionSideShort {
		closingSide = futures.SideTypeBuy
	}

	svc := c.fc.NewCreateOrderService().
		Symbol(symbol).
		Side(closingSide).
		Type(futures.OrderTypeStopMarket).
		StopPrice(formatFloat(roundPrice(symbol, newStopPrice))).
		ClosePosition(true)
	if positionSide != "" {
		svc = svc.PositionSide(futures.PositionSideType(positionSide))
	}

	if _, err := svc.Do(ctx); err != nil {
		return fmt.Errorf("binance replace stop order: %w", apperr.NewExchangeRejected(0, err.Error()))
	}
	return nil
}

func (c *Client) GetPositionMode(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if time.Since(c.hedgingCacheAt) < c.positionModeCacheTTL {
		hedging := c.hedgingCached
		c.mu.Unlock()
		return hedging, nil
	}
	c.mu.Unlock()

	resp, err := c.fc.NewGetPositionModeService().Do(ctx)
	if err != nil {
		return false, fmt.Errorf("binance get position mode: %w: %v", apperr.ErrNetwork, err)
	}

	c.mu.Lock()
	c.hedgingCached = resp.DualSidePosition
	c.hedgingCacheAt = time.Now()
	c.mu.Unlock()

	return resp.DualSidePosition, nil
}

// InvalidatePositionModeCache forces the next GetPositionMode call to query
// the exchange again, used by the engine on settings change per §4.2.
func (c *Client) InvalidatePositionModeCache() {
	c.mu.Lock()
	c.hedgingCacheAt = time.Time{}
	c.mu.Unlock()
}

func roundQty(symbol string, qty float64) float64   { return exchange.RoundQuantity(symbol, qty) }
func roundPrice(symbol string, p float64) float64    { return exchange.RoundPrice(symbol, p) }
func formatFloat(v float64) string                   { return strconv.FormatFloat(v, 'f', -1, 64) }
