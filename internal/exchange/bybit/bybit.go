// Package bybit implements the exchange.Client contract against Bybit's v5
// unified-trading (derivatives) REST API via github.com/bybit-exchange/bybit.go.api.
//
// It exists to prove the exchange.Client contract in §4.2 is exchange-
// agnostic, not Binance-specific, by wiring a second donor dependency that
// was otherwise declared but unused.
package bybit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"

	"tradeforge/internal/apperr"
	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
)

const category = "linear" // USDT perpetuals

// Client wraps bybit.go.api's generic HTTP client with the same 60s
// hedging-mode cache contract as the binance implementation.
type Client struct {
	hc *bybit.Client

	mu             sync.Mutex
	hedgingCached  bool
	hedgingCacheAt time.Time
	cacheTTL       time.Duration
}

// New builds a Client against production or testnet per Settings.Testnet.
func New(apiKey, apiSecret string, testnet bool) *Client {
	baseURL := bybit.MAINNET
	if testnet {
		baseURL = bybit.TESTNET
	}
	return &Client{
		hc:       bybit.NewBybitHttpClient(apiKey, apiSecret, bybit.WithBaseURL(baseURL)),
		cacheTTL: 60 * time.Second,
	}
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{"category": category, "symbol": symbol}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).GetTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("bybit get ticker: %w: %v", apperr.ErrNetwork, err)
	}
	list, ok := resp.Result["list"].([]interface{})
	if !ok || len(list) == 0 {
		return 0, fmt.Errorf("bybit get ticker: empty response: %w", apperr.ErrNetwork)
	}
	entry, _ := list[0].(map[string]interface{})
	priceStr, _ := entry["lastPrice"].(string)
	v, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, fmt.Errorf("bybit parse price: %w", err)
	}
	return v, nil
}

func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	params := map[string]interface{}{
		"category": category, "symbol": symbol, "interval": interval,
		"limit": strconv.Itoa(limit),
	}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).GetKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit get klines: %w: %v", apperr.ErrNetwork, err)
	}
	rows, _ := resp.Result["list"].([]interface{})
	out := make([]model.Candle, 0, len(rows))
	// bybit returns klines newest-first; reverse while parsing.
	for i := len(rows) - 1; i >= 0; i-- {
		row, _ := rows[i].([]interface{})
		if len(row) < 6 {
			continue
		}
		openTimeMs, _ := strconv.ParseInt(fmt.Sprint(row[0]), 10, 64)
		open, _ := strconv.ParseFloat(fmt.Sprint(row[1]), 64)
		high, _ := strconv.ParseFloat(fmt.Sprint(row[2]), 64)
		low, _ := strconv.ParseFloat(fmt.Sprint(row[3]), 64)
		closePrice, _ := strconv.ParseFloat(fmt.Sprint(row[4]), 64)
		volume, _ := strconv.ParseFloat(fmt.Sprint(row[5]), 64)
		out = append(out, model.Candle{
			OpenTime: time.UnixMilli(openTimeMs),
			Open:     open, High: high, Low: low, Close: closePrice, Volume: volume,
		})
	}
	return out, nil
}

func (c *Client) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	params := map[string]interface{}{"accountType": "UNIFIED", "coin": "USDT"}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).GetWalletBalance(ctx)
	if err != nil {
		return model.AccountInfo{}, fmt.Errorf("bybit get wallet balance: %w: %v", apperr.ErrNetwork, err)
	}
	list, _ := resp.Result["list"].([]interface{})
	if len(list) == 0 {
		return model.AccountInfo{}, fmt.Errorf("bybit get wallet balance: empty response: %w", apperr.ErrNotConfigured)
	}
	account, _ := list[0].(map[string]interface{})
	balance, _ := strconv.ParseFloat(fmt.Sprint(account["totalEquity"]), 64)
	available, _ := strconv.ParseFloat(fmt.Sprint(account["totalAvailableBalance"]), 64)
	return model.AccountInfo{Balance: balance, AvailableBalance: available}, nil
}

func (c *Client) GetPositions(ctx context.Context) ([]model.ExchangePosition, error) {
	params := map[string]interface{}{"category": category, "settleCoin": "USDT"}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).GetPositionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("bybit get positions: %w: %v", apperr.ErrNetwork, err)
	}
	rows, _ := resp.Result["list"].([]interface{})
	var out []model.ExchangePosition
	for _, r := range rows {
		row, _ := r.(map[string]interface{})
		qty, _ := strconv.ParseFloat(fmt.Sprint(row["size"]), 64)
		if qty == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(fmt.Sprint(row["avgPrice"]), 64)
		leverage, _ := strconv.Atoi(fmt.Sprint(row["leverage"]))
		side := model.PositionSideLong
		if fmt.Sprint(row["side"]) == "Sell" {
			side = model.PositionSideShort
		}
		out = append(out, model.ExchangePosition{
			Symbol: fmt.Sprint(row["symbol"]), PositionSide: side,
			Quantity: qty, EntryPrice: entry, Leverage: leverage,
		})
	}
	return out, nil
}

func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := map[string]interface{}{
		"category": category, "symbol": symbol,
		"buyLeverage": strconv.Itoa(leverage), "sellLeverage": strconv.Itoa(leverage),
	}
	if _, err := c.hc.NewUtaBybitServiceWithParams(params).SetLeverage(ctx); err != nil {
		return fmt.Errorf("bybit set leverage: %w", apperr.NewExchangeRejected(0, err.Error()))
	}
	return nil
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if req.Leverage != nil {
		if err := c.SetLeverage(ctx, req.Symbol, *req.Leverage); err != nil {
			return exchange.OrderResult{}, err
		}
	}

	qty := exchange.RoundQuantity(req.Symbol, req.Quantity)
	if qty <= 0 {
		return exchange.OrderResult{}, fmt.Errorf("bybit place order: quantity rounds to zero: %w", apperr.ErrInvalidQuantity)
	}

	positionSide := model.PositionSideLong
	if req.Side == exchange.OrderSideSell {
		positionSide = model.PositionSideShort
	}
	if req.PositionSideOverride != nil {
		positionSide = *req.PositionSideOverride
	}
	positionIdx := 0
	if req.HedgingMode {
		if positionSide == model.PositionSideLong {
			positionIdx = 1
		} else {
			positionIdx = 2
		}
	}

	params := map[string]interface{}{
		"category": category, "symbol": req.Symbol, "side": string(req.Side),
		"orderType": "Market", "qty": strconv.FormatFloat(qty, 'f', -1, 64),
		"positionIdx": positionIdx,
	}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("bybit place order: %w", apperr.NewExchangeRejected(0, err.Error()))
	}

	orderID, _ := resp.Result["orderId"].(string)
	result := exchange.OrderResult{OrderID: orderID, Symbol: req.Symbol, Side: req.Side, PositionSide: positionSide, Quantity: qty}

	closingSide := "Sell"
	if req.Side == exchange.OrderSideSell {
		closingSide = "Buy"
	}

	if req.StopLoss != nil {
		stopParams := map[string]interface{}{
			"category": category, "symbol": req.Symbol, "side": closingSide,
			"orderType": "Market", "triggerPrice": strconv.FormatFloat(exchange.RoundPrice(req.Symbol, *req.StopLoss), 'f', -1, 64),
			"reduceOnly": true, "positionIdx": positionIdx,
		}
		stopResp, err := c.hc.NewUtaBybitServiceWithParams(stopParams).PlaceOrder(ctx)
		if err != nil {
			return result, fmt.Errorf("bybit place stop-loss: %w", apperr.NewExchangeRejected(0, err.Error()))
		}
		result.StopOrderID, _ = stopResp.Result["orderId"].(string)
	}

	if req.TakeProfit != nil {
		tpParams := map[string]interface{}{
			"category": category, "symbol": req.Symbol, "side": closingSide,
			"orderType": "Market", "triggerPrice": strconv.FormatFloat(exchange.RoundPrice(req.Symbol, *req.TakeProfit), 'f', -1, 64),
			"reduceOnly": true, "positionIdx": positionIdx,
		}
		tpResp, err := c.hc.NewUtaBybitServiceWithParams(tpParams).PlaceOrder(ctx)
		if err != nil {
			return result, fmt.Errorf("bybit place take-profit: %w", apperr.NewExchangeRejected(0, err.Error()))
		}
		result.TakeOrderID, _ = tpResp.Result["orderId"].(string)
	}

	return result, nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string, side model.Side, quantity float64, hedging bool) (exchange.OrderResult, error) {
	closingSide := "Sell"
	positionIdx := 1
	if side == model.SideShort {
		closingSide = "Buy"
		positionIdx = 2
	}
	if !hedging {
		positionIdx = 0
	}

	qty := exchange.RoundQuantity(symbol, quantity)
	params := map[string]interface{}{
		"category": category, "symbol": symbol, "side": closingSide,
		"orderType": "Market", "qty": strconv.FormatFloat(qty, 'f', -1, 64),
		"reduceOnly": true, "positionIdx": positionIdx,
	}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).PlaceOrder(ctx)
	if err != nil {
		return exchange.OrderResult{}, fmt.Errorf("bybit close position: %w", apperr.NewExchangeRejected(0, err.Error()))
	}
	orderID, _ := resp.Result["orderId"].(string)
	return exchange.OrderResult{OrderID: orderID, Symbol: symbol, Quantity: qty}, nil
}

func (c *Client) UpdateStopLossOrder(ctx context.Context, symbol string, positionSide model.PositionSide, quantity, newStopPrice float64) error {
	openParams := map[string]interface{}{"category": category, "symbol": symbol}
	openResp, err := c.hc.NewUtaBybitServiceWithParams(openParams).GetOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("bybit list open orders: %w: %v", apperr.ErrNetwork, err)
	}
	closingSide := "Sell"
	positionIdx := 1
	if positionSide == model.PositionSideShort {
		closingSide = "Buy"
		positionIdx = 2
	}

	rows, _ := openResp.Result["list"].([]interface{})
	for _, r := range rows {
		row, _ := r.(map[string]interface{})
		if fmt.Sprint(row["stopOrderType"]) != "Stop" {
			continue
		}
		if idx := fmt.Sprint(row["positionIdx"]); idx != "0" && idx != strconv.Itoa(positionIdx) {
			continue
		}
		orderID, _ := row["orderId"].(string)
		cancelParams := map[string]interface{}{"category": category, "symbol": symbol, "orderId": orderID}
		if _, err := c.hc.NewUtaBybitServiceWithParams(cancelParams).CancelOrder(ctx); err != nil {
			return fmt.Errorf("bybit cancel stop order: %w", apperr.NewExchangeRejected(0, err.Error()))
		}
	}

	placeParams := map[string]interface{}{
		"category": category, "symbol": symbol, "side": closingSide,
		"orderType": "Market", "triggerPrice": strconv.FormatFloat(exchange.RoundPrice(symbol, newStopPrice), 'f', -1, 64),
		"reduceOnly": true, "positionIdx": positionIdx,
	}
	if _, err := c.hc.NewUtaBybitServiceWithParams(placeParams).PlaceOrder(ctx); err != nil {
		return fmt.Errorf("bybit replace stop order: %w", apperr.NewExchangeRejected(0, err.Error()))
	}
	return nil
}

func (c *Client) GetPositionMode(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if time.Since(c.hedgingCacheAt) < c.cacheTTL {
		hedging := c.hedgingCached
		c.mu.Unlock()
		return hedging, nil
	}
	c.mu.Unlock()

	params := map[string]interface{}{"category": category}
	resp, err := c.hc.NewUtaBybitServiceWithParams(params).GetPositionInfo(ctx)
	if err != nil {
		return false, fmt.Errorf("bybit get position mode: %w: %v", apperr.ErrNetwork, err)
	}
	rows, _ := resp.Result["list"].([]interface{})
	hedging := false
	for _, r := range rows {
		row, _ := r.(map[string]interface{})
		if idx, _ := strconv.Atoi(fmt.Sprint(row["positionIdx"])); idx != 0 {
			hedging = true
			break
		}
	}

	c.mu.Lock()
	c.hedgingCached = hedging
	c.hedgingCacheAt = time.Now()
	c.mu.Unlock()

	return hedging, nil
}

// InvalidatePositionModeCache forces the next GetPositionMode call to hit
// the exchange again.
func (c *Client) InvalidatePositionModeCache() {
	c.mu.Lock()
	c.hedgingCacheAt = time.Time{}
	c.mu.Unlock()
}
