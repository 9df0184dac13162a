package engine

import (
	"context"
	"fmt"
	"time"

	"tradeforge/internal/apperr"
	"tradeforge/internal/metrics"
	"tradeforge/internal/model"
)

// ManualOpen opens a position outside the scheduler loop, for the operator
// surface's OpenTrade action (§6.1). It reuses the same sizing/execution
// path as an automated entry, at full signal strength, tagged as a manual
// entry rather than an auto-trade.
func (e *Engine) ManualOpen(ctx context.Context, symbol string, direction model.Side) (model.Trade, error) {
	settings := e.currentSettings()

	candles, err := e.client.GetKlines(ctx, symbol, "1h", oneHourBars)
	if err != nil {
		metrics.RecordExchangeError("get_klines")
		candles = nil
	}
	return e.executeEntry(ctx, settings, symbol, direction, 100, candles, []string{"manual"})
}

// CloseTrade closes a single active trade against the exchange and marks
// it closed in the store, mirroring reconcile.Reconciler's close-off
// accounting (profit calc, protection update, OnTradeClose notification)
// for an operator-initiated close rather than a reconciliation-discovered
// one.
func (e *Engine) CloseTrade(ctx context.Context, tradeID string) (model.Trade, error) {
	trade, err := e.store.GetTrade(ctx, tradeID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("engine: fetch trade: %w", err)
	}
	if trade.Status != model.TradeStatusActive {
		return model.Trade{}, fmt.Errorf("engine: trade %s is not active: %w", tradeID, apperr.ErrNotActive)
	}

	lock := e.symbolLock(trade.Symbol)
	lock.Lock()
	defer lock.Unlock()

	hedging, err := e.hedgingMode(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("engine: failed to resolve hedging mode before closing, assuming non-hedging")
	}

	result, err := e.client.ClosePosition(ctx, trade.Symbol, trade.Direction, trade.Quantity, hedging)
	if err != nil {
		metrics.RecordExchangeError("close_position")
		return model.Trade{}, fmt.Errorf("engine: close position: %w", err)
	}

	exitPrice := result.Price
	if exitPrice == 0 {
		exitPrice, _ = e.client.GetPrice(ctx, trade.Symbol)
	}
	profit := (exitPrice - trade.EntryPrice) * trade.Quantity
	if trade.Direction == model.SideShort {
		profit = (trade.EntryPrice - exitPrice) * trade.Quantity
	}
	profitPct := 0.0
	if trade.EntryPrice != 0 {
		profitPct = profit / (trade.EntryPrice * trade.Quantity) * 100
	}

	closed, err := e.store.CloseTrade(ctx, trade.ID, exitPrice, time.Now(), profit, profitPct)
	if err != nil {
		return model.Trade{}, fmt.Errorf("engine: persist close: %w", err)
	}

	e.protection.RecordTradeResult(profit)
	e.notifier.OnTradeClose(closed)
	return closed, nil
}

// CloseAllTrades closes every currently active trade, returning the count
// that closed successfully; failures on individual trades are logged and
// do not abort the remaining closes.
func (e *Engine) CloseAllTrades(ctx context.Context) (int, error) {
	trades, err := e.store.ActiveTrades(ctx)
	if err != nil {
		return 0, fmt.Errorf("engine: list active trades: %w", err)
	}

	closed := 0
	for _, t := range trades {
		if _, err := e.CloseTrade(ctx, t.ID); err != nil {
			e.logger.Error().Err(err).Str("trade_id", t.ID).Str("symbol", t.Symbol).Msg("engine: failed to close trade during close-all")
			continue
		}
		closed++
	}
	return closed, nil
}
