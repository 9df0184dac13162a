package engine

import (
	"context"
	"fmt"
	"time"

	"tradeforge/internal/exchange"
	"tradeforge/internal/indicator"
	"tradeforge/internal/metrics"
	"tradeforge/internal/model"
	"tradeforge/internal/sizing"
	"tradeforge/internal/strategy"
)

// executeEntry is §4.11: levels are derived from ATR (smart sizing) or
// maxRiskPerTrade%/riskRewardRatio (classical), then sized and placed.
func (e *Engine) executeEntry(ctx context.Context, settings model.Settings, symbol string, direction model.Side, strength float64, candles []model.Candle, entrySignals []string) (model.Trade, error) {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	price, err := e.client.GetPrice(ctx, symbol)
	if err != nil {
		metrics.RecordExchangeError("get_price")
		return model.Trade{}, fmt.Errorf("engine: fetch price: %w", err)
	}
	account, err := e.client.GetAccount(ctx)
	if err != nil {
		metrics.RecordExchangeError("get_account")
		return model.Trade{}, fmt.Errorf("engine: fetch account: %w", err)
	}

	var stopLoss, takeProfit, quantity float64
	if settings.SmartSizingEnabled {
		atr := indicator.ATR(candles, settings.ATRPeriod)
		stopLoss, takeProfit = atrLevels(direction, price, atr, settings.ATRMultiplier, settings.RiskRewardRatio)

		atrPercent := 0.0
		if price != 0 {
			atrPercent = atr / price * 100
		}
		vol := sizing.ClassifyVolatility(atrPercent)
		sizePercent := sizing.SmartSizePercent(settings.MaxRiskPerTrade, vol, settings.VolatilityAdjustment, strength, settings.MinPositionPercent, settings.MaxPositionPercent)
		quantity = sizing.SmartQuantity(account.Balance, price, defaultLeverage, sizePercent)
	} else {
		stopLoss, takeProfit = riskLevels(direction, price, settings.MaxRiskPerTrade, settings.RiskRewardRatio)
		quantity = sizing.ClassicalQuantity(account.Balance, price, stopLoss, defaultLeverage, settings.MaxRiskPerTrade)
	}

	return e.placeAndRecord(ctx, settings, symbol, direction, price, stopLoss, takeProfit, quantity, strength, entrySignals)
}

// executeWithLevels is §4.12: the strategy-supplied (entry, stopLoss,
// takeProfit) are used verbatim; only the sizing mode is still applied.
func (e *Engine) executeWithLevels(ctx context.Context, settings model.Settings, symbol string, direction model.Side, strength float64, levels strategy.Levels, candles []model.Candle, entrySignals []string) (model.Trade, error) {
	lock := e.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	account, err := e.client.GetAccount(ctx)
	if err != nil {
		metrics.RecordExchangeError("get_account")
		return model.Trade{}, fmt.Errorf("engine: fetch account: %w", err)
	}

	var quantity float64
	if settings.SmartSizingEnabled {
		atr := indicator.ATR(candles, settings.ATRPeriod)
		atrPercent := 0.0
		if levels.Entry != 0 {
			atrPercent = atr / levels.Entry * 100
		}
		vol := sizing.ClassifyVolatility(atrPercent)
		sizePercent := sizing.SmartSizePercent(settings.MaxRiskPerTrade, vol, settings.VolatilityAdjustment, strength, settings.MinPositionPercent, settings.MaxPositionPercent)
		quantity = sizing.SmartQuantity(account.Balance, levels.Entry, defaultLeverage, sizePercent)
	} else {
		quantity = sizing.ClassicalQuantity(account.Balance, levels.Entry, levels.StopLoss, defaultLeverage, settings.MaxRiskPerTrade)
	}

	return e.placeAndRecord(ctx, settings, symbol, direction, levels.Entry, levels.StopLoss, levels.TakeProfit, quantity, strength, entrySignals)
}

// placeAndRecord places the bracket order and writes the Trade row whenever
// the entry itself filled. Per the §4.11/§9 failure policy, an entry
// rejection leaves no partial state (no Trade row, no cooldown/daily-count
// update), but a filled entry whose stop-loss or take-profit order failed
// still gets a Trade row so the live, unprotected position is tracked and
// recoverable.
func (e *Engine) placeAndRecord(ctx context.Context, settings model.Settings, symbol string, direction model.Side, entry, stopLoss, takeProfit, quantity, strength float64, entrySignals []string) (model.Trade, error) {
	if quantity <= 0 {
		e.logger.Warn().Str("symbol", symbol).Msg("engine: sized quantity is zero, skipping entry")
		return model.Trade{}, fmt.Errorf("engine: sized quantity is zero")
	}

	hedging, err := e.hedgingMode(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("engine: failed to resolve hedging mode before placing order, assuming non-hedging")
	}

	leverage := defaultLeverage
	req := exchange.OrderRequest{
		Symbol: symbol, Side: orderSideFromDirection(direction), Quantity: quantity,
		StopLoss: &stopLoss, TakeProfit: &takeProfit, Leverage: &leverage, HedgingMode: hedging,
	}

	result, err := e.client.PlaceOrder(ctx, req)
	if err != nil {
		metrics.RecordExchangeError("place_order")
		if result.OrderID == "" {
			// Entry itself was rejected: no position exists, so no Trade
			// row is created and no cooldown/daily-count state advances.
			if logErr := e.store.AppendLog(ctx, model.ActivityLog{
				Level: model.LogError, Source: "engine", Timestamp: time.Now(),
				Message: fmt.Sprintf("order placement failed for %s", symbol), Details: err.Error(),
			}); logErr != nil {
				e.logger.Error().Err(logErr).Msg("engine: failed to persist order-failure log")
			}
			return model.Trade{}, fmt.Errorf("engine: place order: %w", err)
		}

		// The entry filled but a protective order (stop-loss or
		// take-profit) failed: the exchange now holds a live position
		// without that order. The trade is still recorded so reconciliation
		// matches it and the trailing sweep manages it. No replacement
		// protective order is placed, neither here nor on a later tick.
		e.logger.Error().Err(err).Str("symbol", symbol).Str("order_id", result.OrderID).
			Msg("engine: entry filled but a protective order failed, tracking trade for recovery")
		if logErr := e.store.AppendLog(ctx, model.ActivityLog{
			Level: model.LogError, Source: "engine", Timestamp: time.Now(),
			Message: fmt.Sprintf("protective order failed for %s after entry filled", symbol), Details: err.Error(),
		}); logErr != nil {
			e.logger.Error().Err(logErr).Msg("engine: failed to persist protective-order-failure log")
		}
	}

	isAutoTrade := true
	for _, s := range entrySignals {
		if s == "manual" {
			isAutoTrade = false
		}
	}
	trade := model.Trade{
		Symbol: symbol, Direction: direction, Status: model.TradeStatusActive,
		EntryPrice: entry, Quantity: quantity, Leverage: leverage,
		StopLoss: stopLoss, TakeProfit: takeProfit, EntryTime: time.Now(),
		EntrySignals: entrySignals, ExchangeOrderID: result.OrderID,
		TrailingStopActive: settings.TrailingStopEnabled, IsAutoTrade: isAutoTrade,
	}
	created, err := e.store.CreateTrade(ctx, trade)
	if err != nil {
		return model.Trade{}, fmt.Errorf("engine: persist trade: %w", err)
	}

	e.recordTradeOpened(symbol)

	e.notifier.OnTradeOpen(created)
	return created, nil
}

func riskLevels(direction model.Side, entry, maxRiskPerTrade, riskRewardRatio float64) (stopLoss, takeProfit float64) {
	return sizing.RiskLevels(direction == model.SideShort, entry, maxRiskPerTrade, riskRewardRatio)
}

func atrLevels(direction model.Side, entry, atr, atrMultiplier, riskRewardRatio float64) (stopLoss, takeProfit float64) {
	distance := atrMultiplier * atr
	if direction == model.SideShort {
		return entry + distance, entry - distance*riskRewardRatio
	}
	return entry - distance, entry + distance*riskRewardRatio
}
