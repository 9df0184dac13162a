package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradeforge/internal/classical"
	"tradeforge/internal/gate"
	"tradeforge/internal/indicator"
	"tradeforge/internal/metrics"
	"tradeforge/internal/model"
	"tradeforge/internal/patternai"
	"tradeforge/internal/strategy"
)

// oneHourBars is the bar count both the AI path and the strategy path
// fetch per §4.7 steps 4-5; the same 1h window is reused for the
// single-timeframe classical fallback and for ATR-based sizing. The market
// gate fetches its own 60-bar 1h window separately.
const oneHourBars = 100

var defaultTimeframes = []string{"15m", "1h", "4h"}

// decideSymbol runs the §4.7 cascade for one pair. Exceptions are caught,
// logged, and never abort the tick.
func (e *Engine) decideSymbol(ctx context.Context, symbol string, settings model.Settings) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("symbol", symbol).Interface("panic", r).Msg("engine: per-symbol decision panicked, recovered")
		}
	}()

	logger := e.logger.With().Str("symbol", symbol).Logger()

	// 1. Cooldown.
	if last, ok := e.lastTradeTime(symbol); ok {
		if time.Since(last) < time.Duration(settings.TradeCooldownMinutes)*time.Minute {
			return
		}
	}

	// 2. Gate.
	if settings.MarketFilterEnabled || settings.AccountProtectionEnabled {
		allowed, reasons := e.evaluateGate(ctx, symbol, settings)
		if !allowed {
			logger.Info().Strs("reasons", reasons).Msg("engine: symbol gated")
			return
		}
	}

	activeTrades, err := e.store.ActiveTrades(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("engine: failed to load active trades")
		return
	}

	// 3. Diversification.
	if settings.DiversificationEnabled && hasActiveSameAsset(activeTrades, symbol) {
		logger.Info().Msg("engine: diversification filter, base asset already in an active trade")
		return
	}

	candles1h, err := e.client.GetKlines(ctx, symbol, "1h", oneHourBars)
	if err != nil {
		metrics.RecordExchangeError("get_klines")
		logger.Warn().Err(err).Msg("engine: failed to fetch 1h candles")
		candles1h = nil
	}

	// 4. AI path.
	if settings.AITradingEnabled && len(candles1h) >= 30 {
		if e.tryAIPath(ctx, symbol, settings, candles1h, logger) {
			return
		}
	}

	// 5. Strategy path.
	if settings.AdvancedStrategiesEnabled && len(candles1h) >= 50 {
		if e.tryStrategyPath(ctx, symbol, settings, candles1h, logger) {
			return
		}
	}

	// 6. Classical fallback.
	signal, strength, ok := e.classicalFallback(ctx, symbol, settings, candles1h, logger)
	if !ok {
		return
	}

	// 7. Strength/direction and existing-position checks.
	minStrength := settings.MinSignalStrength
	if minStrength > 30 {
		minStrength = 30
	}
	if signal == model.SignalHold || strength < minStrength {
		return
	}

	direction := sideFromSignal(signal)
	hedging, err := e.hedgingMode(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("engine: failed to resolve hedging mode, assuming non-hedging")
	}
	if rejectForExistingPosition(activeTrades, symbol, direction, hedging) {
		return
	}

	// 8. Notify, then execute.
	e.notifier.OnSignal(symbol, string(signal), strength)
	metrics.RecordSignal(symbol, string(signal), strength)
	if err := e.store.RecordSignal(ctx, model.Signal{
		Symbol: symbol, Type: signal, Indicator: "classical", Value: strength, Strength: strength, Timestamp: time.Now(),
	}); err != nil {
		logger.Warn().Err(err).Msg("engine: failed to persist signal audit row")
	}

	if candles1h == nil {
		candles1h, _ = e.client.GetKlines(ctx, symbol, "1h", oneHourBars)
	}
	if _, err := e.executeEntry(ctx, settings, symbol, direction, strength, candles1h, []string{"classical"}); err != nil {
		logger.Error().Err(err).Msg("engine: trade execution failed")
	}
}

func (e *Engine) evaluateGate(ctx context.Context, symbol string, settings model.Settings) (bool, []string) {
	candles, err := e.client.GetKlines(ctx, symbol, "1h", 60)
	market := gate.MarketAnalysis{Condition: gate.ConditionUnknown, Score: 50, Recommendation: gate.RecommendCaution}
	if err == nil {
		market = gate.AnalyzeMarketCondition(candles, gate.Params{
			MaxVolatilityPercent: settings.MaxVolatilityPercent,
			AvoidRangingMarket:   settings.AvoidRangingMarket,
			TrendFilterEnabled:   settings.TrendFilterEnabled,
			MinTrendStrength:     settings.MinTrendStrength,
		})
	}

	activeTrades, _ := e.store.ActiveTrades(ctx)
	status := e.protection.ShouldTrade(ctx, len(activeTrades), gate.Params{
		MaxDailyLossPercent:         settings.MaxDailyLossPercent,
		MaxConcurrentTrades:         settings.MaxConcurrentTrades,
		PauseAfterConsecutiveLosses: settings.PauseAfterConsecutiveLosses,
	})

	decision := gate.ShouldTrade(settings.MarketFilterEnabled, market, status)
	if settings.MarketFilterEnabled {
		metrics.RecordMarketCondition(symbol, market.Score)
	}
	return decision.Allowed, decision.Reasons
}

func (e *Engine) tryAIPath(ctx context.Context, symbol string, settings model.Settings, candles []model.Candle, logger zerolog.Logger) bool {
	pred := patternai.Analyze(candles)
	if pred.Signal == model.SignalHold {
		return false
	}
	agreeing := pred.CountAgreeing(pred.Signal)
	pass := pred.Confidence >= settings.AIMinConfidence &&
		pred.SignalStrength >= settings.AIMinSignalStrength &&
		agreeing >= settings.AIRequiredSignals &&
		pred.RiskLevel != patternai.RiskHigh
	if !pass {
		return false
	}

	direction := sideFromSignal(pred.Signal)
	e.notifier.OnSignal(symbol, string(pred.Signal), pred.SignalStrength)
	metrics.RecordSignal(symbol, string(pred.Signal), pred.SignalStrength)
	if _, err := e.executeEntry(ctx, settings, symbol, direction, pred.SignalStrength, candles, []string{"ai_ensemble"}); err != nil {
		logger.Error().Err(err).Msg("engine: AI-path trade execution failed")
	}
	return true
}

func (e *Engine) tryStrategyPath(ctx context.Context, symbol string, settings model.Settings, candles []model.Candle, logger zerolog.Logger) bool {
	params := strategy.Params{
		ATRPeriod: settings.ATRPeriod, ATRMultiplier: settings.ATRMultiplier,
		RiskRewardRatio: settings.RiskRewardRatio, VolumeMultiplier: settings.VolumeMultiplier,
		SwingPeriod: settings.SwingPeriod, RSIOverbought: settings.RSIOverbought, RSIOversold: settings.RSIOversold,
	}
	result := strategy.Analyze(candles, settings.EnabledStrategies, params)

	var chosen *strategy.Signal
	if settings.RequireStrategyConsensus {
		if result.Consensus && result.ConsensusStrength >= settings.StrategyMinStrength {
			chosen = bestActionableForSide(result, result.ConsensusSide)
		}
	} else if result.Best != nil && result.Best.Confidence >= settings.StrategyMinConfidence && result.Best.Strength >= settings.StrategyMinStrength {
		chosen = result.Best
	}
	if chosen == nil || chosen.Levels == nil {
		return false
	}

	direction := sideFromSignal(chosen.Signal)
	e.notifier.OnSignal(symbol, string(chosen.Signal), chosen.Strength)
	metrics.RecordSignal(symbol, string(chosen.Signal), chosen.Strength)
	if _, err := e.executeWithLevels(ctx, settings, symbol, direction, chosen.Strength, *chosen.Levels, candles, []string{string(chosen.Strategy)}); err != nil {
		logger.Error().Err(err).Msg("engine: strategy-path trade execution failed")
	}
	return true
}

// bestActionableForSide finds the strongest signal agreeing with side that
// carries usable levels, since the consensus verdict itself has no levels.
func bestActionableForSide(result strategy.Result, side model.SignalKind) *strategy.Signal {
	var best *strategy.Signal
	bestScore := -1.0
	for i := range result.Signals {
		s := &result.Signals[i]
		if s.Signal != side || s.Levels == nil {
			continue
		}
		score := s.Strength * s.Confidence
		if score > bestScore {
			bestScore = score
			best = s
		}
	}
	return best
}

func (e *Engine) classicalFallback(ctx context.Context, symbol string, settings model.Settings, candles1h []model.Candle, logger zerolog.Logger) (model.SignalKind, float64, bool) {
	params := classical.Params{
		RSIPeriod: settings.RSIPeriod, RSIOverbought: settings.RSIOverbought, RSIOversold: settings.RSIOversold,
		MACDFast: settings.MACDFast, MACDSlow: settings.MACDSlow, MACDSignal: settings.MACDSignal,
		MAShortPeriod: settings.MaShortPeriod, MALongPeriod: settings.MaLongPeriod,
	}

	if !settings.MultiTimeframeEnabled {
		prices := indicator.Closes(candles1h)
		res := classical.Analyze(prices, params)
		return res.OverallSignal, res.SignalStrength, res.OverallSignal != model.SignalHold
	}

	timeframes := settings.Timeframes
	if len(timeframes) == 0 {
		timeframes = defaultTimeframes
	}

	type tfResult struct {
		signal   model.SignalKind
		strength float64
	}
	var results []tfResult
	for _, tf := range timeframes {
		candles := candles1h
		if tf != "1h" {
			var err error
			candles, err = e.client.GetKlines(ctx, symbol, tf, oneHourBars)
			if err != nil {
				logger.Warn().Err(err).Str("timeframe", tf).Msg("engine: failed to fetch timeframe candles, skipping")
				continue
			}
		}
		prices := indicator.Closes(candles)
		res := classical.Analyze(prices, params)
		if res.OverallSignal != model.SignalHold {
			results = append(results, tfResult{res.OverallSignal, res.SignalStrength})
		}
	}
	if len(results) == 0 {
		return model.SignalHold, 0, false
	}

	buyCount, sellCount := 0, 0
	for _, r := range results {
		if r.signal == model.SignalBuy {
			buyCount++
		} else {
			sellCount++
		}
	}
	majority := model.SignalBuy
	if sellCount > buyCount {
		majority = model.SignalSell
	}

	var sum float64
	agreeing := 0
	for _, r := range results {
		if r.signal == majority {
			sum += r.strength
			agreeing++
		}
	}
	if agreeing == 0 {
		return model.SignalHold, 0, false
	}
	return majority, sum / float64(agreeing), true
}

func hasActiveSameAsset(trades []model.Trade, symbol string) bool {
	asset := baseAsset(symbol)
	for _, t := range trades {
		if t.Status == model.TradeStatusActive && baseAsset(t.Symbol) == asset {
			return true
		}
	}
	return false
}

// rejectForExistingPosition implements §4.7 step 7's existing-position
// check: in hedging mode a second trade in the same direction is rejected;
// without hedging, any active trade on the symbol rejects a new one.
func rejectForExistingPosition(trades []model.Trade, symbol string, direction model.Side, hedging bool) bool {
	for _, t := range trades {
		if t.Status != model.TradeStatusActive || t.Symbol != symbol {
			continue
		}
		if !hedging {
			return true
		}
		if t.Direction == direction {
			return true
		}
	}
	return false
}

var quoteAssets = []string{"USDT", "USDC", "BUSD", "FDUSD", "USD", "BTC", "ETH"}

// baseAsset strips the known quote-asset suffix from a futures symbol,
// e.g. "ETHUSDT" -> "ETH", for the diversification check.
func baseAsset(symbol string) string {
	for _, quote := range quoteAssets {
		if strings.HasSuffix(symbol, quote) && len(symbol) > len(quote) {
			return symbol[:len(symbol)-len(quote)]
		}
	}
	return symbol
}
