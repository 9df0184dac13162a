package strategy

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const momentumThresholdPct = 0.02

// momentumStrategy fires when Momentum exceeds a threshold, ADX's trend
// category is strong/moderate, and +DI/-DI agrees with the direction.
func momentumStrategy(candles []model.Candle, p Params) Signal {
	prices := indicator.Closes(candles)
	if len(candles) < 20 {
		return Signal{Strategy: model.StrategyMomentum, Signal: model.SignalHold, Reason: "insufficient data"}
	}

	mom := indicator.Momentum(prices, 10)
	price := prices[len(prices)-1]
	threshold := price * momentumThresholdPct

	adx := indicator.ADX(candles, 14)
	trendOK := adx.Category == indicator.TrendStrong || adx.Category == indicator.TrendModerate

	atr := indicator.ATR(candles, p.ATRPeriod)

	if mom > threshold && trendOK && adx.PlusDI > adx.MinusDI {
		stop := price - p.ATRMultiplier*atr
		tp := price + (price-stop)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategyMomentum, Signal: model.SignalBuy, Strength: 70, Confidence: 60,
			Reason: "bullish momentum with trend confirmation", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}
	if mom < -threshold && trendOK && adx.MinusDI > adx.PlusDI {
		stop := price + p.ATRMultiplier*atr
		tp := price - (stop-price)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategyMomentum, Signal: model.SignalSell, Strength: 70, Confidence: 60,
			Reason: "bearish momentum with trend confirmation", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}

	return Signal{Strategy: model.StrategyMomentum, Signal: model.SignalHold, Reason: "no confirmed momentum"}
}
