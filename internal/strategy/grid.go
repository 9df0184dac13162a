package strategy

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const gridProximityPct = 0.01

// grid always emits a modest buy/sell bias near the nearest support or
// resistance level within 1%.
func grid(candles []model.Candle, p Params) Signal {
	prices := indicator.Closes(candles)
	if len(candles) < 20 {
		return Signal{Strategy: model.StrategyGrid, Signal: model.SignalHold, Reason: "insufficient data"}
	}

	pivots := indicator.SupportResistance(candles)
	price := prices[len(prices)-1]
	atr := indicator.ATR(candles, p.ATRPeriod)

	if support, ok := nearestLevel(pivots.Support, price); ok && withinPct(price, support, gridProximityPct) {
		stop := support - atr*0.5
		tp := price + (price-stop)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategyGrid, Signal: model.SignalBuy, Strength: 40, Confidence: 50,
			Reason: "price near grid support", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}
	if resistance, ok := nearestLevel(pivots.Resistance, price); ok && withinPct(price, resistance, gridProximityPct) {
		stop := resistance + atr*0.5
		tp := price - (stop-price)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategyGrid, Signal: model.SignalSell, Strength: 40, Confidence: 50,
			Reason: "price near grid resistance", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}

	return Signal{Strategy: model.StrategyGrid, Signal: model.SignalHold, Reason: "not near a grid level"}
}
