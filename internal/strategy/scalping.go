package strategy

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

// scalping fires on EMA9/EMA21 crossover confirmed by RSI(7) and
// Stochastic(5,3) not sitting at the opposing extreme.
func scalping(candles []model.Candle, p Params) Signal {
	prices := indicator.Closes(candles)
	if len(prices) < 22 {
		return Signal{Strategy: model.StrategyScalping, Signal: model.SignalHold, Reason: "insufficient data"}
	}

	ema9 := indicator.EMASeries(prices, 9)
	ema21 := indicator.EMASeries(prices, 21)
	if len(ema9) < 2 || len(ema21) < 2 {
		return Signal{Strategy: model.StrategyScalping, Signal: model.SignalHold, Reason: "insufficient data"}
	}
	offset := len(ema9) - len(ema21)
	if offset < 0 {
		return Signal{Strategy: model.StrategyScalping, Signal: model.SignalHold, Reason: "insufficient data"}
	}
	e9curr, e9prev := ema9[len(ema9)-1], ema9[len(ema9)-2]
	e21curr, e21prev := ema21[len(ema21)-1], ema21[len(ema21)-2]

	rsi7 := indicator.RSI(prices, 7)
	stoch := indicator.Stochastic(candles, 5, 3)

	price := prices[len(prices)-1]
	atr := indicator.ATR(candles, p.ATRPeriod)

	crossedUp := e9prev <= e21prev && e9curr > e21curr
	crossedDown := e9prev >= e21prev && e9curr < e21curr

	if crossedUp && rsi7 < p.RSIOverbought && stoch.K < 80 {
		stop := price - p.ATRMultiplier*atr*0.5
		tp := price + (price-stop)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategyScalping, Signal: model.SignalBuy, Strength: 60, Confidence: 55,
			Reason: "ema9/21 bullish crossover", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}
	if crossedDown && rsi7 > p.RSIOversold && stoch.K > 20 {
		stop := price + p.ATRMultiplier*atr*0.5
		tp := price - (stop-price)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategyScalping, Signal: model.SignalSell, Strength: 60, Confidence: 55,
			Reason: "ema9/21 bearish crossover", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}

	return Signal{Strategy: model.StrategyScalping, Signal: model.SignalHold, Reason: "no crossover"}
}
