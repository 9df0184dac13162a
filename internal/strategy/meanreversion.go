package strategy

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

// meanReversion buys when %B < 0.1 and RSI < oversold, sells symmetrically;
// the take-profit target is the Bollinger middle band.
func meanReversion(candles []model.Candle, p Params) Signal {
	prices := indicator.Closes(candles)
	if len(prices) < 20 {
		return Signal{Strategy: model.StrategyMeanReversion, Signal: model.SignalHold, Reason: "insufficient data"}
	}

	bands := indicator.BollingerBands(prices, 20, 2)
	rsi := indicator.RSI(prices, 14)
	price := prices[len(prices)-1]

	if bands.PercentB < 0.1 && rsi < p.RSIOversold {
		return Signal{Strategy: model.StrategyMeanReversion, Signal: model.SignalBuy, Strength: 65, Confidence: 60,
			Reason: "oversold reversion candidate",
			Levels:  &Levels{Entry: price, StopLoss: bands.Lower * 0.99, TakeProfit: bands.Middle}}
	}
	if bands.PercentB > 0.9 && rsi > p.RSIOverbought {
		return Signal{Strategy: model.StrategyMeanReversion, Signal: model.SignalSell, Strength: 65, Confidence: 60,
			Reason: "overbought reversion candidate",
			Levels:  &Levels{Entry: price, StopLoss: bands.Upper * 1.01, TakeProfit: bands.Middle}}
	}

	return Signal{Strategy: model.StrategyMeanReversion, Signal: model.SignalHold, Reason: "within normal band range"}
}
