package patternai

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const bollingerSqueezeBandwidth = 0.04

// analyzeVolatility uses Bollinger %B and bandwidth: oversold/overbought at
// the bands plus expanding volatility drives reversal signals; a squeeze
// (narrow bandwidth) yields a hold with non-trivial confidence.
func analyzeVolatility(candles []model.Candle) SubResult {
	prices := indicator.Closes(candles)
	if len(prices) < 20 {
		return SubResult{Signal: model.SignalHold, Description: "insufficient data"}
	}

	bands := indicator.BollingerBands(prices, 20, 2)

	if bands.Bandwidth < bollingerSqueezeBandwidth {
		return SubResult{Signal: model.SignalHold, Confidence: 55, Description: "bollinger squeeze"}
	}

	switch {
	case bands.PercentB <= 0.05:
		strength := clamp((0.1 - bands.PercentB) * 1000)
		return SubResult{Signal: model.SignalBuy, Strength: strength, Confidence: 60, Description: "oversold at lower band"}
	case bands.PercentB >= 0.95:
		strength := clamp((bands.PercentB - 0.9) * 1000)
		return SubResult{Signal: model.SignalSell, Strength: strength, Confidence: 60, Description: "overbought at upper band"}
	default:
		return SubResult{Signal: model.SignalHold, Confidence: 35, Description: "within bands"}
	}
}

// volatilityRatio is the bandwidth-derived measure used both by
// analyzeVolatility's sub-result and by the ensemble's regime/risk
// derivation.
func volatilityRatio(candles []model.Candle) float64 {
	prices := indicator.Closes(candles)
	if len(prices) < 20 {
		return 0
	}
	return indicator.BollingerBands(prices, 20, 2).Bandwidth
}
