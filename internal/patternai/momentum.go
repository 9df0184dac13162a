package patternai

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

// analyzeMomentum is bullish when both short and medium momentum are
// positive and the short one is accelerating; symmetric for bearish.
func analyzeMomentum(candles []model.Candle) SubResult {
	prices := indicator.Closes(candles)
	if len(prices) < 16 {
		return SubResult{Signal: model.SignalHold, Description: "insufficient data"}
	}

	shortMom := indicator.Momentum(prices, 5)
	medMom := indicator.Momentum(prices, 10)
	roc := indicator.ROC(prices, 10)

	prevShortMom := indicator.Momentum(prices[:len(prices)-1], 5)
	accelerating := abs(shortMom) > abs(prevShortMom)

	switch {
	case shortMom > 0 && medMom > 0 && accelerating:
		strength := clamp(abs(roc) * 5)
		return SubResult{Signal: model.SignalBuy, Strength: strength, Confidence: 65, Description: "accelerating bullish momentum"}
	case shortMom < 0 && medMom < 0 && accelerating:
		strength := clamp(abs(roc) * 5)
		return SubResult{Signal: model.SignalSell, Strength: strength, Confidence: 65, Description: "accelerating bearish momentum"}
	default:
		return SubResult{Signal: model.SignalHold, Confidence: 40, Description: "no clear momentum"}
	}
}
