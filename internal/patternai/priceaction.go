package patternai

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const volumeSpikeMultiplier = 1.5

// analyzePriceAction combines the current candle's direction with relative
// volume: a spike is > 1.5x the trailing 20-bar average volume.
func analyzePriceAction(candles []model.Candle) SubResult {
	if len(candles) < 21 {
		return SubResult{Signal: model.SignalHold, Description: "insufficient data"}
	}

	last := candles[len(candles)-1]
	volumes := indicator.Volumes(candles[len(candles)-21 : len(candles)-1])
	avgVolume := indicator.SMA(volumes, len(volumes))

	spike := avgVolume > 0 && last.Volume > avgVolume*volumeSpikeMultiplier
	bullishCandle := last.Close > last.Open
	bearishCandle := last.Close < last.Open

	switch {
	case bullishCandle && spike:
		return SubResult{Signal: model.SignalBuy, Strength: 70, Confidence: 60, Description: "bullish candle on volume spike"}
	case bearishCandle && spike:
		return SubResult{Signal: model.SignalSell, Strength: 70, Confidence: 60, Description: "bearish candle on volume spike"}
	case bullishCandle:
		return SubResult{Signal: model.SignalBuy, Strength: 35, Confidence: 40, Description: "bullish candle"}
	case bearishCandle:
		return SubResult{Signal: model.SignalSell, Strength: 35, Confidence: 40, Description: "bearish candle"}
	default:
		return SubResult{Signal: model.SignalHold, Confidence: 30, Description: "flat candle"}
	}
}
