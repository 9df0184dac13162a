package strategy

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const breakoutProximityPct = 0.015

// breakout fires when price sits near nearest resistance/support, closes
// beyond it, and volume confirms at volumeMultiplier x the 20-bar average.
func breakout(candles []model.Candle, p Params) Signal {
	prices := indicator.Closes(candles)
	if len(candles) < 30 {
		return Signal{Strategy: model.StrategyBreakout, Signal: model.SignalHold, Reason: "insufficient data"}
	}

	pivots := indicator.SupportResistance(candles)
	price := prices[len(prices)-1]
	avgVolume := indicator.SMA(indicator.Volumes(candles), 20)
	volumeOK := avgVolume > 0 && candles[len(candles)-1].Volume >= p.VolumeMultiplier*avgVolume

	nearestResistance, hasResistance := nearestLevel(pivots.Resistance, price)
	nearestSupport, hasSupport := nearestLevel(pivots.Support, price)

	atr := indicator.ATR(candles, p.ATRPeriod)

	if hasResistance && volumeOK && withinPct(price, nearestResistance, breakoutProximityPct) && price > nearestResistance {
		stop := price - p.ATRMultiplier*atr
		if hasSupport && nearestSupport < stop {
			stop = nearestSupport
		}
		tp := price + (price-stop)*p.RiskRewardRatio
		return Signal{
			Strategy: model.StrategyBreakout, Signal: model.SignalBuy,
			Strength: 75, Confidence: 65, Reason: "breakout above resistance on volume",
			Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp},
		}
	}

	if hasSupport && volumeOK && withinPct(price, nearestSupport, breakoutProximityPct) && price < nearestSupport {
		stop := price + p.ATRMultiplier*atr
		if hasResistance && nearestResistance > stop {
			stop = nearestResistance
		}
		tp := price - (stop-price)*p.RiskRewardRatio
		return Signal{
			Strategy: model.StrategyBreakout, Signal: model.SignalSell,
			Strength: 75, Confidence: 65, Reason: "breakdown below support on volume",
			Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp},
		}
	}

	return Signal{Strategy: model.StrategyBreakout, Signal: model.SignalHold, Reason: "no breakout"}
}

func nearestLevel(levels []float64, price float64) (float64, bool) {
	if len(levels) == 0 {
		return 0, false
	}
	nearest := levels[0]
	for _, l := range levels[1:] {
		if abs(l-price) < abs(nearest-price) {
			nearest = l
		}
	}
	return nearest, true
}

func withinPct(price, level, pct float64) bool {
	if level == 0 {
		return false
	}
	return abs(price-level)/level <= pct
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
