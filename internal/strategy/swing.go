package strategy

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const swingProximityPct = 0.01

// swing trades proximity to the last swingPeriod-lookback swing low/high,
// confirmed by DI agreement.
func swing(candles []model.Candle, p Params) Signal {
	period := p.SwingPeriod
	if period <= 0 {
		period = 10
	}
	if len(candles) < period+5 {
		return Signal{Strategy: model.StrategySwing, Signal: model.SignalHold, Reason: "insufficient data"}
	}

	window := candles[len(candles)-period:]
	swingLow := window[0].Low
	swingHigh := window[0].High
	for _, c := range window {
		if c.Low < swingLow {
			swingLow = c.Low
		}
		if c.High > swingHigh {
			swingHigh = c.High
		}
	}

	price := candles[len(candles)-1].Close
	adx := indicator.ADX(candles, 14)
	atr := indicator.ATR(candles, p.ATRPeriod)

	if withinPct(price, swingLow, swingProximityPct) && adx.PlusDI >= adx.MinusDI {
		stop := swingLow - atr*0.5
		tp := price + (price-stop)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategySwing, Signal: model.SignalBuy, Strength: 60, Confidence: 55,
			Reason: "near swing low with DI agreement", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}
	if withinPct(price, swingHigh, swingProximityPct) && adx.MinusDI >= adx.PlusDI {
		stop := swingHigh + atr*0.5
		tp := price - (stop-price)*p.RiskRewardRatio
		return Signal{Strategy: model.StrategySwing, Signal: model.SignalSell, Strength: 60, Confidence: 55,
			Reason: "near swing high with DI agreement", Levels: &Levels{Entry: price, StopLoss: stop, TakeProfit: tp}}
	}

	return Signal{Strategy: model.StrategySwing, Signal: model.SignalHold, Reason: "not near a swing level"}
}
