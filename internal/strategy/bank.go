package strategy

import "tradeforge/internal/model"

// dispatch maps each named strategy to its implementation, generalizing
// the donor's single-active-algo switch (localfunc.go's detectAlgoType)
// into "run every enabled strategy, then combine."
var dispatch = map[model.StrategyName]func([]model.Candle, Params) Signal{
	model.StrategyBreakout:      breakout,
	model.StrategyScalping:      scalping,
	model.StrategyMomentum:      momentumStrategy,
	model.StrategyMeanReversion: meanReversion,
	model.StrategySwing:         swing,
	model.StrategyGrid:          grid,
}

// Analyze runs every enabled strategy and returns the full Result: every
// signal, the best actionable one (by strength*confidence, confidence>=50),
// and a consensus verdict requiring >=2 agreeing actionable signals.
func Analyze(candles []model.Candle, enabled []model.StrategyName, p Params) Result {
	var signals []Signal
	for _, name := range enabled {
		fn, ok := dispatch[name]
		if !ok {
			continue
		}
		signals = append(signals, fn(candles, p))
	}

	var actionable []Signal
	for _, s := range signals {
		if s.Signal != model.SignalHold && s.Confidence >= bestMinConfidence {
			actionable = append(actionable, s)
		}
	}

	var best *Signal
	bestScore := -1.0
	for i := range actionable {
		score := actionable[i].Strength * actionable[i].Confidence
		if score > bestScore {
			bestScore = score
			best = &actionable[i]
		}
	}

	buyCount, sellCount := 0, 0
	var buyStrengthSum, sellStrengthSum float64
	for _, s := range actionable {
		if s.Signal == model.SignalBuy {
			buyCount++
			buyStrengthSum += s.Strength
		} else if s.Signal == model.SignalSell {
			sellCount++
			sellStrengthSum += s.Strength
		}
	}

	consensus := false
	consensusSide := model.SignalHold
	consensusStrength := 0.0
	if buyCount >= consensusMinAgreeing && buyCount >= sellCount {
		consensus = true
		consensusSide = model.SignalBuy
		consensusStrength = buyStrengthSum / float64(buyCount)
	} else if sellCount >= consensusMinAgreeing && sellCount > buyCount {
		consensus = true
		consensusSide = model.SignalSell
		consensusStrength = sellStrengthSum / float64(sellCount)
	}

	return Result{
		Signals: signals, Best: best,
		Consensus: consensus, ConsensusStrength: consensusStrength, ConsensusSide: consensusSide,
	}
}
