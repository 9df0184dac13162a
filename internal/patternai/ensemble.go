package patternai

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

const ensembleDecisionMargin = 0.15

// Analyze runs all five sub-analyzers and aggregates them into a single
// Prediction per §4.5's weighted-vote formula.
func Analyze(candles []model.Candle) Prediction {
	pattern := analyzePatterns(candles)
	momentum := analyzeMomentum(candles)
	volatility := analyzeVolatility(candles)
	trend := analyzeTrend(candles)
	priceAction := analyzePriceAction(candles)

	buyScore, sellScore := 0.0, 0.0
	weightedConfidence := 0.0

	accumulate := func(key string, r SubResult) {
		w := subWeights[key]
		contribution := (r.Strength / 100) * w * (r.Confidence / 100)
		switch r.Signal {
		case model.SignalBuy:
			buyScore += contribution
		case model.SignalSell:
			sellScore += contribution
		}
		weightedConfidence += r.Confidence * w
	}
	accumulate("pattern", pattern)
	accumulate("momentum", momentum)
	accumulate("volatility", volatility)
	accumulate("trend", trend)
	accumulate("priceAction", priceAction)

	signal := model.SignalHold
	diff := buyScore - sellScore
	if diff > ensembleDecisionMargin {
		signal = model.SignalBuy
	} else if -diff > ensembleDecisionMargin {
		signal = model.SignalSell
	}

	maxScore := buyScore
	if sellScore > maxScore {
		maxScore = sellScore
	}
	signalStrength := clamp(maxScore * 200)

	regime, risk := classifyRegimeAndRisk(candles)

	return Prediction{
		Pattern: pattern, Momentum: momentum, Volatility: volatility,
		Trend: trend, PriceAction: priceAction,
		Signal: signal, SignalStrength: signalStrength, Confidence: weightedConfidence,
		MarketRegime: regime, RiskLevel: risk,
		ShortTermPrediction:  SubResult{Signal: signal, Strength: signalStrength, Confidence: weightedConfidence},
		MediumTermPrediction: trend,
	}
}

// CountAgreeing returns how many sub-analyzers agree with the given signal,
// used by §4.7's aiRequiredSignals gate.
func (p Prediction) CountAgreeing(signal model.SignalKind) int {
	subs := []SubResult{p.Pattern, p.Momentum, p.Volatility, p.Trend, p.PriceAction}
	count := 0
	for _, s := range subs {
		if s.Signal == signal {
			count++
		}
	}
	return count
}

func classifyRegimeAndRisk(candles []model.Candle) (MarketRegime, RiskLevel) {
	prices := indicator.Closes(candles)
	ratio := volatilityRatio(candles)

	risk := RiskLow
	switch {
	case ratio > 0.08:
		risk = RiskHigh
	case ratio > 0.04:
		risk = RiskMedium
	}

	if len(prices) < 21 {
		return RegimeRanging, risk
	}

	change20 := 0.0
	base := prices[len(prices)-21]
	if base != 0 {
		change20 = (prices[len(prices)-1] - base) / base * 100
	}

	switch {
	case ratio > 0.08:
		return RegimeVolatile, risk
	case change20 > 3:
		return RegimeTrendingUp, risk
	case change20 < -3:
		return RegimeTrendingDown, risk
	default:
		return RegimeRanging, risk
	}
}
