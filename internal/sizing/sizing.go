// Package sizing implements the Position Sizer: classical risk-based
// sizing and smart volatility/signal-strength-adjusted sizing (§4.11
// steps 2-4).
package sizing

// marginSafetyFactor is the factor-of-0.5 margin-safety cap from §4.11
// step 3.
const marginSafetyFactor = 0.5

// VolatilityLevel classifies ATR% for the smart-sizing risk scalar.
type VolatilityLevel string

const (
	VolatilityLow     VolatilityLevel = "low"
	VolatilityMedium  VolatilityLevel = "medium"
	VolatilityHigh    VolatilityLevel = "high"
	VolatilityExtreme VolatilityLevel = "extreme"
)

// ClassicalQuantity computes quantity = min(riskAmount/|entry-stop|,
// 0.5*(balance*leverage)/entry).
func ClassicalQuantity(balance, entry, stop float64, leverage int, riskPercent float64) float64 {
	if entry == stop {
		return 0
	}
	riskAmount := balance * riskPercent / 100
	byRisk := riskAmount / abs(entry-stop)
	byMargin := marginSafetyFactor * (balance * float64(leverage)) / entry
	if byRisk < byMargin {
		return byRisk
	}
	return byMargin
}

// SmartSizePercent computes the §4.11 step 4 risk-percent scaling and
// clamps into [minPositionPercent, maxPositionPercent].
func SmartSizePercent(maxRiskPerTrade float64, volatility VolatilityLevel, volatilityAdjustment bool, signalStrength float64, minPositionPercent, maxPositionPercent float64) float64 {
	sizePercent := maxRiskPerTrade

	if volatilityAdjustment {
		switch volatility {
		case VolatilityLow:
			sizePercent *= 1.2
		case VolatilityMedium:
			sizePercent *= 1.0
		case VolatilityHigh:
			sizePercent *= 0.7
		case VolatilityExtreme:
			sizePercent *= 0.4
		}
	}

	switch {
	case signalStrength >= 85:
		sizePercent *= 1.15
	case signalStrength < 60:
		sizePercent *= 0.7
	}

	if sizePercent < minPositionPercent {
		sizePercent = minPositionPercent
	}
	if sizePercent > maxPositionPercent {
		sizePercent = maxPositionPercent
	}
	return sizePercent
}

// SmartQuantity converts a sizePercent of equity into a quantity at entry,
// respecting the same margin-safety cap as classical sizing.
func SmartQuantity(balance, entry float64, leverage int, sizePercent float64) float64 {
	notional := balance * sizePercent / 100 * float64(leverage)
	byMargin := marginSafetyFactor * (balance * float64(leverage)) / entry
	qty := notional / entry
	if qty > byMargin {
		qty = byMargin
	}
	return qty
}

// RiskLevels derives a stop-loss/take-profit pair from maxRiskPerTrade% and
// riskRewardRatio (§4.11 step 1, classical sizing mode), shared by trade
// execution and by reconciliation's adoption of untracked exchange
// positions so both protect a position the same way.
func RiskLevels(short bool, entry, maxRiskPerTrade, riskRewardRatio float64) (stopLoss, takeProfit float64) {
	riskFraction := maxRiskPerTrade / 100
	if short {
		return entry * (1 + riskFraction), entry * (1 - riskFraction*riskRewardRatio)
	}
	return entry * (1 - riskFraction), entry * (1 + riskFraction*riskRewardRatio)
}

// ClassifyVolatility buckets an ATR-percent reading into a VolatilityLevel.
func ClassifyVolatility(atrPercent float64) VolatilityLevel {
	switch {
	case atrPercent < 2:
		return VolatilityLow
	case atrPercent < 4:
		return VolatilityMedium
	case atrPercent < 7:
		return VolatilityHigh
	default:
		return VolatilityExtreme
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
