package indicator

import "tradeforge/internal/model"

// PivotSet holds up to five clustered resistance (pivot highs) and support
// (pivot lows) levels detected with 5-bar confirmation.
type PivotSet struct {
	Resistance []float64
	Support    []float64
}

const pivotConfirmBars = 5
const pivotClusterTolerance = 0.005 // 0.5%

// SupportResistance detects pivot highs/lows confirmed by pivotConfirmBars
// bars on either side, clusters levels within 0.5% tolerance, and keeps up
// to 5 of each, nearest-first.
func SupportResistance(candles []model.Candle) PivotSet {
	var highs, lows []float64
	n := len(candles)

	for i := pivotConfirmBars; i < n-pivotConfirmBars; i++ {
		isHigh, isLow := true, true
		for j := i - pivotConfirmBars; j <= i+pivotConfirmBars; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}

	lastPrice := 0.0
	if n > 0 {
		lastPrice = candles[n-1].Close
	}

	return PivotSet{
		Resistance: clusterAndTrim(highs, lastPrice, 5),
		Support:    clusterAndTrim(lows, lastPrice, 5),
	}
}

// clusterAndTrim merges levels within pivotClusterTolerance of each other
// and returns up to limit levels nearest to the reference price.
func clusterAndTrim(levels []float64, reference float64, limit int) []float64 {
	if len(levels) == 0 {
		return nil
	}

	clustered := make([]float64, 0, len(levels))
	for _, lvl := range levels {
		merged := false
		for i, c := range clustered {
			if c == 0 {
				continue
			}
			if abs(lvl-c)/c <= pivotClusterTolerance {
				clustered[i] = (c + lvl) / 2
				merged = true
				break
			}
		}
		if !merged {
			clustered = append(clustered, lvl)
		}
	}

	// simple insertion sort by distance to reference price
	for i := 1; i < len(clustered); i++ {
		for j := i; j > 0 && abs(clustered[j]-reference) < abs(clustered[j-1]-reference); j-- {
			clustered[j], clustered[j-1] = clustered[j-1], clustered[j]
		}
	}

	if len(clustered) > limit {
		clustered = clustered[:limit]
	}
	return clustered
}
