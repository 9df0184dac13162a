package indicator

import "tradeforge/internal/model"

// StochasticResult is %K and %D, the raw and smoothed oscillator values.
type StochasticResult struct {
	K float64
	D float64
}

// Stochastic computes the %K (over kP bars) and %D (dP-period SMA of %K)
// oscillator values on high/low/close.
func Stochastic(candles []model.Candle, kP, dP int) StochasticResult {
	if kP <= 0 || len(candles) < kP {
		return StochasticResult{}
	}

	kValues := make([]float64, 0, len(candles)-kP+1)
	for end := kP; end <= len(candles); end++ {
		window := candles[end-kP : end]
		highest, lowest := window[0].High, window[0].Low
		for _, c := range window {
			if c.High > highest {
				highest = c.High
			}
			if c.Low < lowest {
				lowest = c.Low
			}
		}
		close := window[len(window)-1].Close
		k := 50.0
		if highest != lowest {
			k = (close - lowest) / (highest - lowest) * 100
		}
		kValues = append(kValues, k)
	}

	latestK := kValues[len(kValues)-1]
	d := SMA(kValues, dP)
	if d == 0 && len(kValues) < dP {
		d = latestK
	}
	return StochasticResult{K: latestK, D: d}
}
