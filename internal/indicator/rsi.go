package indicator

// RSI computes the Wilder-smoothed Relative Strength Index over period p.
// Per §4.3, fewer than p+1 samples returns the neutral value 50.
func RSI(prices []float64, p int) float64 {
	if p <= 0 || len(prices) < p+1 {
		return 50
	}

	var gainSum, lossSum float64
	for i := 1; i <= p; i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(p)
	avgLoss := lossSum / float64(p)

	for i := p + 1; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(p-1) + gain) / float64(p)
		avgLoss = (avgLoss*float64(p-1) + loss) / float64(p)
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
