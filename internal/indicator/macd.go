package indicator

// MACDResult is the standard MACD line / signal line / histogram triple.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal line
// (EMA of the MACD line), and the histogram, as a single latest snapshot.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	series := MACDSeries(prices, fast, slow, signal)
	if len(series) == 0 {
		return MACDResult{}
	}
	return series[len(series)-1]
}

// MACDSeries returns the full MACD series, needed by the classical analyzer
// to compare the current bar against the previous one for crossovers.
func MACDSeries(prices []float64, fast, slow, signal int) []MACDResult {
	if slow <= 0 || len(prices) < slow {
		return nil
	}
	fastSeries := EMASeries(prices, fast)
	slowSeries := EMASeries(prices, slow)
	if len(fastSeries) == 0 || len(slowSeries) == 0 {
		return nil
	}

	// Align: fastSeries starts at index fast-1, slowSeries at slow-1 (both
	// relative to prices). Truncate the fast series to the slow series'
	// start so both cover the same trailing window.
	offset := (slow - 1) - (fast - 1)
	if offset < 0 || offset >= len(fastSeries) {
		return nil
	}
	fastAligned := fastSeries[offset:]
	n := len(slowSeries)
	if len(fastAligned) < n {
		n = len(fastAligned)
	}

	macdLine := make([]float64, n)
	for i := 0; i < n; i++ {
		macdLine[i] = fastAligned[i] - slowSeries[i]
	}

	signalSeries := EMASeries(macdLine, signal)
	if len(signalSeries) == 0 {
		return nil
	}
	sigOffset := len(macdLine) - len(signalSeries)

	out := make([]MACDResult, len(signalSeries))
	for i := range signalSeries {
		m := macdLine[sigOffset+i]
		out[i] = MACDResult{MACD: m, Signal: signalSeries[i], Histogram: m - signalSeries[i]}
	}
	return out
}
