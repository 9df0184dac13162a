package classical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tradeforge/internal/classical"
)

func defaultParams() classical.Params {
	return classical.Params{
		RSIPeriod: 14, RSIOverbought: 70, RSIOversold: 30,
		MACDFast: 12, MACDSlow: 26, MACDSignal: 9,
		MAShortPeriod: 10, MALongPeriod: 50,
	}
}

func TestAnalyze_HoldOnFlatPrices(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100
	}
	res := classical.Analyze(prices, defaultParams())
	assert.Equal(t, "hold", string(res.OverallSignal))
}

func TestAnalyze_OneOfThreeSuffices(t *testing.T) {
	// Strongly declining prices should push RSI toward oversold (buy
	// confirmation candidate) even without a resolved MACD/MA crossover.
	prices := make([]float64, 60)
	v := 200.0
	for i := range prices {
		prices[i] = v
		v -= 2
	}
	res := classical.Analyze(prices, defaultParams())
	assert.NotEmpty(t, res.ConfirmedSignals)
}
