package indicator_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

func synthCandles(closes []float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	t := time.Now()
	for i, c := range closes {
		out[i] = model.Candle{
			OpenTime: t.Add(time.Duration(i) * time.Hour),
			Open:     c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 100,
		}
	}
	return out
}

func TestRSI_InsufficientSamplesReturnsNeutral(t *testing.T) {
	prices := []float64{100, 101, 102}
	assert.Equal(t, 50.0, indicator.RSI(prices, 14))
}

func TestRSI_Deterministic(t *testing.T) {
	prices := make([]float64, 0, 30)
	base := 100.0
	for i := 0; i < 30; i++ {
		if i%2 == 0 {
			base += 1
		} else {
			base -= 0.5
		}
		prices = append(prices, base)
	}
	a := indicator.RSI(prices, 14)
	b := indicator.RSI(prices, 14)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0.0)
	assert.LessOrEqual(t, a, 100.0)
}

func TestEMA_SeededBySMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	sma3 := indicator.SMA(prices[:3], 3)
	series := indicator.EMASeries(prices, 3)
	assert.Equal(t, sma3, series[0])
}

func TestBollinger_PercentBExactFormula(t *testing.T) {
	prices := []float64{10, 12, 11, 13, 12, 14, 13, 15, 14, 16}
	res := indicator.BollingerBands(prices, 10, 2)
	want := (prices[len(prices)-1] - res.Lower) / (res.Upper - res.Lower)
	assert.InDelta(t, want, res.PercentB, 1e-9)
}

func TestATR_Deterministic(t *testing.T) {
	candles := synthCandles([]float64{100, 101, 99, 102, 98, 103, 97, 104, 96, 105, 95, 106, 94, 107, 93})
	a := indicator.ATR(candles, 14)
	b := indicator.ATR(candles, 14)
	assert.Equal(t, a, b)
	assert.Greater(t, a, 0.0)
}

func TestSupportResistance_KeepsAtMostFivePerSide(t *testing.T) {
	candles := synthCandles([]float64{
		100, 105, 100, 95, 100, 107, 100, 93, 100, 109,
		100, 91, 100, 111, 100, 89, 100, 113, 100, 87,
		100, 115, 100,
	})
	pivots := indicator.SupportResistance(candles)
	assert.LessOrEqual(t, len(pivots.Resistance), 5)
	assert.LessOrEqual(t, len(pivots.Support), 5)
}

func TestMomentumAndROC(t *testing.T) {
	prices := []float64{100, 101, 102, 103, 106}
	assert.Equal(t, 6.0, indicator.Momentum(prices, 4))
	assert.InDelta(t, 6.0, indicator.ROC(prices, 4), 1e-9)
}
