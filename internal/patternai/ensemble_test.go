package patternai_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradeforge/internal/model"
	"tradeforge/internal/patternai"
)

func synthUptrend(n int) []model.Candle {
	out := make([]model.Candle, n)
	price := 100.0
	t := time.Now()
	for i := 0; i < n; i++ {
		price *= 1.004
		out[i] = model.Candle{OpenTime: t.Add(time.Duration(i) * time.Hour), Open: price * 0.998, High: price * 1.006, Low: price * 0.995, Close: price, Volume: 1000}
	}
	return out
}

func TestAnalyze_TrendingUpRegimeOnSustainedRise(t *testing.T) {
	candles := synthUptrend(60)
	pred := patternai.Analyze(candles)
	assert.Contains(t, []model.SignalKind{model.SignalBuy, model.SignalHold}, pred.Signal)
	assert.GreaterOrEqual(t, pred.Confidence, 0.0)
}

func TestAnalyze_CountAgreeingNeverExceedsFive(t *testing.T) {
	candles := synthUptrend(60)
	pred := patternai.Analyze(candles)
	assert.LessOrEqual(t, pred.CountAgreeing(model.SignalBuy), 5)
}
