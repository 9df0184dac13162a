package strategy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradeforge/internal/model"
	"tradeforge/internal/strategy"
)

func defaultParams() strategy.Params {
	return strategy.Params{ATRPeriod: 14, ATRMultiplier: 2, RiskRewardRatio: 2, VolumeMultiplier: 1.5, SwingPeriod: 10, RSIOverbought: 70, RSIOversold: 30}
}

func flatCandles(n int) []model.Candle {
	out := make([]model.Candle, n)
	t := time.Now()
	for i := 0; i < n; i++ {
		out[i] = model.Candle{OpenTime: t.Add(time.Duration(i) * time.Hour), Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 100}
	}
	return out
}

func TestAnalyze_NoConsensusOnFlatMarket(t *testing.T) {
	candles := flatCandles(60)
	enabled := []model.StrategyName{model.StrategyBreakout, model.StrategyMomentum, model.StrategySwing}
	res := strategy.Analyze(candles, enabled, defaultParams())
	assert.False(t, res.Consensus)
}

func TestAnalyze_EmptyEnabledYieldsNoSignals(t *testing.T) {
	candles := flatCandles(60)
	res := strategy.Analyze(candles, nil, defaultParams())
	assert.Empty(t, res.Signals)
	assert.Nil(t, res.Best)
}
