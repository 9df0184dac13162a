package gate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradeforge/internal/gate"
)

func defaultParams() gate.Params {
	return gate.Params{
		MaxVolatilityPercent: 6, AvoidRangingMarket: true, TrendFilterEnabled: true,
		MinTrendStrength: 25, MaxDailyLossPercent: 5, MaxConcurrentTrades: 5,
		PauseAfterConsecutiveLosses: 3,
	}
}

// S3. Daily-loss protection.
func TestProtection_DailyLossBlocksTrading(t *testing.T) {
	pr := gate.NewProtection(10000)
	pr.RecordTradeResult(-300)
	pr.RecordTradeResult(-300)

	status := pr.ShouldTrade(context.Background(), 0, defaultParams())
	assert.False(t, status.CanTrade)
	assert.InDelta(t, -6.0, status.DailyPnLPercent, 1e-9)
	found := false
	for _, r := range status.Reasons {
		if r == "daily loss limit exceeded" {
			found = true
		}
	}
	assert.True(t, found)
}

// S4. Consecutive-loss pause.
func TestProtection_ConsecutiveLossPauseAndReset(t *testing.T) {
	pr := gate.NewProtection(10000)
	pr.RecordTradeResult(-10)
	pr.RecordTradeResult(-10)
	pr.RecordTradeResult(-10)

	blocked := pr.ShouldTrade(context.Background(), 0, defaultParams())
	assert.False(t, blocked.CanTrade)

	pr.RecordTradeResult(50)
	allowed := pr.ShouldTrade(context.Background(), 0, defaultParams())
	assert.True(t, allowed.CanTrade)
	assert.Equal(t, 0, allowed.ConsecutiveLosses)
}

func TestProtection_ConcurrentTradeCap(t *testing.T) {
	pr := gate.NewProtection(10000)
	status := pr.ShouldTrade(context.Background(), 5, defaultParams())
	assert.False(t, status.CanTrade)
}

func TestShouldTrade_MarketFilterDisabledIgnoresScore(t *testing.T) {
	market := gate.MarketAnalysis{Recommendation: gate.RecommendAvoid}
	account := gate.AccountStatus{CanTrade: true}
	decision := gate.ShouldTrade(false, market, account)
	assert.True(t, decision.Allowed)
}
