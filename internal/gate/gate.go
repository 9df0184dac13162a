// Package gate implements the Market & Account Gate (§4.8): a per-symbol
// market-condition score and a global account-protection state machine.
package gate

import (
	"context"

	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

// Condition classifies a symbol's market backdrop.
type Condition string

const (
	ConditionTrendingUp Condition = "trending_up"
	ConditionTrendingDown Condition = "trending_down"
	ConditionRanging    Condition = "ranging"
	ConditionVolatile   Condition = "volatile"
	ConditionUnknown    Condition = "unknown"
)

// Recommendation is the market-score-derived verdict.
type Recommendation string

const (
	RecommendTrade   Recommendation = "trade"
	RecommendCaution Recommendation = "caution"
	RecommendAvoid   Recommendation = "avoid"
)

// MarketAnalysis is analyzeMarketCondition's output.
type MarketAnalysis struct {
	ATRPercent      float64
	TrendStrength   float64
	Condition       Condition
	Score           float64
	Recommendation  Recommendation
}

// Params carries the subset of Settings the gate consumes.
type Params struct {
	MaxVolatilityPercent        float64
	AvoidRangingMarket          bool
	TrendFilterEnabled          bool
	MinTrendStrength            float64
	MaxDailyLossPercent         float64
	MaxConcurrentTrades         int
	PauseAfterConsecutiveLosses int
}

// AnalyzeMarketCondition computes ATR%, a trend-strength composite, and a
// 0-100 score that is penalized for extreme volatility, excess ATR%,
// unwanted ranging, and weak trend.
func AnalyzeMarketCondition(candles []model.Candle, p Params) MarketAnalysis {
	prices := indicator.Closes(candles)
	if len(prices) < 21 {
		return MarketAnalysis{Condition: ConditionUnknown, Score: 50, Recommendation: RecommendCaution}
	}

	price := prices[len(prices)-1]
	atr := indicator.ATR(candles, 14)
	atrPercent := 0.0
	if price != 0 {
		atrPercent = atr / price * 100
	}

	sma20 := indicator.SMA(prices, 20)
	sma50 := 0.0
	if len(prices) >= 50 {
		sma50 = indicator.SMA(prices, 50)
	}

	priceVsSMA20 := 0.0
	if sma20 != 0 {
		priceVsSMA20 = (price - sma20) / sma20 * 100
	}
	sma20VsSMA50 := 0.0
	if sma50 != 0 {
		sma20VsSMA50 = (sma20 - sma50) / sma50 * 100
	}

	higherHighs, lowerLows := countHigherHighsLowerLows(candles, 10)
	trendStrength := abs(priceVsSMA20) + abs(sma20VsSMA50) + float64(higherHighs+lowerLows)*2

	condition := classifyCondition(priceVsSMA20, sma20VsSMA50, atrPercent, trendStrength)

	score := 100.0
	extremeVolatility := atrPercent > p.MaxVolatilityPercent*1.5
	if extremeVolatility {
		score -= 40
	}
	if atrPercent > p.MaxVolatilityPercent {
		score -= 30
	}
	if condition == ConditionRanging && p.AvoidRangingMarket {
		score -= 25
	}
	if trendStrength < p.MinTrendStrength && p.TrendFilterEnabled {
		score -= 20
	}
	if score < 0 {
		score = 0
	}

	rec := RecommendAvoid
	switch {
	case score >= 70:
		rec = RecommendTrade
	case score >= 40:
		rec = RecommendCaution
	}

	return MarketAnalysis{ATRPercent: atrPercent, TrendStrength: trendStrength, Condition: condition, Score: score, Recommendation: rec}
}

func classifyCondition(priceVsSMA20, sma20VsSMA50, atrPercent, trendStrength float64) Condition {
	if atrPercent > 6 {
		return ConditionVolatile
	}
	if priceVsSMA20 > 1 && sma20VsSMA50 > 0 {
		return ConditionTrendingUp
	}
	if priceVsSMA20 < -1 && sma20VsSMA50 < 0 {
		return ConditionTrendingDown
	}
	return ConditionRanging
}

func countHigherHighsLowerLows(candles []model.Candle, lookback int) (int, int) {
	n := len(candles)
	if n < lookback+1 {
		return 0, 0
	}
	higherHighs, lowerLows := 0, 0
	window := candles[n-lookback:]
	for i := 1; i < len(window); i++ {
		if window[i].High > window[i-1].High && i >= 2 && window[i-1].High > window[i-2].High {
			higherHighs++
		}
		if window[i].Low < window[i-1].Low && i >= 2 && window[i-1].Low < window[i-2].Low {
			lowerLows++
		}
	}
	return higherHighs, lowerLows
}

// AccountStatus is the account-protection verdict.
type AccountStatus struct {
	CanTrade          bool
	Reasons           []string
	DailyPnLPercent   float64
	ConsecutiveLosses int
	ActiveTrades      int
}

// Protection tracks the account-protection counters. It is engine-owned
// state, mirroring EngineState's daily/consecutive-loss fields, and is
// reset at local-date rollover by the caller (the engine tick).
type Protection struct {
	dailyPnL          float64
	startingBalance   float64
	consecutiveLosses int
}

// NewProtection seeds the protection state with the day's starting
// balance, used to compute dailyPnL%.
func NewProtection(startingBalance float64) *Protection {
	return &Protection{startingBalance: startingBalance}
}

// RecordTradeResult is called exactly once per trade close: it increments
// consecutiveLosses on a loss or resets it on a win, and accumulates daily
// PnL.
func (pr *Protection) RecordTradeResult(profit float64) {
	pr.dailyPnL += profit
	if profit < 0 {
		pr.consecutiveLosses++
	} else {
		pr.consecutiveLosses = 0
	}
}

// ResetDaily clears the daily counters at local-date rollover.
func (pr *Protection) ResetDaily(startingBalance float64) {
	pr.dailyPnL = 0
	pr.startingBalance = startingBalance
}

// ShouldTrade evaluates account-protection blocks: daily loss%, consecutive
// losses, and concurrent-trade cap.
func (pr *Protection) ShouldTrade(ctx context.Context, activeTrades int, p Params) AccountStatus {
	dailyPnLPercent := 0.0
	if pr.startingBalance != 0 {
		dailyPnLPercent = pr.dailyPnL / pr.startingBalance * 100
	}

	status := AccountStatus{
		CanTrade: true, DailyPnLPercent: dailyPnLPercent,
		ConsecutiveLosses: pr.consecutiveLosses, ActiveTrades: activeTrades,
	}

	if dailyPnLPercent < -p.MaxDailyLossPercent {
		status.CanTrade = false
		status.Reasons = append(status.Reasons, "daily loss limit exceeded")
	}
	if pr.consecutiveLosses >= p.PauseAfterConsecutiveLosses {
		status.CanTrade = false
		status.Reasons = append(status.Reasons, "consecutive loss pause active")
	}
	if activeTrades >= p.MaxConcurrentTrades {
		status.CanTrade = false
		status.Reasons = append(status.Reasons, "concurrent trade cap reached")
	}

	return status
}

// Decision is shouldTrade(symbol)'s combined verdict.
type Decision struct {
	Allowed  bool
	Market   MarketAnalysis
	Account  AccountStatus
	Reasons  []string
}

// ShouldTrade combines the market-filter and account-protection verdicts:
// allowed iff (market-filter off OR recommendation != avoid) AND
// accountStatus.canTrade.
func ShouldTrade(marketFilterEnabled bool, market MarketAnalysis, account AccountStatus) Decision {
	marketOK := !marketFilterEnabled || market.Recommendation != RecommendAvoid
	allowed := marketOK && account.CanTrade

	var reasons []string
	if !marketOK {
		reasons = append(reasons, "market condition: "+string(market.Recommendation))
	}
	reasons = append(reasons, account.Reasons...)

	return Decision{Allowed: allowed, Market: market, Account: account, Reasons: reasons}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
