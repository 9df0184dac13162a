// Package metrics is a close structural adaptation of the donor's
// metrics/metrics.go: a custom prometheus registry with account-, symbol-
// and position-scoped gauges/counters, exposed from internal/api's
// /metrics route.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the custom prometheus registry for tradeforge metrics.
	Registry = prometheus.NewRegistry()

	mu sync.RWMutex

	// ============================================
	// Account metrics
	// ============================================

	AccountPnLTotal = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "account", Name: "pnl_total", Help: "Total realized P&L in USDT"},
	)

	AccountEquity = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "account", Name: "equity", Help: "Current equity in USDT"},
	)

	AccountDailyPnLPercent = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "account", Name: "daily_pnl_percent", Help: "Today's P&L as a percent of the day's starting balance"},
	)

	AccountConsecutiveLosses = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "account", Name: "consecutive_losses", Help: "Current consecutive-loss streak"},
	)

	// ============================================
	// Trade statistics
	// ============================================

	TradesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "tradeforge", Subsystem: "trade", Name: "total", Help: "Total number of closed trades"},
		[]string{"result"}, // "win", "loss", "breakeven"
	)

	WinRate = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "trade", Name: "win_rate", Help: "Win rate percentage over closed trades"},
	)

	ProfitFactor = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "trade", Name: "profit_factor", Help: "Gross profit divided by gross loss"},
	)

	// ============================================
	// Position metrics
	// ============================================

	PositionsOpenCount = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "position", Name: "open_count", Help: "Number of currently open positions"},
	)

	PositionUnrealizedPnL = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "position", Name: "unrealized_pnl", Help: "Unrealized P&L per position in USDT"},
		[]string{"symbol", "direction"},
	)

	PositionPnLPercent = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "position", Name: "pnl_percent", Help: "Unrealized P&L percentage per position"},
		[]string{"symbol", "direction"},
	)

	PositionHoldDuration = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "position", Name: "hold_duration_seconds", Help: "Duration a position has been held, in seconds"},
		[]string{"symbol", "direction"},
	)

	// ============================================
	// Signal / analyzer metrics
	// ============================================

	SignalStrength = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "signal", Name: "strength", Help: "Latest composite signal strength per symbol"},
		[]string{"symbol", "action"},
	)

	MarketConditionScore = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "market", Name: "condition_score", Help: "Latest market-condition score per symbol"},
		[]string{"symbol"},
	)

	// ============================================
	// System metrics
	// ============================================

	CycleDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tradeforge", Subsystem: "engine", Name: "cycle_duration_seconds",
			Help: "Engine tick duration in seconds", Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	EngineRunning = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{Namespace: "tradeforge", Subsystem: "engine", Name: "running", Help: "Whether the engine is running (1) or stopped (0)"},
	)

	ExchangeErrorsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{Namespace: "tradeforge", Subsystem: "exchange", Name: "errors_total", Help: "Total exchange-call errors"},
		[]string{"operation"},
	)
)

// UpdateAccountMetrics updates the account-scoped gauges.
func UpdateAccountMetrics(pnlTotal, equity, dailyPnLPercent float64, consecutiveLosses int) {
	mu.Lock()
	defer mu.Unlock()

	AccountPnLTotal.Set(pnlTotal)
	AccountEquity.Set(equity)
	AccountDailyPnLPercent.Set(dailyPnLPercent)
	AccountConsecutiveLosses.Set(float64(consecutiveLosses))
}

// RecordTrade increments the trade counter and refreshes win-rate/profit-factor.
func RecordTrade(result string, winRate, profitFactor float64) {
	TradesTotal.WithLabelValues(result).Inc()
	WinRate.Set(winRate)
	ProfitFactor.Set(profitFactor)
}

// UpdatePositionMetrics sets the per-position gauges.
func UpdatePositionMetrics(symbol, direction string, unrealizedPnL, pnlPercent, holdDurationSeconds float64) {
	mu.Lock()
	defer mu.Unlock()

	PositionUnrealizedPnL.WithLabelValues(symbol, direction).Set(unrealizedPnL)
	PositionPnLPercent.WithLabelValues(symbol, direction).Set(pnlPercent)
	PositionHoldDuration.WithLabelValues(symbol, direction).Set(holdDurationSeconds)
}

// ClearPositionMetrics removes a closed position's gauges.
func ClearPositionMetrics(symbol, direction string) {
	mu.Lock()
	defer mu.Unlock()

	PositionUnrealizedPnL.DeleteLabelValues(symbol, direction)
	PositionPnLPercent.DeleteLabelValues(symbol, direction)
	PositionHoldDuration.DeleteLabelValues(symbol, direction)
}

// RecordSignal records the latest composite signal strength for a symbol.
func RecordSignal(symbol, action string, strength float64) {
	SignalStrength.WithLabelValues(symbol, action).Set(strength)
}

// RecordMarketCondition records the latest market-condition score for a symbol.
func RecordMarketCondition(symbol string, score float64) {
	MarketConditionScore.WithLabelValues(symbol).Set(score)
}

// RecordCycleDuration records one engine tick's wall-clock duration.
func RecordCycleDuration(seconds float64) {
	CycleDuration.Observe(seconds)
}

// SetEngineRunning sets whether the engine loop is running.
func SetEngineRunning(running bool) {
	val := 0.0
	if running {
		val = 1.0
	}
	EngineRunning.Set(val)
}

// SetOpenPositionsCount sets the open-position gauge.
func SetOpenPositionsCount(count int) {
	PositionsOpenCount.Set(float64(count))
}

// RecordExchangeError increments the per-operation exchange error counter.
func RecordExchangeError(operation string) {
	ExchangeErrorsTotal.WithLabelValues(operation).Inc()
}

// Init registers the standard go/process collectors alongside the custom ones.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
