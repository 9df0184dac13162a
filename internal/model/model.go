// Package model holds the entities of the trading engine's data model:
// Settings, Trade, Signal, ActivityLog, MarketSnapshot and EngineState.
package model

import "time"

// Side is the direction of a trade or order.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// SignalKind is a buy/sell/hold classification shared by every analyzer.
type SignalKind string

const (
	SignalBuy  SignalKind = "buy"
	SignalSell SignalKind = "sell"
	SignalHold SignalKind = "hold"
)

// TradeStatus is the lifecycle state of a Trade row.
type TradeStatus string

const (
	TradeStatusActive    TradeStatus = "active"
	TradeStatusClosed    TradeStatus = "closed"
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusCancelled TradeStatus = "cancelled"
)

// PositionSide is the hedging-mode position label attached to orders.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
	PositionSideBoth  PositionSide = "BOTH"
)

// StrategyName enumerates the Strategy Bank's six named strategies.
type StrategyName string

const (
	StrategyBreakout      StrategyName = "breakout"
	StrategyScalping      StrategyName = "scalping"
	StrategyMomentum      StrategyName = "momentum"
	StrategyMeanReversion StrategyName = "meanReversion"
	StrategySwing         StrategyName = "swing"
	StrategyGrid          StrategyName = "gridTrading"
)

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Settings is the single mutable configuration record driving the engine.
// Numeric bounds are enforced by Validate (see settings.go).
type Settings struct {
	ExchangeName string // "binance" | "bybit"
	Testnet      bool

	APIKeyEncrypted    []byte
	APISecretEncrypted []byte

	Pairs []string

	AutoTradingEnabled        bool
	AITradingEnabled          bool
	AdvancedStrategiesEnabled bool
	TrailingStopEnabled       bool
	SmartSizingEnabled        bool
	MarketFilterEnabled       bool
	AccountProtectionEnabled  bool
	MultiTimeframeEnabled     bool
	RequireStrategyConsensus  bool
	AvoidRangingMarket        bool
	TrendFilterEnabled        bool
	VolatilityAdjustment      bool
	DiversificationEnabled    bool

	EnabledStrategies []StrategyName
	Timeframes        []string

	MaShortPeriod int
	MaLongPeriod  int
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	ATRPeriod     int
	ATRMultiplier float64
	SwingPeriod   int

	MaxRiskPerTrade   float64 // percent of equity
	RiskRewardRatio   float64
	MaxPositionPercent float64
	MinPositionPercent float64

	AIMinConfidence      float64
	AIMinSignalStrength  float64
	AIRequiredSignals    int

	StrategyMinConfidence float64
	StrategyMinStrength   float64
	VolumeMultiplier      float64

	MaxVolatilityPercent float64
	MinTrendStrength     float64

	MaxDailyLossPercent         float64
	MaxConcurrentTrades         int
	PauseAfterConsecutiveLosses int
	MaxDailyTrades              int
	TradeCooldownMinutes        int

	TrailingStopPercent           float64
	TrailingStopActivationPercent float64

	MinSignalStrength float64
}

// Trade is the persisted unit of a single engine- or operator-managed
// position, opened with a bracket order and closed by the engine, the
// operator or reconciliation.
type Trade struct {
	ID          string
	Symbol      string
	Direction   Side
	Status      TradeStatus
	EntryPrice  float64
	ExitPrice   *float64
	Quantity    float64
	Leverage    int
	StopLoss    float64
	TakeProfit  float64
	Profit      float64
	ProfitPct   float64
	EntryTime   time.Time
	ExitTime    *time.Time
	EntrySignals []string

	ExchangeOrderID string

	TrailingStopActive bool
	TrailingStopPrice  *float64
	// HighestProfitSeen stores the highest profit *percent* ever observed
	// since trailing-stop activation. The donor field was named
	// highestPrice even though it holds a percent; kept under its renamed
	// identity here with the >50 legacy-price heuristic applied on read.
	HighestProfitSeen float64

	IsAutoTrade bool
}

// IsOpen reports whether exit fields are unset, per invariant 1.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusActive
}

// Signal is an immutable, append-only audit row written on analyzer
// decisions.
type Signal struct {
	ID        string
	Symbol    string
	Type      SignalKind
	Indicator string
	Value     float64
	Strength  float64
	Timestamp time.Time
}

// LogLevel classifies an ActivityLog row.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// ActivityLog is an append-only, chronological engine event record.
type ActivityLog struct {
	ID        string
	Level     LogLevel
	Message   string
	Details   string
	Source    string // "engine" | "operator" | "reconcile" | "trailing"
	Timestamp time.Time
}

// MarketSnapshot is an opaque, overwritten per-symbol price cache.
type MarketSnapshot struct {
	Symbol       string
	LastPrice    float64
	High24h      float64
	Low24h       float64
	Volume24h    float64
	ChangePct24h float64
	Timestamp    time.Time
}

// EngineState is in-memory, process-lifetime scheduler state held by the
// engine and changed under its lock, by the tick loop and by the engine's
// operator-initiated calls. Every consumer outside the engine receives a
// copy via Snapshot.
type EngineState struct {
	Running bool

	LastTradeTime map[string]time.Time // cooldowns, keyed by symbol
	DayAnchor     time.Time
	DailyTradeCount int
	ConsecutiveLosses int
	DailyPnL          float64

	HedgingModeCached    bool
	HedgingModeCacheTime time.Time
}

// NewEngineState returns a zero-value EngineState ready for use.
func NewEngineState() *EngineState {
	return &EngineState{LastTradeTime: make(map[string]time.Time)}
}

// Snapshot returns a deep copy of the state, safe to hand to analyzers and
// gates, which must never mutate engine-owned state directly.
func (s *EngineState) Snapshot() EngineState {
	cp := *s
	cp.LastTradeTime = make(map[string]time.Time, len(s.LastTradeTime))
	for k, v := range s.LastTradeTime {
		cp.LastTradeTime[k] = v
	}
	return cp
}

// AccountInfo is the exchange's reported account balance/margin snapshot.
type AccountInfo struct {
	Balance          float64
	AvailableBalance float64
}

// ExchangePosition is a single non-zero position reported by the exchange.
type ExchangePosition struct {
	Symbol           string
	PositionSide     PositionSide
	Quantity         float64
	EntryPrice       float64
	MarkPrice        float64
	UnrealizedPnL    float64
	UnrealizedPnLPct float64
	Leverage         int
}
