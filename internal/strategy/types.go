// Package strategy implements the Strategy Bank (§4.6): six named
// strategies plus a consensus combiner.
package strategy

import "tradeforge/internal/model"

// Levels is the entry/stop/target triple a strategy proposes when its
// signal is actionable.
type Levels struct {
	Entry      float64
	StopLoss   float64
	TakeProfit float64
}

// Signal is a single strategy's verdict.
type Signal struct {
	Strategy   model.StrategyName
	Signal     model.SignalKind
	Strength   float64
	Confidence float64
	Reason     string
	Levels     *Levels
}

// Params carries the subset of Settings every strategy consumes.
type Params struct {
	ATRPeriod        int
	ATRMultiplier    float64
	RiskRewardRatio  float64
	VolumeMultiplier float64
	SwingPeriod      int
	RSIOverbought    float64
	RSIOversold      float64
}

// Result is the full Analyze output: every signal, the best actionable
// one, and the consensus verdict.
type Result struct {
	Signals           []Signal
	Best              *Signal
	Consensus         bool
	ConsensusStrength float64
	ConsensusSide     model.SignalKind
}

const consensusMinAgreeing = 2
const bestMinConfidence = 50
