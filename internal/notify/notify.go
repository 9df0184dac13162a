// Package notify defines the engine's notification-hook contract and a
// logging sink, generalized from the donor's StateListener pattern
// (OnStateChanged/OnTradeCompleted) into the lifecycle events the trade
// engine actually raises.
package notify

import (
	"github.com/rs/zerolog"

	"tradeforge/internal/model"
)

// Hooks is the set of lifecycle events engine components raise. Multiple
// sinks can be fanned out to via Multi.
type Hooks interface {
	OnTradeOpen(trade model.Trade)
	OnTradeClose(trade model.Trade)
	OnSignal(symbol string, action string, strength float64)
	OnTrailingUpdate(trade model.Trade, newStop float64)
}

// LoggingSink implements Hooks by writing a structured log line per event.
// It is always registered; additional sinks (webhook, websocket push) are
// layered on top via Multi.
type LoggingSink struct {
	logger zerolog.Logger
}

func NewLoggingSink(logger zerolog.Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

func (s *LoggingSink) OnTradeOpen(trade model.Trade) {
	s.logger.Info().Str("trade_id", trade.ID).Str("symbol", trade.Symbol).
		Str("direction", string(trade.Direction)).Float64("entry", trade.EntryPrice).
		Msg("trade opened")
}

func (s *LoggingSink) OnTradeClose(trade model.Trade) {
	s.logger.Info().Str("trade_id", trade.ID).Str("symbol", trade.Symbol).
		Float64("profit", trade.Profit).Float64("profit_pct", trade.ProfitPct).
		Msg("trade closed")
}

func (s *LoggingSink) OnSignal(symbol, action string, strength float64) {
	s.logger.Debug().Str("symbol", symbol).Str("action", action).Float64("strength", strength).
		Msg("signal generated")
}

func (s *LoggingSink) OnTrailingUpdate(trade model.Trade, newStop float64) {
	s.logger.Info().Str("trade_id", trade.ID).Str("symbol", trade.Symbol).
		Float64("new_stop", newStop).Msg("trailing stop ratcheted")
}

// Multi fans a single event out to every registered sink. A panicking or
// slow sink is the caller's concern; Multi does not isolate sinks from
// each other.
type Multi struct {
	sinks []Hooks
}

func NewMulti(sinks ...Hooks) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) OnTradeOpen(trade model.Trade) {
	for _, s := range m.sinks {
		s.OnTradeOpen(trade)
	}
}

func (m *Multi) OnTradeClose(trade model.Trade) {
	for _, s := range m.sinks {
		s.OnTradeClose(trade)
	}
}

func (m *Multi) OnSignal(symbol, action string, strength float64) {
	for _, s := range m.sinks {
		s.OnSignal(symbol, action, strength)
	}
}

func (m *Multi) OnTrailingUpdate(trade model.Trade, newStop float64) {
	for _, s := range m.sinks {
		s.OnTrailingUpdate(trade, newStop)
	}
}
