// Package classical implements the Classical Analyzer (§4.4): RSI + MACD +
// MA-cross combined under a relaxed "1-of-3" confirmation rule.
package classical

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

// Result is the combined classical verdict.
type Result struct {
	OverallSignal    model.SignalKind
	SignalStrength   float64
	ConfirmedSignals []string
}

// Params carries the subset of Settings the classical analyzer consumes.
type Params struct {
	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	MAShortPeriod int
	MALongPeriod  int
}

type subSignal struct {
	name     string
	signal   model.SignalKind
	strength float64
}

// Analyze combines RSI, MACD and MA-cross signals into a single verdict.
// A single confirming indicator suffices — the deliberate 1-of-3 relaxation
// of the classical 2-of-3 rule (§9 Open Question a, taken as authoritative).
func Analyze(prices []float64, p Params) Result {
	signals := []subSignal{
		rsiSignal(prices, p),
		macdSignal(prices, p),
		maCrossSignal(prices, p),
	}

	var confirmed []subSignal
	for _, s := range signals {
		if s.signal != model.SignalHold {
			confirmed = append(confirmed, s)
		}
	}

	if len(confirmed) == 0 {
		return Result{OverallSignal: model.SignalHold}
	}

	buyCount, sellCount := 0, 0
	var avgStrength float64
	for _, s := range confirmed {
		avgStrength += s.strength
		if s.signal == model.SignalBuy {
			buyCount++
		} else {
			sellCount++
		}
	}
	avgStrength /= float64(len(confirmed))

	overall := model.SignalBuy
	if sellCount > buyCount {
		overall = model.SignalSell
	} else if sellCount == buyCount && buyCount > 0 {
		// tie: favor the strongest single confirmation's direction.
		best := confirmed[0]
		for _, s := range confirmed[1:] {
			if s.strength > best.strength {
				best = s
			}
		}
		overall = best.signal
	}

	strength := (float64(len(confirmed))/3.0)*100 + avgStrength*0.5
	if strength > 100 {
		strength = 100
	}

	names := make([]string, 0, len(confirmed))
	for _, s := range confirmed {
		names = append(names, s.name)
	}

	return Result{OverallSignal: overall, SignalStrength: strength, ConfirmedSignals: names}
}

func rsiSignal(prices []float64, p Params) subSignal {
	rsi := indicator.RSI(prices, p.RSIPeriod)
	switch {
	case rsi <= p.RSIOversold:
		strength := (p.RSIOversold - rsi) / p.RSIOversold * 100
		return subSignal{"rsi", model.SignalBuy, clamp(strength)}
	case rsi >= p.RSIOverbought:
		strength := (rsi - p.RSIOverbought) / (100 - p.RSIOverbought) * 100
		return subSignal{"rsi", model.SignalSell, clamp(strength)}
	default:
		return subSignal{"rsi", model.SignalHold, 0}
	}
}

func macdSignal(prices []float64, p Params) subSignal {
	series := indicator.MACDSeries(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if len(series) < 2 {
		return subSignal{"macd", model.SignalHold, 0}
	}
	curr, prev := series[len(series)-1], series[len(series)-2]

	crossedUp := prev.MACD <= prev.Signal && curr.MACD > curr.Signal
	crossedDown := prev.MACD >= prev.Signal && curr.MACD < curr.Signal

	strength := clamp(abs(curr.Histogram) * 20)
	switch {
	case crossedUp:
		return subSignal{"macd", model.SignalBuy, strength}
	case crossedDown:
		return subSignal{"macd", model.SignalSell, strength}
	default:
		return subSignal{"macd", model.SignalHold, 0}
	}
}

func maCrossSignal(prices []float64, p Params) subSignal {
	shortSeries := indicator.EMASeries(prices, p.MAShortPeriod)
	longSeries := indicator.EMASeries(prices, p.MALongPeriod)
	if len(shortSeries) < 2 || len(longSeries) < 2 {
		return subSignal{"ma_cross", model.SignalHold, 0}
	}

	offset := len(shortSeries) - len(longSeries)
	if offset < 0 {
		return subSignal{"ma_cross", model.SignalHold, 0}
	}
	shortCurr, shortPrev := shortSeries[len(shortSeries)-1], shortSeries[len(shortSeries)-2]
	longCurr, longPrev := longSeries[len(longSeries)-1], longSeries[len(longSeries)-2]

	crossedUp := shortPrev <= longPrev && shortCurr > longCurr
	crossedDown := shortPrev >= longPrev && shortCurr < longCurr

	spread := 0.0
	if longCurr != 0 {
		spread = abs(shortCurr-longCurr) / longCurr * 100
	}
	strength := clamp(spread * 10)

	switch {
	case crossedUp:
		return subSignal{"ma_cross", model.SignalBuy, strength}
	case crossedDown:
		return subSignal{"ma_cross", model.SignalSell, strength}
	default:
		return subSignal{"ma_cross", model.SignalHold, 0}
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
