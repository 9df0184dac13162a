package patternai

import (
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
)

// analyzeTrend is a four-way vote: price vs SMA10, price vs SMA20, and
// SMA10 vs SMA50, SMA20 vs SMA50.
func analyzeTrend(candles []model.Candle) SubResult {
	prices := indicator.Closes(candles)
	if len(prices) < 50 {
		return SubResult{Signal: model.SignalHold, Description: "insufficient data"}
	}

	price := prices[len(prices)-1]
	sma10 := indicator.SMA(prices, 10)
	sma20 := indicator.SMA(prices, 20)
	sma50 := indicator.SMA(prices, 50)

	bullVotes, bearVotes := 0, 0
	vote := func(cond bool, antiCond bool) {
		if cond {
			bullVotes++
		} else if antiCond {
			bearVotes++
		}
	}
	vote(price > sma10, price < sma10)
	vote(price > sma20, price < sma20)
	vote(sma10 > sma50, sma10 < sma50)
	vote(sma20 > sma50, sma20 < sma50)

	total := bullVotes + bearVotes
	if total == 0 {
		return SubResult{Signal: model.SignalHold, Confidence: 30, Description: "no trend votes"}
	}

	signal := model.SignalBuy
	votes := bullVotes
	if bearVotes > bullVotes {
		signal = model.SignalSell
		votes = bearVotes
	} else if bearVotes == bullVotes {
		return SubResult{Signal: model.SignalHold, Confidence: 40, Description: "trend votes split"}
	}

	strength := clamp(float64(votes) / 4.0 * 100)
	confidence := clamp(50 + float64(votes)*12.5)

	return SubResult{Signal: signal, Strength: strength, Confidence: confidence, Description: "trend vote consensus"}
}
