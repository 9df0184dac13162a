package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeforge/internal/apperr"
	"tradeforge/internal/classical"
	"tradeforge/internal/indicator"
	"tradeforge/internal/model"
	"tradeforge/internal/patternai"
)

const marketKlineLimit = 100

// handleGetMarket derives a 24h snapshot from hourly candles since the
// exchange contract (§6.3) carries no dedicated ticker endpoint, only
// klines and a last-price lookup.
func (s *Server) handleGetMarket(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Param("symbol")

	candles, err := s.client.GetKlines(ctx, symbol, "1h", 24)
	if err != nil || len(candles) == 0 {
		writeError(c, fmt.Errorf("api: no kline data for %s: %w", symbol, apperr.ErrNotFound))
		return
	}

	snapshot := model.MarketSnapshot{Symbol: symbol, High24h: candles[0].High, Low24h: candles[0].Low}
	var volume float64
	for _, candle := range candles {
		if candle.High > snapshot.High24h {
			snapshot.High24h = candle.High
		}
		if candle.Low < snapshot.Low24h {
			snapshot.Low24h = candle.Low
		}
		volume += candle.Volume
	}
	snapshot.Volume24h = volume

	first, last := candles[0].Close, candles[len(candles)-1].Close
	if first != 0 {
		snapshot.ChangePct24h = (last - first) / first * 100
	}

	price, err := s.client.GetPrice(ctx, symbol)
	if err != nil {
		price = last
	}
	snapshot.LastPrice = price

	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) classicalParams(ctx *gin.Context) (classical.Params, error) {
	settings, err := s.store.GetSettings(ctx.Request.Context())
	if err != nil {
		return classical.Params{}, err
	}
	return classical.Params{
		RSIPeriod: settings.RSIPeriod, RSIOverbought: settings.RSIOverbought, RSIOversold: settings.RSIOversold,
		MACDFast: settings.MACDFast, MACDSlow: settings.MACDSlow, MACDSignal: settings.MACDSignal,
		MAShortPeriod: settings.MaShortPeriod, MALongPeriod: settings.MaLongPeriod,
	}, nil
}

func (s *Server) handleAnalyze(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Param("symbol")

	params, err := s.classicalParams(c)
	if err != nil {
		writeError(c, err)
		return
	}
	candles, err := s.client.GetKlines(ctx, symbol, "1h", marketKlineLimit)
	if err != nil || len(candles) == 0 {
		writeError(c, fmt.Errorf("api: no candle data for %s: %w", symbol, apperr.ErrNotFound))
		return
	}

	result := classical.Analyze(indicator.Closes(candles), params)
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAnalyzeMTF(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Param("symbol")

	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	params := classical.Params{
		RSIPeriod: settings.RSIPeriod, RSIOverbought: settings.RSIOverbought, RSIOversold: settings.RSIOversold,
		MACDFast: settings.MACDFast, MACDSlow: settings.MACDSlow, MACDSignal: settings.MACDSignal,
		MAShortPeriod: settings.MaShortPeriod, MALongPeriod: settings.MaLongPeriod,
	}

	timeframes := settings.Timeframes
	if len(timeframes) == 0 {
		timeframes = defaultAnalyzeTimeframes
	}

	perTF := make(map[string]classical.Result, len(timeframes))
	var confirmed []string
	var buyCount, sellCount int
	var strengthSum float64
	for _, tf := range timeframes {
		candles, err := s.client.GetKlines(ctx, symbol, tf, marketKlineLimit)
		if err != nil || len(candles) == 0 {
			continue
		}
		res := classical.Analyze(indicator.Closes(candles), params)
		perTF[tf] = res
		if res.OverallSignal == model.SignalHold {
			continue
		}
		confirmed = append(confirmed, tf)
		strengthSum += res.SignalStrength
		if res.OverallSignal == model.SignalBuy {
			buyCount++
		} else {
			sellCount++
		}
	}

	overall := model.SignalHold
	strength := 0.0
	if len(confirmed) > 0 {
		overall = model.SignalBuy
		if sellCount > buyCount {
			overall = model.SignalSell
		}
		strength = strengthSum / float64(len(confirmed))
	}

	c.JSON(http.StatusOK, gin.H{
		"overall":      overall,
		"strength":     strength,
		"confirmedTFs": confirmed,
		"perTF":        perTF,
	})
}

var defaultAnalyzeTimeframes = []string{"15m", "1h", "4h"}

func (s *Server) handleGetAIPrediction(c *gin.Context) {
	ctx := c.Request.Context()
	symbol := c.Param("symbol")
	timeframe := c.DefaultQuery("timeframe", "1h")

	candles, err := s.client.GetKlines(ctx, symbol, timeframe, marketKlineLimit)
	if err != nil || len(candles) < 30 {
		writeError(c, fmt.Errorf("api: insufficient candle data for %s/%s: %w", symbol, timeframe, apperr.ErrNotFound))
		return
	}

	prediction := patternai.Analyze(candles)
	price, err := s.client.GetPrice(ctx, symbol)
	if err != nil {
		price = candles[len(candles)-1].Close
	}

	c.JSON(http.StatusOK, gin.H{
		"prediction":   prediction,
		"currentPrice": price,
	})
}
