package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tradeforge/internal/apperr"
	"tradeforge/internal/model"
)

func rangeValidationError(r string) error {
	return fmt.Errorf("api: unknown stats range %q: %w", r, apperr.ErrValidationFailed)
}

func (s *Server) handleGetAccount(c *gin.Context) {
	ctx := c.Request.Context()
	account, err := s.client.GetAccount(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": err.Error()})
		return
	}
	positions, err := s.client.GetPositions(ctx)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"connected": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"balance":   account.Balance,
		"available": account.AvailableBalance,
		"positions": positions,
	})
}

func (s *Server) handleGetStatsSummary(c *gin.Context) {
	ctx := c.Request.Context()

	account, err := s.client.GetAccount(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	activeTrades, err := s.store.ActiveTrades(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	stats, err := s.store.ComputeStats(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	todayStart := time.Now().Truncate(24 * time.Hour)
	todayTrades, err := s.store.TradesInRange(ctx, todayStart)
	if err != nil {
		writeError(c, err)
		return
	}
	var todayPnL float64
	for _, t := range todayTrades {
		if t.Status == model.TradeStatusClosed {
			todayPnL += t.Profit
		}
	}
	todayPnLPct := 0.0
	if account.Balance != 0 {
		todayPnLPct = todayPnL / account.Balance * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      account.Balance,
		"todayPnL":     todayPnL,
		"todayPnLPct":  todayPnLPct,
		"activeTrades": len(activeTrades),
		"winRate":      stats.WinRate,
		"profitFactor": stats.ProfitFactor,
		"totalTrades":  stats.TotalTrades,
	})
}

// rangeSince maps a GetAdvancedStats range token to a cutoff time.
func rangeSince(now time.Time, r string) (time.Time, bool) {
	switch r {
	case "week":
		return now.AddDate(0, 0, -7), true
	case "month":
		return now.AddDate(0, -1, 0), true
	case "quarter":
		return now.AddDate(0, -3, 0), true
	case "year":
		return now.AddDate(-1, 0, 0), true
	case "all", "":
		return time.Time{}, true
	default:
		return time.Time{}, false
	}
}

func (s *Server) handleGetAdvancedStats(c *gin.Context) {
	ctx := c.Request.Context()
	r := c.DefaultQuery("range", "all")

	since, ok := rangeSince(time.Now(), r)
	if !ok {
		writeError(c, rangeValidationError(r))
		return
	}

	// since is the zero time for "all", which entry_time >= since always
	// satisfies, so both queries cover the whole history without a
	// separate unranged code path.
	stats, err := s.store.ComputeStatsSince(ctx, since)
	if err != nil {
		writeError(c, err)
		return
	}
	trades, err := s.store.TradesInRange(ctx, since)
	if err != nil {
		writeError(c, err)
		return
	}

	var grossProfit, grossLoss float64
	var bestTrade, worstTrade float64
	for _, t := range trades {
		if t.Status != model.TradeStatusClosed {
			continue
		}
		if t.Profit > 0 {
			grossProfit += t.Profit
		} else {
			grossLoss += -t.Profit
		}
		if t.Profit > bestTrade {
			bestTrade = t.Profit
		}
		if t.Profit < worstTrade {
			worstTrade = t.Profit
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"range":        r,
		"totalTrades":  stats.TotalTrades,
		"winRate":      stats.WinRate,
		"profitFactor": stats.ProfitFactor,
		"grossProfit":  grossProfit,
		"grossLoss":    grossLoss,
		"bestTrade":    bestTrade,
		"worstTrade":   worstTrade,
	})
}
