package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tradeforge/internal/apperr"
	"tradeforge/internal/model"
)

func (s *Server) handleListActiveTrades(c *gin.Context) {
	trades, err := s.store.ActiveTrades(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) handleListTradeHistory(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	trades, err := s.store.ListTrades(c.Request.Context(), limit, 0)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) handleGetTrade(c *gin.Context) {
	trade, err := s.store.GetTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleOpenTrade(c *gin.Context) {
	var req struct {
		Symbol string `json:"symbol" binding:"required"`
		Type   string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("api: decode open-trade body: %w: %w", err, apperr.ErrValidationFailed))
		return
	}

	direction, err := directionFromType(req.Type)
	if err != nil {
		writeError(c, err)
		return
	}

	// The engine's own notifier (internal/notify.Multi, which the hub is
	// registered into) raises new_trade over the websocket; no separate
	// push is needed here.
	trade, err := s.engine.ManualOpen(c.Request.Context(), req.Symbol, direction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func directionFromType(typ string) (model.Side, error) {
	switch typ {
	case "buy", "long":
		return model.SideLong, nil
	case "sell", "short":
		return model.SideShort, nil
	default:
		return "", fmt.Errorf("api: unknown trade type %q: %w", typ, apperr.ErrValidationFailed)
	}
}

func (s *Server) handleCloseTrade(c *gin.Context) {
	trade, err := s.engine.CloseTrade(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trade)
}

func (s *Server) handleCloseAllTrades(c *gin.Context) {
	closed, err := s.engine.CloseAllTrades(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closedCount": closed})
}
