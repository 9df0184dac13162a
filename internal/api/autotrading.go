package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeforge/internal/apperr"
)

// handleStartAutoTrading and handleStopAutoTrading govern the scheduler
// task itself (engine.Start/Stop), distinct from handleToggleBot which
// only flips the autoTradingEnabled setting the tick body checks each
// cycle — the reconciliation and trailing-stop sweep keep running on the
// scheduler task regardless of that setting.
func (s *Server) handleStartAutoTrading(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(settings.APIKeyEncrypted) == 0 || len(settings.APISecretEncrypted) == 0 {
		writeError(c, fmt.Errorf("api: no exchange credentials configured: %w", apperr.ErrNotConfigured))
		return
	}
	if err := s.engine.Start(ctx, settings); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isRunning": s.engine.IsActive(), "enabled": settings.AutoTradingEnabled})
}

func (s *Server) handleStopAutoTrading(c *gin.Context) {
	s.engine.Stop()
	settings, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isRunning": s.engine.IsActive(), "enabled": settings.AutoTradingEnabled})
}

func (s *Server) handleAutoTradingStatus(c *gin.Context) {
	settings, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isRunning": s.engine.IsActive(), "enabled": settings.AutoTradingEnabled})
}
