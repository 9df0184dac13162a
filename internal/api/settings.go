package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeforge/internal/apperr"
	"tradeforge/internal/model"
	"tradeforge/internal/store"
)

// settingsDTO is the operator-facing wire shape of model.Settings: plain
// API secrets are write-only (never echoed back) and surfaced on read as
// a configured boolean, the same redaction the donor's tactic config
// applies to nothing sensitive but the shape of which (JSON-tagged struct
// over a richer internal record) this follows.
type settingsDTO struct {
	ExchangeName string `json:"exchangeName"`
	Testnet      bool   `json:"testnet"`

	APIKey              string `json:"apiKey,omitempty"`
	APISecret           string `json:"apiSecret,omitempty"`
	APIKeyConfigured    bool   `json:"apiKeyConfigured"`
	APISecretConfigured bool   `json:"apiSecretConfigured"`

	Pairs []string `json:"pairs"`

	AutoTradingEnabled        bool `json:"autoTradingEnabled"`
	AITradingEnabled          bool `json:"aiTradingEnabled"`
	AdvancedStrategiesEnabled bool `json:"advancedStrategiesEnabled"`
	TrailingStopEnabled       bool `json:"trailingStopEnabled"`
	SmartSizingEnabled        bool `json:"smartSizingEnabled"`
	MarketFilterEnabled       bool `json:"marketFilterEnabled"`
	AccountProtectionEnabled  bool `json:"accountProtectionEnabled"`
	MultiTimeframeEnabled     bool `json:"multiTimeframeEnabled"`
	RequireStrategyConsensus  bool `json:"requireStrategyConsensus"`
	AvoidRangingMarket        bool `json:"avoidRangingMarket"`
	TrendFilterEnabled        bool `json:"trendFilterEnabled"`
	VolatilityAdjustment      bool `json:"volatilityAdjustment"`
	DiversificationEnabled    bool `json:"diversificationEnabled"`

	EnabledStrategies []model.StrategyName `json:"enabledStrategies"`
	Timeframes        []string             `json:"timeframes"`

	MaShortPeriod int     `json:"maShortPeriod"`
	MaLongPeriod  int     `json:"maLongPeriod"`
	RSIPeriod     int     `json:"rsiPeriod"`
	RSIOverbought float64 `json:"rsiOverbought"`
	RSIOversold   float64 `json:"rsiOversold"`
	MACDFast      int     `json:"macdFast"`
	MACDSlow      int     `json:"macdSlow"`
	MACDSignal    int     `json:"macdSignal"`
	ATRPeriod     int     `json:"atrPeriod"`
	ATRMultiplier float64 `json:"atrMultiplier"`
	SwingPeriod   int     `json:"swingPeriod"`

	MaxRiskPerTrade    float64 `json:"maxRiskPerTrade"`
	RiskRewardRatio    float64 `json:"riskRewardRatio"`
	MaxPositionPercent float64 `json:"maxPositionPercent"`
	MinPositionPercent float64 `json:"minPositionPercent"`

	AIMinConfidence     float64 `json:"aiMinConfidence"`
	AIMinSignalStrength float64 `json:"aiMinSignalStrength"`
	AIRequiredSignals   int     `json:"aiRequiredSignals"`

	StrategyMinConfidence float64 `json:"strategyMinConfidence"`
	StrategyMinStrength   float64 `json:"strategyMinStrength"`
	VolumeMultiplier      float64 `json:"volumeMultiplier"`

	MaxVolatilityPercent float64 `json:"maxVolatilityPercent"`
	MinTrendStrength     float64 `json:"minTrendStrength"`

	MaxDailyLossPercent         float64 `json:"maxDailyLossPercent"`
	MaxConcurrentTrades         int     `json:"maxConcurrentTrades"`
	PauseAfterConsecutiveLosses int     `json:"pauseAfterConsecutiveLosses"`
	MaxDailyTrades              int     `json:"maxDailyTrades"`
	TradeCooldownMinutes        int     `json:"tradeCooldownMinutes"`

	TrailingStopPercent           float64 `json:"trailingStopPercent"`
	TrailingStopActivationPercent float64 `json:"trailingStopActivationPercent"`

	MinSignalStrength float64 `json:"minSignalStrength"`
}

func settingsToDTO(s model.Settings) settingsDTO {
	return settingsDTO{
		ExchangeName: s.ExchangeName, Testnet: s.Testnet,
		APIKeyConfigured: len(s.APIKeyEncrypted) > 0, APISecretConfigured: len(s.APISecretEncrypted) > 0,
		Pairs:                      s.Pairs,
		AutoTradingEnabled:         s.AutoTradingEnabled,
		AITradingEnabled:           s.AITradingEnabled,
		AdvancedStrategiesEnabled:  s.AdvancedStrategiesEnabled,
		TrailingStopEnabled:        s.TrailingStopEnabled,
		SmartSizingEnabled:         s.SmartSizingEnabled,
		MarketFilterEnabled:        s.MarketFilterEnabled,
		AccountProtectionEnabled:   s.AccountProtectionEnabled,
		MultiTimeframeEnabled:      s.MultiTimeframeEnabled,
		RequireStrategyConsensus:   s.RequireStrategyConsensus,
		AvoidRangingMarket:         s.AvoidRangingMarket,
		TrendFilterEnabled:         s.TrendFilterEnabled,
		VolatilityAdjustment:       s.VolatilityAdjustment,
		DiversificationEnabled:     s.DiversificationEnabled,
		EnabledStrategies:          s.EnabledStrategies,
		Timeframes:                 s.Timeframes,
		MaShortPeriod:              s.MaShortPeriod,
		MaLongPeriod:               s.MaLongPeriod,
		RSIPeriod:                  s.RSIPeriod,
		RSIOverbought:              s.RSIOverbought,
		RSIOversold:                s.RSIOversold,
		MACDFast:                   s.MACDFast,
		MACDSlow:                   s.MACDSlow,
		MACDSignal:                 s.MACDSignal,
		ATRPeriod:                  s.ATRPeriod,
		ATRMultiplier:              s.ATRMultiplier,
		SwingPeriod:                s.SwingPeriod,
		MaxRiskPerTrade:            s.MaxRiskPerTrade,
		RiskRewardRatio:            s.RiskRewardRatio,
		MaxPositionPercent:         s.MaxPositionPercent,
		MinPositionPercent:         s.MinPositionPercent,
		AIMinConfidence:            s.AIMinConfidence,
		AIMinSignalStrength:        s.AIMinSignalStrength,
		AIRequiredSignals:          s.AIRequiredSignals,
		StrategyMinConfidence:      s.StrategyMinConfidence,
		StrategyMinStrength:        s.StrategyMinStrength,
		VolumeMultiplier:           s.VolumeMultiplier,
		MaxVolatilityPercent:       s.MaxVolatilityPercent,
		MinTrendStrength:           s.MinTrendStrength,
		MaxDailyLossPercent:        s.MaxDailyLossPercent,
		MaxConcurrentTrades:        s.MaxConcurrentTrades,
		PauseAfterConsecutiveLosses: s.PauseAfterConsecutiveLosses,
		MaxDailyTrades:             s.MaxDailyTrades,
		TradeCooldownMinutes:       s.TradeCooldownMinutes,
		TrailingStopPercent:           s.TrailingStopPercent,
		TrailingStopActivationPercent: s.TrailingStopActivationPercent,
		MinSignalStrength:             s.MinSignalStrength,
	}
}

// applyDTO merges a (partial, per UpdateSettings' contract) DTO onto the
// current settings. Zero-valued fields in the DTO are indistinguishable
// from "not supplied" for a plain JSON body, so callers are expected to
// send a full settings object, as the donor's tactic-config PUT does.
func (s *Server) applyDTO(current model.Settings, d settingsDTO) (model.Settings, error) {
	next := current
	next.ExchangeName = d.ExchangeName
	next.Testnet = d.Testnet
	next.Pairs = d.Pairs
	next.AutoTradingEnabled = d.AutoTradingEnabled
	next.AITradingEnabled = d.AITradingEnabled
	next.AdvancedStrategiesEnabled = d.AdvancedStrategiesEnabled
	next.TrailingStopEnabled = d.TrailingStopEnabled
	next.SmartSizingEnabled = d.SmartSizingEnabled
	next.MarketFilterEnabled = d.MarketFilterEnabled
	next.AccountProtectionEnabled = d.AccountProtectionEnabled
	next.MultiTimeframeEnabled = d.MultiTimeframeEnabled
	next.RequireStrategyConsensus = d.RequireStrategyConsensus
	next.AvoidRangingMarket = d.AvoidRangingMarket
	next.TrendFilterEnabled = d.TrendFilterEnabled
	next.VolatilityAdjustment = d.VolatilityAdjustment
	next.DiversificationEnabled = d.DiversificationEnabled
	next.EnabledStrategies = d.EnabledStrategies
	next.Timeframes = d.Timeframes
	next.MaShortPeriod = d.MaShortPeriod
	next.MaLongPeriod = d.MaLongPeriod
	next.RSIPeriod = d.RSIPeriod
	next.RSIOverbought = d.RSIOverbought
	next.RSIOversold = d.RSIOversold
	next.MACDFast = d.MACDFast
	next.MACDSlow = d.MACDSlow
	next.MACDSignal = d.MACDSignal
	next.ATRPeriod = d.ATRPeriod
	next.ATRMultiplier = d.ATRMultiplier
	next.SwingPeriod = d.SwingPeriod
	next.MaxRiskPerTrade = d.MaxRiskPerTrade
	next.RiskRewardRatio = d.RiskRewardRatio
	next.MaxPositionPercent = d.MaxPositionPercent
	next.MinPositionPercent = d.MinPositionPercent
	next.AIMinConfidence = d.AIMinConfidence
	next.AIMinSignalStrength = d.AIMinSignalStrength
	next.AIRequiredSignals = d.AIRequiredSignals
	next.StrategyMinConfidence = d.StrategyMinConfidence
	next.StrategyMinStrength = d.StrategyMinStrength
	next.VolumeMultiplier = d.VolumeMultiplier
	next.MaxVolatilityPercent = d.MaxVolatilityPercent
	next.MinTrendStrength = d.MinTrendStrength
	next.MaxDailyLossPercent = d.MaxDailyLossPercent
	next.MaxConcurrentTrades = d.MaxConcurrentTrades
	next.PauseAfterConsecutiveLosses = d.PauseAfterConsecutiveLosses
	next.MaxDailyTrades = d.MaxDailyTrades
	next.TradeCooldownMinutes = d.TradeCooldownMinutes
	next.TrailingStopPercent = d.TrailingStopPercent
	next.TrailingStopActivationPercent = d.TrailingStopActivationPercent
	next.MinSignalStrength = d.MinSignalStrength

	if d.APIKey != "" {
		enc, err := store.EncryptSecret(s.encKey, d.APIKey)
		if err != nil {
			return model.Settings{}, fmt.Errorf("api: encrypt api key: %w", err)
		}
		next.APIKeyEncrypted = enc
	}
	if d.APISecret != "" {
		enc, err := store.EncryptSecret(s.encKey, d.APISecret)
		if err != nil {
			return model.Settings{}, fmt.Errorf("api: encrypt api secret: %w", err)
		}
		next.APISecretEncrypted = enc
	}
	return next, nil
}

func (s *Server) handleGetSettings(c *gin.Context) {
	settings, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsToDTO(settings))
}

func (s *Server) handleUpdateSettings(c *gin.Context) {
	var dto settingsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		writeError(c, fmt.Errorf("api: decode settings body: %w: %w", err, apperr.ErrValidationFailed))
		return
	}

	current, err := s.store.GetSettings(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	next, err := s.applyDTO(current, dto)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := next.Validate(); err != nil {
		writeError(c, fmt.Errorf("%w: %w", err, apperr.ErrValidationFailed))
		return
	}
	if err := s.store.SaveSettings(c.Request.Context(), next); err != nil {
		writeError(c, err)
		return
	}
	s.engine.UpdateSettings(next)
	s.hub.OnSettingsUpdate(next)
	c.JSON(http.StatusOK, settingsToDTO(next))
}

// handleToggleBot flips autoTradingEnabled without touching any other
// field, the fast "big red switch" the UI's toggle control drives.
func (s *Server) handleToggleBot(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	settings.AutoTradingEnabled = !settings.AutoTradingEnabled
	if settings.AutoTradingEnabled && (len(settings.APIKeyEncrypted) == 0 || len(settings.APISecretEncrypted) == 0) {
		writeError(c, fmt.Errorf("api: no exchange credentials configured: %w", apperr.ErrNotConfigured))
		return
	}
	if err := s.store.SaveSettings(ctx, settings); err != nil {
		writeError(c, err)
		return
	}
	s.engine.UpdateSettings(settings)
	s.hub.OnSettingsUpdate(settings)
	c.JSON(http.StatusOK, settingsToDTO(settings))
}

func (s *Server) handleTestExchange(c *gin.Context) {
	if _, err := s.client.GetAccount(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
