package model

import (
	"errors"
	"fmt"
)

// bound is an inclusive numeric range used by Validate.
type bound struct {
	field    string
	value    float64
	min, max float64
}

func (b bound) check() error {
	if b.value < b.min || b.value > b.max {
		return fmt.Errorf("%s=%.4f out of range [%.4f, %.4f]: %w", b.field, b.value, b.min, b.max, errValidation)
	}
	return nil
}

// errValidation is wrapped by apperr.ErrValidationFailed at the call sites
// that import apperr; model stays dependency-free of apperr to avoid an
// import cycle (apperr is imported by store/engine/api, none of which model
// depends on).
var errValidation = fmt.Errorf("validation failed")

// Validate enforces the §6.2 numeric bounds and enumerations and the
// maLongPeriod > maShortPeriod / macdSlow > macdFast invariants from §3.
func (s *Settings) Validate() error {
	bounds := []bound{
		{"maxRiskPerTrade", s.MaxRiskPerTrade, 0.5, 10},
		{"riskRewardRatio", s.RiskRewardRatio, 1, 5},
		{"maShortPeriod", float64(s.MaShortPeriod), 5, 100},
		{"maLongPeriod", float64(s.MaLongPeriod), 50, 500},
		{"rsiPeriod", float64(s.RSIPeriod), 7, 28},
		{"rsiOverbought", s.RSIOverbought, 60, 90},
		{"rsiOversold", s.RSIOversold, 10, 40},
		{"macdFast", float64(s.MACDFast), 5, 20},
		{"macdSlow", float64(s.MACDSlow), 20, 50},
		{"macdSignal", float64(s.MACDSignal), 5, 15},
		{"trailingStopPercent", s.TrailingStopPercent, 0.1, 10},
		{"aiMinConfidence", s.AIMinConfidence, 30, 95},
		{"aiMinSignalStrength", s.AIMinSignalStrength, 20, 90},
		{"aiRequiredSignals", float64(s.AIRequiredSignals), 1, 5},
		{"strategyMinConfidence", s.StrategyMinConfidence, 30, 95},
		{"strategyMinStrength", s.StrategyMinStrength, 20, 90},
		{"atrPeriod", float64(s.ATRPeriod), 7, 50},
		{"atrMultiplier", s.ATRMultiplier, 0.5, 5},
		{"maxPositionPercent", s.MaxPositionPercent, 5, 50},
		{"minPositionPercent", s.MinPositionPercent, 0.5, 10},
		{"maxVolatilityPercent", s.MaxVolatilityPercent, 2, 15},
		{"minTrendStrength", s.MinTrendStrength, 10, 80},
		{"maxDailyLossPercent", s.MaxDailyLossPercent, 1, 20},
		{"maxConcurrentTrades", float64(s.MaxConcurrentTrades), 1, 10},
		{"pauseAfterConsecutiveLosses", float64(s.PauseAfterConsecutiveLosses), 2, 10},
	}
	for _, b := range bounds {
		if err := b.check(); err != nil {
			return err
		}
	}

	if s.MaLongPeriod <= s.MaShortPeriod {
		return fmt.Errorf("maLongPeriod must be greater than maShortPeriod: %w", errValidation)
	}
	if s.MACDSlow <= s.MACDFast {
		return fmt.Errorf("macdSlow must be greater than macdFast: %w", errValidation)
	}

	allowedStrategies := map[StrategyName]bool{
		StrategyBreakout: true, StrategyScalping: true, StrategyMomentum: true,
		StrategyMeanReversion: true, StrategySwing: true, StrategyGrid: true,
	}
	for _, st := range s.EnabledStrategies {
		if !allowedStrategies[st] {
			return fmt.Errorf("unknown strategy %q: %w", st, errValidation)
		}
	}

	allowedTimeframes := map[string]bool{"1m": true, "5m": true, "15m": true, "30m": true, "1h": true, "4h": true, "1d": true}
	for _, tf := range s.Timeframes {
		if !allowedTimeframes[tf] {
			return fmt.Errorf("unknown timeframe %q: %w", tf, errValidation)
		}
	}

	return nil
}

// IsValidationErr reports whether err originated from Validate, so callers
// in internal/apperr-aware packages can wrap it as ValidationFailed.
func IsValidationErr(err error) bool {
	return errors.Is(err, errValidation)
}

// DefaultSettings returns the conservative defaults applied on first run.
func DefaultSettings() Settings {
	return Settings{
		ExchangeName:               "binance",
		Testnet:                    true,
		Pairs:                      []string{"BTCUSDT", "ETHUSDT"},
		AutoTradingEnabled:         false,
		AITradingEnabled:           true,
		AdvancedStrategiesEnabled:  true,
		TrailingStopEnabled:        true,
		SmartSizingEnabled:         true,
		MarketFilterEnabled:        true,
		AccountProtectionEnabled:   true,
		MultiTimeframeEnabled:      false,
		RequireStrategyConsensus:   false,
		AvoidRangingMarket:         true,
		TrendFilterEnabled:         true,
		VolatilityAdjustment:       true,
		DiversificationEnabled:     true,
		EnabledStrategies:          []StrategyName{StrategyBreakout, StrategyMomentum, StrategySwing},
		Timeframes:                 []string{"15m", "1h", "4h"},
		MaShortPeriod:              10,
		MaLongPeriod:               50,
		RSIPeriod:                  14,
		RSIOverbought:              70,
		RSIOversold:                30,
		MACDFast:                   12,
		MACDSlow:                   26,
		MACDSignal:                 9,
		ATRPeriod:                  14,
		ATRMultiplier:              2,
		SwingPeriod:                10,
		MaxRiskPerTrade:            2,
		RiskRewardRatio:            2,
		MaxPositionPercent:         20,
		MinPositionPercent:         1,
		AIMinConfidence:            60,
		AIMinSignalStrength:        50,
		AIRequiredSignals:          2,
		StrategyMinConfidence:      60,
		StrategyMinStrength:        50,
		VolumeMultiplier:           1.5,
		MaxVolatilityPercent:       6,
		MinTrendStrength:           25,
		MaxDailyLossPercent:        5,
		MaxConcurrentTrades:        5,
		PauseAfterConsecutiveLosses: 3,
		MaxDailyTrades:             20,
		TradeCooldownMinutes:       15,
		TrailingStopPercent:        2,
		TrailingStopActivationPercent: 1,
		MinSignalStrength:          40,
	}
}
