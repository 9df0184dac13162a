package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"tradeforge/internal/model"
)

// settingsRow is the JSON-serializable mirror of model.Settings minus the
// two encrypted byte slices, which are stored in their own BLOB columns
// rather than base64'd into the JSON blob.
type settingsRow struct {
	ExchangeName string `json:"exchangeName"`
	Testnet      bool   `json:"testnet"`

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

func toRow(s model.Settings) settingsRow {
	return settingsRow{
		ExchangeName: s.ExchangeName, Testnet: s.Testnet, Pairs: s.Pairs,
		AutoTradingEnabled: s.AutoTradingEnabled, AITradingEnabled: s.AITradingEnabled,
		AdvancedStrategiesEnabled: s.AdvancedStrategiesEnabled, TrailingStopEnabled: s.TrailingStopEnabled,
		SmartSizingEnabled: s.SmartSizingEnabled, MarketFilterEnabled: s.MarketFilterEnabled,
		AccountProtectionEnabled: s.AccountProtectionEnabled, MultiTimeframeEnabled: s.MultiTimeframeEnabled,
		RequireStrategyConsensus: s.RequireStrategyConsensus, AvoidRangingMarket: s.AvoidRangingMarket,
		TrendFilterEnabled: s.TrendFilterEnabled, VolatilityAdjustment: s.VolatilityAdjustment,
		DiversificationEnabled: s.DiversificationEnabled, EnabledStrategies: s.EnabledStrategies,
		Timeframes: s.Timeframes, MaShortPeriod: s.MaShortPeriod, MaLongPeriod: s.MaLongPeriod,
		RSIPeriod: s.RSIPeriod, RSIOverbought: s.RSIOverbought, RSIOversold: s.RSIOversold,
		MACDFast: s.MACDFast, MACDSlow: s.MACDSlow, MACDSignal: s.MACDSignal,
		ATRPeriod: s.ATRPeriod, ATRMultiplier: s.ATRMultiplier, SwingPeriod: s.SwingPeriod,
		MaxRiskPerTrade: s.MaxRiskPerTrade, RiskRewardRatio: s.RiskRewardRatio,
		MaxPositionPercent: s.MaxPositionPercent, MinPositionPercent: s.MinPositionPercent,
		AIMinConfidence: s.AIMinConfidence, AIMinSignalStrength: s.AIMinSignalStrength,
		AIRequiredSignals: s.AIRequiredSignals, StrategyMinConfidence: s.StrategyMinConfidence,
		StrategyMinStrength: s.StrategyMinStrength, VolumeMultiplier: s.VolumeMultiplier,
		MaxVolatilityPercent: s.MaxVolatilityPercent, MinTrendStrength: s.MinTrendStrength,
		MaxDailyLossPercent: s.MaxDailyLossPercent, MaxConcurrentTrades: s.MaxConcurrentTrades,
		PauseAfterConsecutiveLosses: s.PauseAfterConsecutiveLosses, MaxDailyTrades: s.MaxDailyTrades,
		TradeCooldownMinutes: s.TradeCooldownMinutes, TrailingStopPercent: s.TrailingStopPercent,
		TrailingStopActivationPercent: s.TrailingStopActivationPercent, MinSignalStrength: s.MinSignalStrength,
	}
}

func (r settingsRow) toSettings(apiKeyEnc, apiSecretEnc []byte) model.Settings {
	return model.Settings{
		ExchangeName: r.ExchangeName, Testnet: r.Testnet,
		APIKeyEncrypted: apiKeyEnc, APISecretEncrypted: apiSecretEnc, Pairs: r.Pairs,
		AutoTradingEnabled: r.AutoTradingEnabled, AITradingEnabled: r.AITradingEnabled,
		AdvancedStrategiesEnabled: r.AdvancedStrategiesEnabled, TrailingStopEnabled: r.TrailingStopEnabled,
		SmartSizingEnabled: r.SmartSizingEnabled, MarketFilterEnabled: r.MarketFilterEnabled,
		AccountProtectionEnabled: r.AccountProtectionEnabled, MultiTimeframeEnabled: r.MultiTimeframeEnabled,
		RequireStrategyConsensus: r.RequireStrategyConsensus, AvoidRangingMarket: r.AvoidRangingMarket,
		TrendFilterEnabled: r.TrendFilterEnabled, VolatilityAdjustment: r.VolatilityAdjustment,
		DiversificationEnabled: r.DiversificationEnabled, EnabledStrategies: r.EnabledStrategies,
		Timeframes: r.Timeframes, MaShortPeriod: r.MaShortPeriod, MaLongPeriod: r.MaLongPeriod,
		RSIPeriod: r.RSIPeriod, RSIOverbought: r.RSIOverbought, RSIOversold: r.RSIOversold,
		MACDFast: r.MACDFast, MACDSlow: r.MACDSlow, MACDSignal: r.MACDSignal,
		ATRPeriod: r.ATRPeriod, ATRMultiplier: r.ATRMultiplier, SwingPeriod: r.SwingPeriod,
		MaxRiskPerTrade: r.MaxRiskPerTrade, RiskRewardRatio: r.RiskRewardRatio,
		MaxPositionPercent: r.MaxPositionPercent, MinPositionPercent: r.MinPositionPercent,
		AIMinConfidence: r.AIMinConfidence, AIMinSignalStrength: r.AIMinSignalStrength,
		AIRequiredSignals: r.AIRequiredSignals, StrategyMinConfidence: r.StrategyMinConfidence,
		StrategyMinStrength: r.StrategyMinStrength, VolumeMultiplier: r.VolumeMultiplier,
		MaxVolatilityPercent: r.MaxVolatilityPercent, MinTrendStrength: r.MinTrendStrength,
		MaxDailyLossPercent: r.MaxDailyLossPercent, MaxConcurrentTrades: r.MaxConcurrentTrades,
		PauseAfterConsecutiveLosses: r.PauseAfterConsecutiveLosses, MaxDailyTrades: r.MaxDailyTrades,
		TradeCooldownMinutes: r.TradeCooldownMinutes, TrailingStopPercent: r.TrailingStopPercent,
		TrailingStopActivationPercent: r.TrailingStopActivationPercent, MinSignalStrength: r.MinSignalStrength,
	}
}

func (s *Store) initSettingsTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			config TEXT NOT NULL DEFAULT '{}',
			api_key_encrypted BLOB,
			api_secret_encrypted BLOB,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		CREATE TRIGGER IF NOT EXISTS update_settings_updated_at
		AFTER UPDATE ON settings
		BEGIN
			UPDATE settings SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END
	`)
	return err
}

// GetSettings returns the single settings row, seeding it with
// model.DefaultSettings() on first run.
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	var configJSON string
	var apiKeyEnc, apiSecretEnc []byte
	err := s.db.QueryRowContext(ctx, `SELECT config, api_key_encrypted, api_secret_encrypted FROM settings WHERE id = 1`).
		Scan(&configJSON, &apiKeyEnc, &apiSecretEnc)
	if err == sql.ErrNoRows {
		defaults := model.DefaultSettings()
		if err := s.SaveSettings(ctx, defaults); err != nil {
			return model.Settings{}, err
		}
		return defaults, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("store: get settings: %w", err)
	}

	var row settingsRow
	if err := json.Unmarshal([]byte(configJSON), &row); err != nil {
		return model.Settings{}, fmt.Errorf("store: unmarshal settings: %w", err)
	}
	return row.toSettings(apiKeyEnc, apiSecretEnc), nil
}

// SaveSettings validates and persists the full settings row, upserting the
// single-row table.
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(toRow(settings))
	if err != nil {
		return fmt.Errorf("store: marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, config, api_key_encrypted, api_secret_encrypted)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config,
			api_key_encrypted = excluded.api_key_encrypted,
			api_secret_encrypted = excluded.api_secret_encrypted
	`, string(data), settings.APIKeyEncrypted, settings.APISecretEncrypted)
	if err != nil {
		return fmt.Errorf("store: save settings: %w", err)
	}
	return nil
}
