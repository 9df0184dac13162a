package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeforge/internal/model"
	"tradeforge/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_CreateAndCloseTrade(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTrade(ctx, model.Trade{
		Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive,
		EntryPrice: 100, Quantity: 1, Leverage: 5, StopLoss: 98, TakeProfit: 106,
		EntryTime: time.Now(), EntrySignals: []string{"rsi_oversold", "ma_cross"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	active, err := s.ActiveTrades(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, []string{"rsi_oversold", "ma_cross"}, active[0].EntrySignals)

	closed, err := s.CloseTrade(ctx, created.ID, 106, time.Now(), 6, 6.0)
	require.NoError(t, err)
	assert.Equal(t, model.TradeStatusClosed, closed.Status)
	require.NotNil(t, closed.ExitPrice)
	assert.InDelta(t, 106, *closed.ExitPrice, 1e-9)

	active, err = s.ActiveTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStore_UpdateTrailingStopPersists(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateTrade(ctx, model.Trade{
		Symbol: "ETHUSDT", Direction: model.SideLong, Status: model.TradeStatusActive,
		EntryPrice: 2000, Quantity: 1, Leverage: 5, StopLoss: 1950, TakeProfit: 2200,
		EntryTime: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateTrailingStop(ctx, created.ID, 2020, 3.5, 2020))

	got, err := s.GetTrade(ctx, created.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2020, got.StopLoss, 1e-9)
	assert.InDelta(t, 3.5, got.HighestProfitSeen, 1e-9)
	require.NotNil(t, got.TrailingStopPrice)
	assert.InDelta(t, 2020, *got.TrailingStopPrice, 1e-9)
}

func TestStore_SettingsRoundTripsAndSeedsDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings().ExchangeName, settings.ExchangeName)

	settings.MaxRiskPerTrade = 3
	settings.APIKeyEncrypted = []byte("encrypted-key")
	require.NoError(t, s.SaveSettings(ctx, settings))

	reloaded, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 3, reloaded.MaxRiskPerTrade, 1e-9)
	assert.Equal(t, []byte("encrypted-key"), reloaded.APIKeyEncrypted)
}

func TestStore_SettingsRejectsInvalidValues(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	settings := model.DefaultSettings()
	settings.MaxRiskPerTrade = 999
	assert.Error(t, s.SaveSettings(ctx, settings))
}

func TestStore_AppendLogAndRecordSignal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendLog(ctx, model.ActivityLog{Level: model.LogInfo, Message: "engine started", Source: "engine", Timestamp: time.Now()}))
	logs, err := s.RecentLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "engine started", logs[0].Message)

	require.NoError(t, s.RecordSignal(ctx, model.Signal{Symbol: "BTCUSDT", Type: model.SignalKind("buy"), Indicator: "rsi", Value: 28, Strength: 70, Timestamp: time.Now()}))
	signals, err := s.RecentSignals(ctx, "BTCUSDT", 10)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "rsi", signals[0].Indicator)
}

func TestStore_ComputeStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	win, _ := s.CreateTrade(ctx, model.Trade{Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive, EntryPrice: 100, Quantity: 1, EntryTime: time.Now()})
	loss, _ := s.CreateTrade(ctx, model.Trade{Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive, EntryPrice: 100, Quantity: 1, EntryTime: time.Now()})

	_, err := s.CloseTrade(ctx, win.ID, 110, time.Now(), 10, 10)
	require.NoError(t, err)
	_, err = s.CloseTrade(ctx, loss.ID, 95, time.Now(), -5, -5)
	require.NoError(t, err)

	stats, err := s.ComputeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalTrades)
	assert.InDelta(t, 50, stats.WinRate, 1e-9)
	assert.InDelta(t, 2, stats.ProfitFactor, 1e-9)
}
