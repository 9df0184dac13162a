package engine

import (
	"context"
	"testing"
	"time"

	"github.com/agiledragon/gomonkey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeforge/internal/model"
)

// patchNow freezes time.Now for the duration of a test, the way the day-
// rollover and cooldown checks (both driven by wall time rather than a
// price sequence) need to be exercised deterministically.
func patchNow(t *testing.T, fixed time.Time) {
	t.Helper()
	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return fixed })
	t.Cleanup(patches.Reset)
}

func TestDecideSymbol_CooldownBlocksWithinWindow(t *testing.T) {
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	patchNow(t, base)

	client := &fakeClient{price: 100, account: model.AccountInfo{Balance: 10000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)
	e.recordTradeOpened("BTCUSDT")

	settings := baseSettings()
	settings.TradeCooldownMinutes = 15

	e.decideSymbol(context.Background(), "BTCUSDT", settings)
	assert.Empty(t, st.createdTrades, "cooldown should suppress any entry")
}

func TestDecideSymbol_CooldownClearsAfterWindow(t *testing.T) {
	base := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	patchNow(t, base)

	client := &fakeClient{price: 100, account: model.AccountInfo{Balance: 10000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)
	e.recordTradeOpened("BTCUSDT")

	_, ok := e.lastTradeTime("BTCUSDT")
	require.True(t, ok)

	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return base.Add(16 * time.Minute) })
	defer patches.Reset()

	settings := baseSettings()
	settings.TradeCooldownMinutes = 15
	settings.AITradingEnabled = false
	settings.AdvancedStrategiesEnabled = false

	// Candles are nil so the cascade ends in hold and no trade is created;
	// the active-trades lookup that follows the cooldown check shows that
	// cooldown no longer returns early.
	e.decideSymbol(context.Background(), "BTCUSDT", settings)
	assert.Empty(t, st.createdTrades)
	assert.GreaterOrEqual(t, st.activeTradesCalls, 1, "decideSymbol should proceed past the cooldown check")
}

func TestRollDailyCounters_ResetsOnDateChange(t *testing.T) {
	day1 := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)
	client := &fakeClient{account: model.AccountInfo{Balance: 10000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	patchNow(t, day1)
	e.rollDailyCounters(context.Background())
	e.recordTradeOpened("BTCUSDT")
	e.recordTradeOpened("ETHUSDT")
	assert.Equal(t, 2, e.dailyTradeCount())

	day2 := time.Date(2026, 7, 31, 0, 30, 0, 0, time.UTC)
	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return day2 })
	defer patches.Reset()

	e.rollDailyCounters(context.Background())
	assert.Equal(t, 0, e.dailyTradeCount())
}

func TestRollDailyCounters_SameDayLeavesCountIntact(t *testing.T) {
	day1 := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	client := &fakeClient{account: model.AccountInfo{Balance: 10000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	patchNow(t, day1)
	e.rollDailyCounters(context.Background())
	e.recordTradeOpened("BTCUSDT")

	patches := gomonkey.ApplyFunc(time.Now, func() time.Time { return day1.Add(2 * time.Hour) })
	defer patches.Reset()

	e.rollDailyCounters(context.Background())
	assert.Equal(t, 1, e.dailyTradeCount())
}
