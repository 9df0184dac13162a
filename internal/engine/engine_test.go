package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeforge/internal/exchange"
	"tradeforge/internal/gate"
	"tradeforge/internal/model"
	"tradeforge/internal/notify"
	"tradeforge/internal/reconcile"
	"tradeforge/internal/strategy"
	"tradeforge/internal/trailing"
)

type fakeClient struct {
	price           float64
	account         model.AccountInfo
	positions       []model.ExchangePosition
	hedging         bool
	placeOrderErr   error
	placeOrderCalls int
	positionModeCalls int
	invalidateCalls int
	klines          map[string][]model.Candle
}

func (f *fakeClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, nil
}

func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	return f.klines[interval], nil
}

func (f *fakeClient) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	return f.account, nil
}

func (f *fakeClient) GetPositions(ctx context.Context) ([]model.ExchangePosition, error) {
	return f.positions, nil
}

func (f *fakeClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

func (f *fakeClient) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	f.placeOrderCalls++
	if f.placeOrderErr != nil {
		return exchange.OrderResult{}, f.placeOrderErr
	}
	return exchange.OrderResult{OrderID: "order-1", Symbol: req.Symbol, Quantity: req.Quantity}, nil
}

func (f *fakeClient) ClosePosition(ctx context.Context, symbol string, side model.Side, quantity float64, hedging bool) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, nil
}

func (f *fakeClient) UpdateStopLossOrder(ctx context.Context, symbol string, positionSide model.PositionSide, quantity, newStopPrice float64) error {
	return nil
}

func (f *fakeClient) GetPositionMode(ctx context.Context) (bool, error) {
	f.positionModeCalls++
	return f.hedging, nil
}

func (f *fakeClient) InvalidatePositionModeCache() { f.invalidateCalls++ }

type fakeStore struct {
	settings          model.Settings
	activeTrades      []model.Trade
	activeTradesCalls int
	createdTrades     []model.Trade
	logs              []model.ActivityLog
	signals           []model.Signal
}

func (f *fakeStore) GetSettings(ctx context.Context) (model.Settings, error) { return f.settings, nil }

func (f *fakeStore) ActiveTrades(ctx context.Context) ([]model.Trade, error) {
	f.activeTradesCalls++
	return f.activeTrades, nil
}

func (f *fakeStore) CreateTrade(ctx context.Context, t model.Trade) (model.Trade, error) {
	t.ID = "trade-1"
	f.createdTrades = append(f.createdTrades, t)
	return t, nil
}

func (f *fakeStore) AppendLog(ctx context.Context, log model.ActivityLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeStore) RecordSignal(ctx context.Context, sig model.Signal) error {
	f.signals = append(f.signals, sig)
	return nil
}

func (f *fakeStore) GetTrade(ctx context.Context, id string) (model.Trade, error) {
	for _, t := range f.activeTrades {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Trade{}, errors.New("not found")
}

func (f *fakeStore) CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error) {
	return model.Trade{ID: tradeID, Status: model.TradeStatusClosed, ExitPrice: &exitPrice}, nil
}

func (f *fakeStore) UpdateTrailingStop(ctx context.Context, tradeID string, stopLoss, highestProfitSeen, trailingStopPrice float64) error {
	return nil
}

func (f *fakeStore) AdoptExternalPosition(ctx context.Context, pos model.ExchangePosition, stopLoss, takeProfit float64, trailingStopActive bool) (model.Trade, error) {
	return model.Trade{}, nil
}

type fakeNotifier struct {
	opens []model.Trade
}

func (f *fakeNotifier) OnTradeOpen(trade model.Trade)  { f.opens = append(f.opens, trade) }
func (f *fakeNotifier) OnTradeClose(trade model.Trade) {}
func (f *fakeNotifier) OnSignal(symbol, action string, strength float64) {}
func (f *fakeNotifier) OnTrailingUpdate(trade model.Trade, newStop float64) {}

var _ notify.Hooks = (*fakeNotifier)(nil)

func newTestEngine(client *fakeClient, st *fakeStore, notifier *fakeNotifier) *Engine {
	logger := zerolog.Nop()
	trailingMgr := trailing.NewManager(client, st, notifier, gate.NewProtection(10000), logger)
	reconciler := reconcile.NewReconciler(client, st, notifier, gate.NewProtection(10000), logger)
	protection := gate.NewProtection(10000)
	return NewEngine(client, st, trailingMgr, reconciler, protection, notifier, logger)
}

func baseSettings() model.Settings {
	s := model.DefaultSettings()
	s.Pairs = []string{"BTCUSDT"}
	s.AutoTradingEnabled = true
	s.TradeCooldownMinutes = 0
	s.MinSignalStrength = 1
	s.MaxDailyTrades = 100
	return s
}

func TestEngine_StartStopLifecycle(t *testing.T) {
	client := &fakeClient{}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	settings := baseSettings()
	settings.AutoTradingEnabled = false

	require.NoError(t, e.Start(context.Background(), settings))
	assert.True(t, e.IsActive())

	e.Stop()
	assert.False(t, e.IsActive())
}

func TestEngine_RunTick_AutoTradingDisabledStillReconcilesAndSweeps(t *testing.T) {
	client := &fakeClient{price: 100, hedging: false}
	st := &fakeStore{settings: baseSettings()}
	st.settings.AutoTradingEnabled = false
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	e.runTick(context.Background())

	// reconcile.Run and runTrailingSweep each load the active trades once,
	// so two loads show both ran even though auto-trading is off.
	assert.Equal(t, 2, st.activeTradesCalls)
}

func TestEngine_ExecuteEntry_ClassicalSizingPlacesOrderAndRecordsTrade(t *testing.T) {
	client := &fakeClient{price: 100, account: model.AccountInfo{Balance: 10000, AvailableBalance: 10000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	settings := baseSettings()
	settings.SmartSizingEnabled = false
	settings.MaxRiskPerTrade = 2
	settings.RiskRewardRatio = 2

	_, err := e.executeEntry(context.Background(), settings, "BTCUSDT", model.SideLong, 80, nil, []string{"classical"})
	require.NoError(t, err)

	require.Len(t, st.createdTrades, 1)
	trade := st.createdTrades[0]
	assert.Equal(t, "BTCUSDT", trade.Symbol)
	assert.InDelta(t, 98, trade.StopLoss, 1e-9)
	assert.InDelta(t, 104, trade.TakeProfit, 1e-9)
	assert.Equal(t, 1, client.placeOrderCalls)
	assert.Len(t, notifier.opens, 1)

	_, ok := e.lastTradeTime("BTCUSDT")
	assert.True(t, ok)
	assert.Equal(t, 1, e.dailyTradeCount())
}

func TestEngine_ExecuteEntry_OrderRejectionLeavesNoTradeRow(t *testing.T) {
	client := &fakeClient{price: 100, account: model.AccountInfo{Balance: 10000}, placeOrderErr: errors.New("exchange rejected")}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	settings := baseSettings()

	_, err := e.executeEntry(context.Background(), settings, "BTCUSDT", model.SideLong, 80, nil, []string{"classical"})
	require.Error(t, err)
	assert.Empty(t, st.createdTrades)
	assert.Empty(t, notifier.opens)
	assert.Len(t, st.logs, 1)
}

func TestEngine_ExecuteWithLevels_UsesStrategySuppliedLevelsVerbatim(t *testing.T) {
	client := &fakeClient{price: 100, account: model.AccountInfo{Balance: 10000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	settings := baseSettings()
	settings.SmartSizingEnabled = false

	levels := strategy.Levels{Entry: 100, StopLoss: 95, TakeProfit: 115}
	_, err := e.executeWithLevels(context.Background(), settings, "ETHUSDT", model.SideLong, 70, levels, nil, []string{"breakout"})
	require.NoError(t, err)

	require.Len(t, st.createdTrades, 1)
	trade := st.createdTrades[0]
	assert.InDelta(t, 95, trade.StopLoss, 1e-9)
	assert.InDelta(t, 115, trade.TakeProfit, 1e-9)
}

func TestEngine_HedgingMode_CachesWithinTTL(t *testing.T) {
	client := &fakeClient{hedging: true}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	hedging1, err := e.hedgingMode(context.Background())
	require.NoError(t, err)
	hedging2, err := e.hedgingMode(context.Background())
	require.NoError(t, err)

	assert.True(t, hedging1)
	assert.True(t, hedging2)
	assert.Equal(t, 1, client.positionModeCalls)
}

func TestEngine_ManualOpen_PlacesOrderAndRecordsManualTrade(t *testing.T) {
	client := &fakeClient{price: 50, account: model.AccountInfo{Balance: 5000}}
	st := &fakeStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)
	e.UpdateSettings(baseSettings())

	trade, err := e.ManualOpen(context.Background(), "BTCUSDT", model.SideLong)
	require.NoError(t, err)
	assert.Equal(t, []string{"manual"}, trade.EntrySignals)
	assert.False(t, trade.IsAutoTrade)
}

func TestEngine_CloseTrade_ClosesActiveTradeAndRecordsResult(t *testing.T) {
	client := &fakeClient{price: 110}
	active := model.Trade{ID: "t1", Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive, EntryPrice: 100, Quantity: 1}
	st := &fakeStore{activeTrades: []model.Trade{active}}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	closed, err := e.CloseTrade(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TradeStatusClosed, closed.Status)
}

func TestEngine_CloseTrade_RejectsAlreadyClosedTrade(t *testing.T) {
	client := &fakeClient{}
	closedTrade := model.Trade{ID: "t1", Symbol: "BTCUSDT", Status: model.TradeStatusClosed}
	st := &fakeStore{activeTrades: []model.Trade{closedTrade}}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	_, err := e.CloseTrade(context.Background(), "t1")
	require.Error(t, err)
}

func TestEngine_CloseAllTrades_ClosesEveryActiveTrade(t *testing.T) {
	client := &fakeClient{price: 110}
	active := []model.Trade{
		{ID: "t1", Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive, EntryPrice: 100, Quantity: 1},
		{ID: "t2", Symbol: "ETHUSDT", Direction: model.SideShort, Status: model.TradeStatusActive, EntryPrice: 100, Quantity: 1},
	}
	st := &fakeStore{activeTrades: active}
	notifier := &fakeNotifier{}
	e := newTestEngine(client, st, notifier)

	n, err := e.CloseAllTrades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBaseAsset(t *testing.T) {
	assert.Equal(t, "BTC", baseAsset("BTCUSDT"))
	assert.Equal(t, "ETH", baseAsset("ETHUSDC"))
	assert.Equal(t, "SOL", baseAsset("SOLUSDT"))
}

func TestRejectForExistingPosition(t *testing.T) {
	trades := []model.Trade{{Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive}}

	assert.True(t, rejectForExistingPosition(trades, "BTCUSDT", model.SideShort, false))
	assert.True(t, rejectForExistingPosition(trades, "BTCUSDT", model.SideLong, true))
	assert.False(t, rejectForExistingPosition(trades, "BTCUSDT", model.SideShort, true))
	assert.False(t, rejectForExistingPosition(trades, "ETHUSDT", model.SideLong, false))
}
