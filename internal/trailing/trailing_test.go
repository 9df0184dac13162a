package trailing_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
	"tradeforge/internal/trailing"
)

type fakeClient struct {
	price    float64
	entry    float64
	hedging  bool
	closed   bool
	stopSeen []float64
}

func (f *fakeClient) GetPrice(ctx context.Context, symbol string) (float64, error) { return f.price, nil }
func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	return nil, nil
}
func (f *fakeClient) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	return model.AccountInfo{}, nil
}
func (f *fakeClient) GetPositions(ctx context.Context) ([]model.ExchangePosition, error) {
	return []model.ExchangePosition{{Symbol: "BTCUSDT", PositionSide: model.PositionSideLong, EntryPrice: f.entry}}, nil
}
func (f *fakeClient) SetLeverage(ctx context.Context, symbol string, leverage int) error { return nil }
func (f *fakeClient) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, nil
}
func (f *fakeClient) ClosePosition(ctx context.Context, symbol string, side model.Side, quantity float64, hedging bool) (exchange.OrderResult, error) {
	f.closed = true
	return exchange.OrderResult{}, nil
}
func (f *fakeClient) UpdateStopLossOrder(ctx context.Context, symbol string, positionSide model.PositionSide, quantity, newStopPrice float64) error {
	f.stopSeen = append(f.stopSeen, newStopPrice)
	return nil
}
func (f *fakeClient) GetPositionMode(ctx context.Context) (bool, error) { return f.hedging, nil }
func (f *fakeClient) InvalidatePositionModeCache()                      {}

type fakeStore struct {
	lastStop    float64
	lastHighest float64
	closedTrade *model.Trade
}

func (s *fakeStore) UpdateTrailingStop(ctx context.Context, tradeID string, stopLoss, highestProfitSeen, trailingStopPrice float64) error {
	s.lastStop = trailingStopPrice
	s.lastHighest = highestProfitSeen
	return nil
}
func (s *fakeStore) CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error) {
	tr := model.Trade{ID: tradeID, Status: model.TradeStatusClosed, ExitPrice: &exitPrice, Profit: profit, ProfitPct: profitPct}
	s.closedTrade = &tr
	return tr, nil
}

type fakeNotifier struct {
	updates []float64
	closes  int
}

func (n *fakeNotifier) OnTradeClose(trade model.Trade)                     { n.closes++ }
func (n *fakeNotifier) OnTrailingUpdate(trade model.Trade, newStop float64) { n.updates = append(n.updates, newStop) }

type fakeProtection struct{ results []float64 }

func (p *fakeProtection) RecordTradeResult(profit float64) { p.results = append(p.results, profit) }

// S2. Long at entry 100, trailingStopPercent=2, activationPercent=1.
// Prices 100 -> 103 -> 108 -> 106 -> 105.5 ratchet to 101, 106, 106, then
// a stop hit closes the trade at 105.5.
func TestManager_RatchetSequenceAndStopHit(t *testing.T) {
	client := &fakeClient{entry: 100}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	protection := &fakeProtection{}
	mgr := trailing.NewManager(client, store, notifier, protection, zerolog.Nop())

	params := trailing.Params{TrailingStopEnabled: true, TrailingStopPercent: 2, TrailingStopActivationPercent: 1}
	trade := model.Trade{ID: "t1", Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive,
		EntryPrice: 100, Quantity: 1, TrailingStopActive: true}

	client.price = 100
	mgr.Sweep(context.Background(), []model.Trade{trade}, params)
	assert.Empty(t, client.stopSeen, "not yet activated below activation percent")

	client.price = 103
	mgr.Sweep(context.Background(), []model.Trade{trade}, params)
	require.Len(t, client.stopSeen, 1)
	assert.InDelta(t, 101, client.stopSeen[0], 1e-9)
	trade.TrailingStopPrice = &store.lastStop
	trade.HighestProfitSeen = store.lastHighest

	client.price = 108
	mgr.Sweep(context.Background(), []model.Trade{trade}, params)
	require.Len(t, client.stopSeen, 2)
	assert.InDelta(t, 106, client.stopSeen[1], 1e-9)
	trade.TrailingStopPrice = &store.lastStop
	trade.HighestProfitSeen = store.lastHighest

	client.price = 106
	mgr.Sweep(context.Background(), []model.Trade{trade}, params)
	assert.Len(t, client.stopSeen, 2, "ratchet must not retreat on a pullback")

	client.price = 105.5
	mgr.Sweep(context.Background(), []model.Trade{trade}, params)
	assert.True(t, client.closed, "price at or below the ratcheted stop must close the trade")
	require.NotNil(t, store.closedTrade)
	assert.Equal(t, 1, notifier.closes)
	assert.Len(t, protection.results, 1)
}

func TestManager_DisabledSkipsEveryTrade(t *testing.T) {
	client := &fakeClient{entry: 100, price: 90}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	protection := &fakeProtection{}
	mgr := trailing.NewManager(client, store, notifier, protection, zerolog.Nop())

	trade := model.Trade{ID: "t2", Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive, TrailingStopActive: true}
	mgr.Sweep(context.Background(), []model.Trade{trade}, trailing.Params{TrailingStopEnabled: false})
	assert.Empty(t, client.stopSeen)
	assert.False(t, client.closed)
}

func TestManager_LegacyHighPriceHeuristicResetsToZero(t *testing.T) {
	client := &fakeClient{entry: 100, price: 101.5}
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	protection := &fakeProtection{}
	mgr := trailing.NewManager(client, store, notifier, protection, zerolog.Nop())

	trade := model.Trade{ID: "t3", Symbol: "BTCUSDT", Direction: model.SideLong, Status: model.TradeStatusActive,
		EntryPrice: 100, Quantity: 1, TrailingStopActive: true, HighestProfitSeen: 9999}

	mgr.Sweep(context.Background(), []model.Trade{trade}, trailing.Params{TrailingStopEnabled: true, TrailingStopPercent: 2, TrailingStopActivationPercent: 1})
	require.Len(t, client.stopSeen, 1)
	assert.InDelta(t, 99.5, client.stopSeen[0], 1e-9)
}
