package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
	"tradeforge/internal/reconcile"
)

type fakeClient struct {
	positions []model.ExchangePosition
	price     float64
}

func (f *fakeClient) GetPrice(ctx context.Context, symbol string) (float64, error) { return f.price, nil }
func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	return nil, nil
}
func (f *fakeClient) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	return model.AccountInfo{}, nil
}
func (f *fakeClient) GetPositions(ctx context.Context) ([]model.ExchangePosition, error) {
	return f.positions, nil
}
func (f *fakeClient) SetLeverage(ctx context.Context, symbol string, leverage int) error { return nil }
func (f *fakeClient) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, nil
}
func (f *fakeClient) ClosePosition(ctx context.Context, symbol string, side model.Side, quantity float64, hedging bool) (exchange.OrderResult, error) {
	return exchange.OrderResult{}, nil
}
func (f *fakeClient) UpdateStopLossOrder(ctx context.Context, symbol string, positionSide model.PositionSide, quantity, newStopPrice float64) error {
	return nil
}
func (f *fakeClient) GetPositionMode(ctx context.Context) (bool, error) { return false, nil }
func (f *fakeClient) InvalidatePositionModeCache()                      {}

type fakeStore struct {
	active  []model.Trade
	closed  []model.Trade
	adopted []model.ExchangePosition
	stops   []float64
	targets []float64
}

func (s *fakeStore) ActiveTrades(ctx context.Context) ([]model.Trade, error) { return s.active, nil }
func (s *fakeStore) CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error) {
	tr := model.Trade{ID: tradeID, Status: model.TradeStatusClosed, ExitPrice: &exitPrice, Profit: profit, ProfitPct: profitPct}
	s.closed = append(s.closed, tr)
	return tr, nil
}
func (s *fakeStore) AdoptExternalPosition(ctx context.Context, pos model.ExchangePosition, stopLoss, takeProfit float64, trailingStopActive bool) (model.Trade, error) {
	s.adopted = append(s.adopted, pos)
	s.stops = append(s.stops, stopLoss)
	s.targets = append(s.targets, takeProfit)
	return model.Trade{
		ID: "adopted-" + pos.Symbol, Symbol: pos.Symbol, Status: model.TradeStatusActive,
		StopLoss: stopLoss, TakeProfit: takeProfit, TrailingStopActive: trailingStopActive,
	}, nil
}

type fakeNotifier struct{ closes int }

func (n *fakeNotifier) OnTradeClose(trade model.Trade) { n.closes++ }

type fakeProtection struct{ results []float64 }

func (p *fakeProtection) RecordTradeResult(profit float64) { p.results = append(p.results, profit) }

// S5. A store-active trade with no matching exchange position is closed
// off-engine using the current mark price; an exchange position absent
// from the store is adopted.
func TestReconciler_ClosesOffEngineAndAdoptsUntracked(t *testing.T) {
	client := &fakeClient{
		price: 105,
		positions: []model.ExchangePosition{
			{Symbol: "ETHUSDT", PositionSide: model.PositionSideLong, EntryPrice: 2000},
		},
	}
	store := &fakeStore{
		active: []model.Trade{
			{ID: "t1", Symbol: "BTCUSDT", Direction: model.SideLong, EntryPrice: 100, Quantity: 1, Status: model.TradeStatusActive},
		},
	}
	notifier := &fakeNotifier{}
	protection := &fakeProtection{}
	r := reconcile.NewReconciler(client, store, notifier, protection, zerolog.Nop())
	settings := model.Settings{MaxRiskPerTrade: 2, RiskRewardRatio: 2, TrailingStopEnabled: true}

	require.NoError(t, r.Run(context.Background(), settings))

	require.Len(t, store.closed, 1)
	assert.Equal(t, "t1", store.closed[0].ID)
	assert.InDelta(t, 5, store.closed[0].Profit, 1e-9)
	assert.Equal(t, 1, notifier.closes)
	assert.Len(t, protection.results, 1)

	require.Len(t, store.adopted, 1)
	assert.Equal(t, "ETHUSDT", store.adopted[0].Symbol)
	assert.InDelta(t, 1960, store.stops[0], 1e-9)
	assert.InDelta(t, 2080, store.targets[0], 1e-9)
}

func TestReconciler_MatchedPositionLeavesTradeUntouched(t *testing.T) {
	client := &fakeClient{
		price: 101,
		positions: []model.ExchangePosition{
			{Symbol: "BTCUSDT", PositionSide: model.PositionSideLong, EntryPrice: 100},
		},
	}
	store := &fakeStore{
		active: []model.Trade{
			{ID: "t1", Symbol: "BTCUSDT", Direction: model.SideLong, EntryPrice: 100, Quantity: 1, Status: model.TradeStatusActive},
		},
	}
	notifier := &fakeNotifier{}
	protection := &fakeProtection{}
	r := reconcile.NewReconciler(client, store, notifier, protection, zerolog.Nop())

	require.NoError(t, r.Run(context.Background(), model.Settings{MaxRiskPerTrade: 2, RiskRewardRatio: 2}))
	assert.Empty(t, store.closed)
	assert.Empty(t, store.adopted)
}
