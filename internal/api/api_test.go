package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeforge/internal/apperr"
	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
	"tradeforge/internal/store"
)

func zerologNop() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func assertError(msg string) error {
	return errors.New(msg)
}

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	settings     model.Settings
	activeTrades []model.Trade
	allTrades    []model.Trade
	logs         []model.ActivityLog
	saveErr      error
}

func (f *fakeStore) GetSettings(ctx context.Context) (model.Settings, error) { return f.settings, nil }
func (f *fakeStore) SaveSettings(ctx context.Context, settings model.Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.settings = settings
	return nil
}
func (f *fakeStore) ActiveTrades(ctx context.Context) ([]model.Trade, error) {
	return f.activeTrades, nil
}
func (f *fakeStore) ListTrades(ctx context.Context, limit, offset int) ([]model.Trade, error) {
	return f.allTrades, nil
}
func (f *fakeStore) GetTrade(ctx context.Context, id string) (model.Trade, error) {
	for _, t := range f.allTrades {
		if t.ID == id {
			return t, nil
		}
	}
	for _, t := range f.activeTrades {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Trade{}, apperr.ErrNotFound
}

func (f *fakeStore) TradesInRange(ctx context.Context, since time.Time) ([]model.Trade, error) {
	return f.allTrades, nil
}
func (f *fakeStore) ComputeStats(ctx context.Context) (store.Stats, error) {
	return store.Stats{TotalTrades: len(f.allTrades), WinRate: 50, ProfitFactor: 1.5}, nil
}
func (f *fakeStore) ComputeStatsSince(ctx context.Context, since time.Time) (store.Stats, error) {
	return store.Stats{TotalTrades: len(f.allTrades), WinRate: 50, ProfitFactor: 1.5}, nil
}
func (f *fakeStore) RecentLogs(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	return f.logs, nil
}
func (f *fakeStore) AppendLog(ctx context.Context, log model.ActivityLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeEngine struct {
	running     bool
	started     bool
	manualTrade model.Trade
	manualErr   error
	closeTrade  model.Trade
	closeErr    error
	closedCount int
	closeAllErr error
}

func (f *fakeEngine) Start(ctx context.Context, settings model.Settings) error {
	f.started = true
	f.running = true
	return nil
}
func (f *fakeEngine) Stop()      { f.running = false }
func (f *fakeEngine) IsActive() bool { return f.running }
func (f *fakeEngine) UpdateSettings(settings model.Settings) {}
func (f *fakeEngine) Snapshot() model.EngineState { return model.EngineState{} }
func (f *fakeEngine) ManualOpen(ctx context.Context, symbol string, direction model.Side) (model.Trade, error) {
	return f.manualTrade, f.manualErr
}
func (f *fakeEngine) CloseTrade(ctx context.Context, tradeID string) (model.Trade, error) {
	return f.closeTrade, f.closeErr
}
func (f *fakeEngine) CloseAllTrades(ctx context.Context) (int, error) {
	return f.closedCount, f.closeAllErr
}

type fakeClient struct {
	account   model.AccountInfo
	positions []model.ExchangePosition
	price     float64
	klines    []model.Candle
	accErr    error
}

func (f *fakeClient) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, nil
}
func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	return f.klines, nil
}
func (f *fakeClient) GetAccount(ctx context.Context) (model.AccountInfo, error) {
	return f.account, f.accErr
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

func newTestServer() (*Server, *fakeStore, *fakeEngine, *fakeClient) {
	st := &fakeStore{settings: model.DefaultSettings()}
	eng := &fakeEngine{}
	client := &fakeClient{account: model.AccountInfo{Balance: 10000, AvailableBalance: 9000}, price: 100}
	s := NewServer(st, client, eng, NewHub(zerologNop()), [32]byte{}, zerologNop())
	return s, st, eng, client
}

func TestHandleGetSettings_ReturnsCurrentSettings(t *testing.T) {
	s, _, _, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var dto settingsDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dto))
	assert.Equal(t, "binance", dto.ExchangeName)
}

func TestHandleToggleBot_FlipsAutoTradingEnabled(t *testing.T) {
	s, st, _, _ := newTestServer()
	st.settings.APIKeyEncrypted = []byte("x")
	st.settings.APISecretEncrypted = []byte("y")
	before := st.settings.AutoTradingEnabled

	req := httptest.NewRequest(http.MethodPost, "/api/bot/toggle", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, before, st.settings.AutoTradingEnabled)
}

func TestHandleToggleBot_RejectsEnableWithoutCredentials(t *testing.T) {
	s, st, _, _ := newTestServer()
	st.settings.AutoTradingEnabled = false

	req := httptest.NewRequest(http.MethodPost, "/api/bot/toggle", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandleOpenTrade_PlacesManualTradeThroughEngine(t *testing.T) {
	s, _, eng, _ := newTestServer()
	eng.manualTrade = model.Trade{ID: "t1", Symbol: "BTCUSDT", Direction: model.SideLong}

	body, _ := json.Marshal(map[string]string{"symbol": "BTCUSDT", "type": "buy"})
	req := httptest.NewRequest(http.MethodPost, "/api/trades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var trade model.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trade))
	assert.Equal(t, "t1", trade.ID)
}

func TestHandleOpenTrade_RejectsUnknownType(t *testing.T) {
	s, _, _, _ := newTestServer()
	body, _ := json.Marshal(map[string]string{"symbol": "BTCUSDT", "type": "sideways"})
	req := httptest.NewRequest(http.MethodPost, "/api/trades", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCloseTrade_NotFoundSurfacesAs404(t *testing.T) {
	s, _, eng, _ := newTestServer()
	eng.closeErr = apperr.ErrNotFound

	req := httptest.NewRequest(http.MethodPost, "/api/trades/missing/close", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleCloseAllTrades_ReturnsClosedCount(t *testing.T) {
	s, _, eng, _ := newTestServer()
	eng.closedCount = 3

	req := httptest.NewRequest(http.MethodPost, "/api/trades/close-all", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body["closedCount"])
}

func TestHandleGetAccount_ReportsDisconnectedOnError(t *testing.T) {
	s, _, _, client := newTestServer()
	client.accErr = assertError("network down")

	req := httptest.NewRequest(http.MethodGet, "/api/account", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["connected"])
}

func TestHandleGetMarket_DerivesSnapshotFromKlines(t *testing.T) {
	s, _, _, client := newTestServer()
	client.klines = []model.Candle{
		{Close: 100, High: 105, Low: 95, Volume: 10},
		{Close: 110, High: 115, Low: 99, Volume: 20},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/market/BTCUSDT", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var snapshot model.MarketSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, 115.0, snapshot.High24h)
	assert.Equal(t, 95.0, snapshot.Low24h)
	assert.Equal(t, 30.0, snapshot.Volume24h)
}

func TestHandleAutoTradingStatus_ReflectsEngineAndSettings(t *testing.T) {
	s, st, eng, _ := newTestServer()
	eng.running = true
	st.settings.AutoTradingEnabled = true

	req := httptest.NewRequest(http.MethodGet, "/api/auto-trading/status", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["isRunning"])
	assert.True(t, body["enabled"])
}
