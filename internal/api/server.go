// Package api exposes the §6.1 operator read/write surface over HTTP,
// generalizing api/tactics.go's gin-handler-per-operation idiom from
// per-user tactic CRUD to the single-operator trading-engine surface this
// module has no user accounts for.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tradeforge/internal/engine"
	"tradeforge/internal/exchange"
	"tradeforge/internal/metrics"
	"tradeforge/internal/model"
	"tradeforge/internal/store"
)

// Store is the subset of the Trade Store the operator surface reads and
// writes directly, mirroring the narrow per-consumer Store interfaces
// already used by internal/engine, internal/trailing and internal/reconcile
// over the same concrete *store.Store.
type Store interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, settings model.Settings) error

	ActiveTrades(ctx context.Context) ([]model.Trade, error)
	ListTrades(ctx context.Context, limit, offset int) ([]model.Trade, error)
	GetTrade(ctx context.Context, id string) (model.Trade, error)
	TradesInRange(ctx context.Context, since time.Time) ([]model.Trade, error)

	ComputeStats(ctx context.Context) (store.Stats, error)
	ComputeStatsSince(ctx context.Context, since time.Time) (store.Stats, error)

	RecentLogs(ctx context.Context, limit int) ([]model.ActivityLog, error)
	AppendLog(ctx context.Context, log model.ActivityLog) error
}

// Engine is the subset of *engine.Engine the operator surface drives.
type Engine interface {
	Start(ctx context.Context, settings model.Settings) error
	Stop()
	IsActive() bool
	UpdateSettings(settings model.Settings)
	Snapshot() model.EngineState
	ManualOpen(ctx context.Context, symbol string, direction model.Side) (model.Trade, error)
	CloseTrade(ctx context.Context, tradeID string) (model.Trade, error)
	CloseAllTrades(ctx context.Context) (int, error)
}

var _ Engine = (*engine.Engine)(nil)

// Server wires the store, exchange client, engine and realtime hub behind
// one gin router.
type Server struct {
	store   Store
	client  exchange.Client
	engine  Engine
	hub     *Hub
	encKey  [32]byte
	logger  zerolog.Logger
	httpSrv *http.Server
}

// NewServer builds a Server around a caller-constructed Hub, so the same
// Hub instance both serves /ws connections and receives the engine's
// notify.Hooks calls through whatever notify.Multi the caller wires it
// into — the engine must exist before the Server can, so the Hub can't be
// built inside NewServer without breaking that wiring order. encKey
// seals/opens the exchange API credentials settings carries at rest (see
// internal/store/crypto.go).
func NewServer(st Store, client exchange.Client, eng Engine, hub *Hub, encKey [32]byte, logger zerolog.Logger) *Server {
	return &Server{
		store:  st,
		client: client,
		engine: eng,
		hub:    hub,
		encKey: encKey,
		logger: logger,
	}
}

// Router builds the gin engine with every §6.1 operation registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.GET("/api/settings", s.handleGetSettings)
	r.PUT("/api/settings", s.handleUpdateSettings)
	r.POST("/api/bot/toggle", s.handleToggleBot)
	r.POST("/api/exchange/test", s.handleTestExchange)

	r.GET("/api/trades/active", s.handleListActiveTrades)
	r.GET("/api/trades/history", s.handleListTradeHistory)
	r.GET("/api/trades/:id", s.handleGetTrade)
	r.POST("/api/trades", s.handleOpenTrade)
	r.POST("/api/trades/:id/close", s.handleCloseTrade)
	r.POST("/api/trades/close-all", s.handleCloseAllTrades)

	r.GET("/api/account", s.handleGetAccount)
	r.GET("/api/stats/summary", s.handleGetStatsSummary)
	r.GET("/api/stats/advanced", s.handleGetAdvancedStats)

	r.GET("/api/market/:symbol", s.handleGetMarket)
	r.GET("/api/analyze/:symbol", s.handleAnalyze)
	r.GET("/api/analyze-mtf/:symbol", s.handleAnalyzeMTF)
	r.GET("/api/ai-prediction/:symbol", s.handleGetAIPrediction)

	r.POST("/api/auto-trading/start", s.handleStartAutoTrading)
	r.POST("/api/auto-trading/stop", s.handleStopAutoTrading)
	r.GET("/api/auto-trading/status", s.handleAutoTradingStatus)

	r.GET("/ws", s.handleRealtimePush)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(started)).
			Msg("api: request served")
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Router()}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}
