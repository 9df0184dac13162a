// Package engine implements the scheduler loop (§4.1), the per-symbol
// decision cascade (§4.7) and trade execution (§4.11/§4.12), wiring every
// analyzer, the gate, the trailing-stop manager and reconciliation into one
// tick body. Generalized from trader/auto_trader.go's Run/Stop/runCycle
// ticker-plus-stop-channel idiom.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradeforge/internal/exchange"
	"tradeforge/internal/gate"
	"tradeforge/internal/metrics"
	"tradeforge/internal/model"
	"tradeforge/internal/notify"
	"tradeforge/internal/reconcile"
	"tradeforge/internal/trailing"
)

const (
	tickPeriod    = 60 * time.Second
	startupDelay  = 5 * time.Second
	defaultLeverage = 10
	hedgingCacheTTL = 60 * time.Second
)

// Store is the subset of the Trade Store the engine's tick body needs
// directly; the trailing manager and reconciler hold their own narrower
// interfaces over the same concrete store.
type Store interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	ActiveTrades(ctx context.Context) ([]model.Trade, error)
	GetTrade(ctx context.Context, id string) (model.Trade, error)
	CreateTrade(ctx context.Context, t model.Trade) (model.Trade, error)
	CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error)
	AppendLog(ctx context.Context, log model.ActivityLog) error
	RecordSignal(ctx context.Context, sig model.Signal) error
}

// Engine drives the scan-decide-execute loop. At most one loop runs
// concurrently. EngineState is mutated by that loop and also by the
// operator-initiated calls (ManualOpen records its trade, UpdateSettings
// clears the hedging cache, CloseTrade refreshes it), always under stateMu.
type Engine struct {
	client     exchange.Client
	store      Store
	trailing   *trailing.Manager
	reconciler *reconcile.Reconciler
	protection *gate.Protection
	notifier   notify.Hooks
	logger     zerolog.Logger

	state   *model.EngineState
	stateMu sync.RWMutex

	settingsMu sync.RWMutex
	settings   model.Settings

	symbolLocksMu sync.Mutex
	symbolLocks   map[string]*sync.Mutex

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewEngine(client exchange.Client, store Store, trailingMgr *trailing.Manager, reconciler *reconcile.Reconciler, protection *gate.Protection, notifier notify.Hooks, logger zerolog.Logger) *Engine {
	return &Engine{
		client: client, store: store, trailing: trailingMgr, reconciler: reconciler,
		protection: protection, notifier: notifier, logger: logger,
		state:       model.NewEngineState(),
		symbolLocks: make(map[string]*sync.Mutex),
	}
}

// Start launches the tick loop if not already running.
func (e *Engine) Start(ctx context.Context, settings model.Settings) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return nil
	}

	e.settingsMu.Lock()
	e.settings = settings
	e.settingsMu.Unlock()

	e.running = true
	e.stateMu.Lock()
	e.state.Running = true
	e.stateMu.Unlock()
	e.stopCh = make(chan struct{})
	metrics.SetEngineRunning(true)

	e.wg.Add(1)
	go e.run(ctx)
	return nil
}

// Stop halts the loop. An in-flight tick finishes its current remote call
// but starts no new per-symbol work once cancellation is observed.
func (e *Engine) Stop() {
	e.runMu.Lock()
	if !e.running {
		e.runMu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.runMu.Unlock()

	e.wg.Wait()
	e.stateMu.Lock()
	e.state.Running = false
	e.stateMu.Unlock()
	metrics.SetEngineRunning(false)
}

// IsActive reports whether the loop is running.
func (e *Engine) IsActive() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// UpdateSettings hot-swaps the in-memory settings; the next tick picks
// them up. Per §4.2, a settings change invalidates both the exchange
// client's position-mode cache and the engine's own mirror of it, so a
// hedging-mode flip takes effect on the very next order instead of up to
// hedgingCacheTTL later.
func (e *Engine) UpdateSettings(settings model.Settings) {
	e.settingsMu.Lock()
	e.settings = settings
	e.settingsMu.Unlock()

	e.client.InvalidatePositionModeCache()
	e.stateMu.Lock()
	e.state.HedgingModeCacheTime = time.Time{}
	e.stateMu.Unlock()
}

func (e *Engine) currentSettings() model.Settings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return e.settings
}

// Snapshot returns a deep copy of the scheduler state, safe for concurrent
// readers such as the operator API; every writer of the underlying
// EngineState holds stateMu.
func (e *Engine) Snapshot() model.EngineState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state.Snapshot()
}

func (e *Engine) dailyTradeCount() int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state.DailyTradeCount
}

func (e *Engine) lastTradeTime(symbol string) (time.Time, bool) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	t, ok := e.state.LastTradeTime[symbol]
	return t, ok
}

// recordTradeOpened advances the cooldown map and daily trade count after
// a successful order placement.
func (e *Engine) recordTradeOpened(symbol string) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.state.LastTradeTime[symbol] = time.Now()
	e.state.DailyTradeCount++
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	select {
	case <-time.After(startupDelay):
	case <-e.stopCh:
		return
	}

	e.safeTick(ctx)

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.safeTick(ctx)
		case <-e.stopCh:
			return
		}
	}
}

// safeTick wraps runTick so a panic in one tick never kills the loop
// goroutine; the panic is logged like any other per-tick failure.
func (e *Engine) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Msg("engine: tick panicked, recovered")
		}
	}()

	started := time.Now()
	e.runTick(ctx)
	metrics.RecordCycleDuration(time.Since(started).Seconds())
}

// runTick executes the six steps of §4.1 in order.
func (e *Engine) runTick(ctx context.Context) {
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("engine: failed to reload settings, using last-known snapshot")
		settings = e.currentSettings()
	} else {
		e.UpdateSettings(settings)
	}

	if !settings.AutoTradingEnabled {
		e.runReconcile(ctx, settings)
		e.runTrailingSweep(ctx, settings)
		return
	}

	e.rollDailyCounters(ctx)

	skipAnalysis := e.dailyTradeCount() >= settings.MaxDailyTrades

	e.runReconcile(ctx, settings)

	if !skipAnalysis {
		for _, symbol := range settings.Pairs {
			select {
			case <-e.stopCh:
				e.logger.Info().Msg("engine: stop requested, skipping remaining symbols this tick")
				return
			default:
			}
			e.decideSymbol(ctx, symbol, settings)
		}
	} else {
		e.logger.Info().Int("daily_trade_count", e.dailyTradeCount()).Msg("engine: daily trade cap reached, skipping analysis this tick")
	}

	e.runTrailingSweep(ctx, settings)
}

func (e *Engine) runReconcile(ctx context.Context, settings model.Settings) {
	if err := e.reconciler.Run(ctx, settings); err != nil {
		e.logger.Error().Err(err).Msg("engine: reconciliation pass failed")
	}
}

func (e *Engine) runTrailingSweep(ctx context.Context, settings model.Settings) {
	trades, err := e.store.ActiveTrades(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("engine: failed to load active trades for trailing sweep")
		return
	}
	e.trailing.Sweep(ctx, trades, trailing.Params{
		TrailingStopEnabled:           settings.TrailingStopEnabled,
		TrailingStopPercent:           settings.TrailingStopPercent,
		TrailingStopActivationPercent: settings.TrailingStopActivationPercent,
	})
}

// rollDailyCounters resets the daily trade count and account-protection
// counters at local-date rollover.
func (e *Engine) rollDailyCounters(ctx context.Context) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	e.stateMu.Lock()
	sameDay := e.state.DayAnchor.Equal(today)
	if !sameDay {
		e.state.DayAnchor = today
		e.state.DailyTradeCount = 0
	}
	e.stateMu.Unlock()
	if sameDay {
		return
	}

	account, err := e.client.GetAccount(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("engine: failed to fetch account balance for daily rollover")
		return
	}
	e.protection.ResetDaily(account.Balance)
	metrics.UpdateAccountMetrics(0, account.Balance, 0, 0)
}

// hedgingMode consults the engine's 60s cache before asking the exchange,
// mirroring EngineState's HedgingModeCached/HedgingModeCacheTime fields.
func (e *Engine) hedgingMode(ctx context.Context) (bool, error) {
	e.stateMu.RLock()
	cached, cacheTime := e.state.HedgingModeCached, e.state.HedgingModeCacheTime
	e.stateMu.RUnlock()
	if time.Since(cacheTime) < hedgingCacheTTL {
		return cached, nil
	}

	hedging, err := e.client.GetPositionMode(ctx)
	if err != nil {
		return cached, err
	}

	e.stateMu.Lock()
	e.state.HedgingModeCached = hedging
	e.state.HedgingModeCacheTime = time.Now()
	e.stateMu.Unlock()
	return hedging, nil
}

func (e *Engine) symbolLock(symbol string) *sync.Mutex {
	e.symbolLocksMu.Lock()
	defer e.symbolLocksMu.Unlock()
	lock, ok := e.symbolLocks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		e.symbolLocks[symbol] = lock
	}
	return lock
}

func sideFromSignal(signal model.SignalKind) model.Side {
	if signal == model.SignalSell {
		return model.SideShort
	}
	return model.SideLong
}

func orderSideFromDirection(direction model.Side) exchange.OrderSide {
	if direction == model.SideShort {
		return exchange.OrderSideSell
	}
	return exchange.OrderSideBuy
}
