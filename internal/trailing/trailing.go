// Package trailing implements the Trailing-Stop Manager (§4.9) — the
// hardest sub-component: a percentage-based, strictly monotone ratchet on
// locked profit, rewriting the exchange stop-loss order on every ratchet
// move.
package trailing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
)

// errPositionNotFound is returned by resolvePrices when the exchange has no
// open position matching the trade's symbol and side, forcing the caller
// to fall back to the stored entry price.
var errPositionNotFound = errors.New("trailing: matching exchange position not found")

// legacyPriceHeuristic: a stored highestPrice above this looks like a raw
// price rather than a profit percent (percent-of-profit should never
// exceed this in practice), per §4.9's legacy-data robustness rule.
const legacyPriceHeuristic = 50.0

// Params carries the subset of Settings the trailing manager consumes.
type Params struct {
	TrailingStopEnabled           bool
	TrailingStopPercent           float64
	TrailingStopActivationPercent float64
}

// Store is the narrow subset of the Trade Store the trailing manager
// needs: persisting ratchet moves and closing stopped-out trades.
type Store interface {
	UpdateTrailingStop(ctx context.Context, tradeID string, stopLoss float64, highestProfitSeen float64, trailingStopPrice float64) error
	CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error)
}

// Notifier is the subset of the notification hooks the trailing manager
// fires.
type Notifier interface {
	OnTradeClose(trade model.Trade)
	OnTrailingUpdate(trade model.Trade, newStop float64)
}

// AccountProtection is the subset of the account-protection state machine
// the trailing manager must report closed-trade results to.
type AccountProtection interface {
	RecordTradeResult(profit float64)
}

// Manager sweeps every active, trailing-enabled trade once per tick.
// peakCache mirrors the donor's peakPnLCache/peakPnLCacheMutex pattern: an
// in-memory mirror of the persisted highestProfitSeen, kept for quick
// reads across the sweep.
type Manager struct {
	exchangeClient exchange.Client
	store          Store
	notifier       Notifier
	protection     AccountProtection
	logger         zerolog.Logger

	peakCache      map[string]float64
	peakCacheMutex sync.RWMutex
}

func NewManager(client exchange.Client, store Store, notifier Notifier, protection AccountProtection, logger zerolog.Logger) *Manager {
	return &Manager{
		exchangeClient: client, store: store, notifier: notifier, protection: protection,
		logger: logger, peakCache: make(map[string]float64),
	}
}

// Sweep processes every active trade with TrailingStopActive set, per the
// activation, ratchet, stop-hit and persistence rules of §4.9.
func (m *Manager) Sweep(ctx context.Context, trades []model.Trade, p Params) {
	if !p.TrailingStopEnabled {
		return
	}
	for i := range trades {
		t := trades[i]
		if t.Status != model.TradeStatusActive || !t.TrailingStopActive {
			continue
		}
		m.processTrade(ctx, t, p)
	}
}

func (m *Manager) processTrade(ctx context.Context, t model.Trade, p Params) {
	logger := m.logger.With().Str("trade_id", t.ID).Str("symbol", t.Symbol).Logger()

	highestSeen := m.legacySafeHighest(t)

	actualEntry, currentPrice, err := m.resolvePrices(ctx, t)
	if err != nil {
		logger.Warn().Err(err).Msg("trailing stop: falling back to stored entry price")
		actualEntry = t.EntryPrice
		currentPrice, err = m.exchangeClient.GetPrice(ctx, t.Symbol)
		if err != nil {
			logger.Error().Err(err).Msg("trailing stop: unable to resolve current price, skipping")
			return
		}
	}

	currentProfitPct := profitPercent(t.Direction, actualEntry, currentPrice)

	activated := t.TrailingStopPrice != nil || currentProfitPct >= p.TrailingStopActivationPercent
	if !activated {
		return
	}

	if currentProfitPct > highestSeen {
		highestSeen = currentProfitPct
	}
	m.peakCacheMutex.Lock()
	m.peakCache[t.ID] = highestSeen
	m.peakCacheMutex.Unlock()

	lockedPct := highestSeen - p.TrailingStopPercent
	candidate := candidateStop(t.Direction, actualEntry, lockedPct)

	newStop := candidate
	ratchetMoved := t.TrailingStopPrice == nil
	if t.TrailingStopPrice != nil {
		existing := *t.TrailingStopPrice
		if t.Direction == model.SideLong {
			newStop = max(existing, candidate)
		} else {
			newStop = min(existing, candidate)
		}
		ratchetMoved = newStop != existing
	}

	highestAdvanced := highestSeen > m.legacySafeHighest(t)
	if ratchetMoved || highestAdvanced {
		if ratchetMoved {
			positionSide := model.PositionSideLong
			if t.Direction == model.SideShort {
				positionSide = model.PositionSideShort
			}
			if err := m.exchangeClient.UpdateStopLossOrder(ctx, t.Symbol, positionSide, t.Quantity, newStop); err != nil {
				logger.Error().Err(err).Msg("trailing stop: failed to update exchange stop order; local state still advanced, exchange order is resent only on the next ratchet move")
			} else {
				m.notifier.OnTrailingUpdate(t, newStop)
			}
		}
		if err := m.store.UpdateTrailingStop(ctx, t.ID, newStop, highestSeen, newStop); err != nil {
			logger.Error().Err(err).Msg("trailing stop: failed to persist ratchet")
		}
	}

	if stopHit(t.Direction, currentPrice, newStop) {
		m.closeOnStopHit(ctx, t, currentPrice, logger)
	}
}

// legacySafeHighest applies the >50 legacy-data heuristic: a stored value
// that looks like a price rather than a percent is treated as 0.
func (m *Manager) legacySafeHighest(t model.Trade) float64 {
	if t.HighestProfitSeen > legacyPriceHeuristic {
		return 0
	}
	return t.HighestProfitSeen
}

func (m *Manager) resolvePrices(ctx context.Context, t model.Trade) (entry, price float64, err error) {
	positions, err := m.exchangeClient.GetPositions(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, pos := range positions {
		if pos.Symbol != t.Symbol {
			continue
		}
		wantSide := model.PositionSideLong
		if t.Direction == model.SideShort {
			wantSide = model.PositionSideShort
		}
		if pos.PositionSide != wantSide {
			continue
		}
		price, priceErr := m.exchangeClient.GetPrice(ctx, t.Symbol)
		if priceErr != nil {
			return 0, 0, priceErr
		}
		return pos.EntryPrice, price, nil
	}
	return 0, 0, errPositionNotFound
}

func (m *Manager) closeOnStopHit(ctx context.Context, t model.Trade, exitPrice float64, logger zerolog.Logger) {
	hedging, err := m.exchangeClient.GetPositionMode(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("trailing stop: failed to detect hedging mode on stop-hit close")
	}

	if _, err := m.exchangeClient.ClosePosition(ctx, t.Symbol, t.Direction, t.Quantity, hedging); err != nil {
		logger.Error().Err(err).Msg("trailing stop: failed to close position at stop-hit")
		return
	}

	profit := (exitPrice - t.EntryPrice) * t.Quantity
	if t.Direction == model.SideShort {
		profit = (t.EntryPrice - exitPrice) * t.Quantity
	}
	profitPct := profitPercent(t.Direction, t.EntryPrice, exitPrice)

	closed, err := m.store.CloseTrade(ctx, t.ID, exitPrice, time.Now(), profit, profitPct)
	if err != nil {
		logger.Error().Err(err).Msg("trailing stop: failed to persist trade close")
		return
	}

	m.protection.RecordTradeResult(profit)
	m.notifier.OnTradeClose(closed)

	m.peakCacheMutex.Lock()
	delete(m.peakCache, t.ID)
	m.peakCacheMutex.Unlock()
}

func profitPercent(direction model.Side, entry, price float64) float64 {
	if entry == 0 {
		return 0
	}
	if direction == model.SideShort {
		return (entry - price) / entry * 100
	}
	return (price - entry) / entry * 100
}

func candidateStop(direction model.Side, entry, lockedPct float64) float64 {
	if direction == model.SideShort {
		return entry * (1 - lockedPct/100)
	}
	return entry * (1 + lockedPct/100)
}

func stopHit(direction model.Side, price, stop float64) bool {
	if direction == model.SideShort {
		return price > stop
	}
	return price < stop
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
