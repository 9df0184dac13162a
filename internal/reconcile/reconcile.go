// Package reconcile implements the store-vs-exchange reconciliation pass
// (§4.10): trades the store still thinks are active but the exchange has
// already closed (manual intervention, liquidation, a missed fill) are
// closed off locally; exchange positions the store has never heard of are
// adopted as externally-opened trades.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tradeforge/internal/exchange"
	"tradeforge/internal/model"
	"tradeforge/internal/sizing"
)

// Store is the narrow subset of the Trade Store reconciliation needs.
type Store interface {
	ActiveTrades(ctx context.Context) ([]model.Trade, error)
	CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error)
	AdoptExternalPosition(ctx context.Context, pos model.ExchangePosition, stopLoss, takeProfit float64, trailingStopActive bool) (model.Trade, error)
}

// Notifier is the subset of notification hooks reconciliation fires.
type Notifier interface {
	OnTradeClose(trade model.Trade)
}

// AccountProtection is the subset of the account-protection state machine
// reconciliation reports closed-trade results to.
type AccountProtection interface {
	RecordTradeResult(profit float64)
}

// Reconciler performs the periodic two-way diff.
type Reconciler struct {
	exchangeClient exchange.Client
	store          Store
	notifier       Notifier
	protection     AccountProtection
	logger         zerolog.Logger
}

func NewReconciler(client exchange.Client, store Store, notifier Notifier, protection AccountProtection, logger zerolog.Logger) *Reconciler {
	return &Reconciler{exchangeClient: client, store: store, notifier: notifier, protection: protection, logger: logger}
}

type positionKey struct {
	symbol string
	side   model.PositionSide
}

// Run executes one reconciliation pass. An error loading the exchange
// positions or the active trades aborts the pass before anything changes;
// a failure while closing or adopting a single position is logged and the
// pass continues with the remaining positions. settings
// supplies the risk parameters (§4.10/S5) an adopted position is protected
// with, since an externally-opened position was never sized by §4.11.
func (r *Reconciler) Run(ctx context.Context, settings model.Settings) error {
	positions, err := r.exchangeClient.GetPositions(ctx)
	if err != nil {
		return err
	}
	trades, err := r.store.ActiveTrades(ctx)
	if err != nil {
		return err
	}

	positionsByKey := make(map[positionKey]model.ExchangePosition, len(positions))
	for _, pos := range positions {
		positionsByKey[positionKey{pos.Symbol, pos.PositionSide}] = pos
	}

	matched := make(map[positionKey]bool, len(trades))
	for _, t := range trades {
		key := positionKey{t.Symbol, tradePositionSide(t.Direction)}
		if _, stillOpen := positionsByKey[key]; stillOpen {
			matched[key] = true
			continue
		}
		r.closeOffEngine(ctx, t)
	}

	for key, pos := range positionsByKey {
		if matched[key] {
			continue
		}
		r.adopt(ctx, pos, settings)
	}

	return nil
}

// closeOffEngine handles a store-active trade whose exchange position no
// longer exists. The exact fill price of the off-engine close is not
// observable through the positions/account endpoints, so the current mark
// price is used as the exit-price approximation.
func (r *Reconciler) closeOffEngine(ctx context.Context, t model.Trade) {
	logger := r.logger.With().Str("trade_id", t.ID).Str("symbol", t.Symbol).Logger()

	exitPrice, err := r.exchangeClient.GetPrice(ctx, t.Symbol)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile: failed to fetch mark price for off-engine close, skipping this pass")
		return
	}

	profit := (exitPrice - t.EntryPrice) * t.Quantity
	if t.Direction == model.SideShort {
		profit = (t.EntryPrice - exitPrice) * t.Quantity
	}
	profitPct := 0.0
	if t.EntryPrice != 0 {
		profitPct = profit / (t.EntryPrice * t.Quantity) * 100
	}

	closed, err := r.store.CloseTrade(ctx, t.ID, exitPrice, time.Now(), profit, profitPct)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile: failed to persist off-engine close")
		return
	}

	logger.Warn().Float64("exit_price", exitPrice).Float64("profit", profit).
		Msg("reconcile: trade closed off-engine, adopted close into local history")

	r.protection.RecordTradeResult(profit)
	r.notifier.OnTradeClose(closed)
}

// adopt records an exchange position the store has never tracked, e.g.
// one opened manually or by another process sharing the account. Since the
// position was never sized by §4.11, stop/target levels are derived from
// the current risk settings (§4.10/S5) and trailing is armed to match the
// current settings, the same as any engine-placed trade.
func (r *Reconciler) adopt(ctx context.Context, pos model.ExchangePosition, settings model.Settings) {
	logger := r.logger.With().Str("symbol", pos.Symbol).Logger()

	stopLoss, takeProfit := sizing.RiskLevels(pos.PositionSide == model.PositionSideShort, pos.EntryPrice, settings.MaxRiskPerTrade, settings.RiskRewardRatio)

	trade, err := r.store.AdoptExternalPosition(ctx, pos, stopLoss, takeProfit, settings.TrailingStopEnabled)
	if err != nil {
		logger.Error().Err(err).Msg("reconcile: failed to adopt untracked exchange position")
		return
	}
	logger.Info().Str("trade_id", trade.ID).Msg("reconcile: adopted untracked exchange position")
}

func tradePositionSide(direction model.Side) model.PositionSide {
	if direction == model.SideShort {
		return model.PositionSideShort
	}
	return model.PositionSideLong
}
