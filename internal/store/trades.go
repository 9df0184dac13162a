package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradeforge/internal/apperr"
	"tradeforge/internal/model"
)

const timeLayout = "2006-01-02 15:04:05.999999999"

func (s *Store) initTradeTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			direction TEXT NOT NULL,
			status TEXT NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL,
			quantity REAL NOT NULL,
			leverage INTEGER NOT NULL,
			stop_loss REAL NOT NULL,
			take_profit REAL NOT NULL,
			profit REAL NOT NULL DEFAULT 0,
			profit_pct REAL NOT NULL DEFAULT 0,
			entry_time DATETIME NOT NULL,
			exit_time DATETIME,
			entry_signals TEXT NOT NULL DEFAULT '[]',
			exchange_order_id TEXT NOT NULL DEFAULT '',
			trailing_stop_active BOOLEAN NOT NULL DEFAULT 0,
			trailing_stop_price REAL,
			highest_profit_seen REAL NOT NULL DEFAULT 0,
			is_auto_trade BOOLEAN NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return err
	}
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol)`)
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`)
	return nil
}

// CreateTrade inserts a new trade row, assigning a fresh uuid if ID is unset.
func (s *Store) CreateTrade(ctx context.Context, t model.Trade) (model.Trade, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	signalsJSON, err := json.Marshal(t.EntrySignals)
	if err != nil {
		return model.Trade{}, fmt.Errorf("store: marshal entry signals: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (id, symbol, direction, status, entry_price, quantity, leverage,
			stop_loss, take_profit, entry_time, entry_signals, exchange_order_id,
			trailing_stop_active, is_auto_trade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Symbol, string(t.Direction), string(t.Status), t.EntryPrice, t.Quantity, t.Leverage,
		t.StopLoss, t.TakeProfit, t.EntryTime.Format(timeLayout), string(signalsJSON), t.ExchangeOrderID,
		t.TrailingStopActive, t.IsAutoTrade)
	if err != nil {
		return model.Trade{}, fmt.Errorf("store: insert trade: %w", err)
	}
	return t, nil
}

// ActiveTrades returns every trade in the active status, used by the
// trailing-stop sweep and reconciliation pass.
func (s *Store) ActiveTrades(ctx context.Context) ([]model.Trade, error) {
	return s.queryTrades(ctx, `WHERE status = ?`, string(model.TradeStatusActive))
}

// ListTrades returns the most recent trades, newest first, for the
// operator-facing trade history endpoint (§6.1).
func (s *Store) ListTrades(ctx context.Context, limit, offset int) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tradeColumns+` FROM trades ORDER BY entry_time DESC LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// TradesInRange returns every trade (any status) whose entry falls on or
// after since, for the operator-facing advanced-stats breakdown (§6.1
// GetAdvancedStats / §6.4 getTradesInDateRange).
func (s *Store) TradesInRange(ctx context.Context, since time.Time) ([]model.Trade, error) {
	return s.queryTrades(ctx, `WHERE entry_time >= ?`, since.Format(timeLayout))
}

// GetTrade fetches a single trade by ID.
func (s *Store) GetTrade(ctx context.Context, id string) (model.Trade, error) {
	trades, err := s.queryTrades(ctx, `WHERE id = ?`, id)
	if err != nil {
		return model.Trade{}, err
	}
	if len(trades) == 0 {
		return model.Trade{}, fmt.Errorf("store: trade %s not found: %w", id, apperr.ErrNotFound)
	}
	return trades[0], nil
}

// UpdateTrailingStop persists a ratchet move: the new stop-loss, the
// highest profit percent ever seen, and the trailing-stop price — the
// three fields the trailing-stop manager advances together.
func (s *Store) UpdateTrailingStop(ctx context.Context, tradeID string, stopLoss, highestProfitSeen, trailingStopPrice float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE trades SET stop_loss = ?, highest_profit_seen = ?, trailing_stop_price = ?
		WHERE id = ?
	`, stopLoss, highestProfitSeen, trailingStopPrice, tradeID)
	if err != nil {
		return fmt.Errorf("store: update trailing stop: %w", err)
	}
	return nil
}

// CloseTrade marks a trade closed with its exit price/time and realized
// profit, returning the updated row.
func (s *Store) CloseTrade(ctx context.Context, tradeID string, exitPrice float64, exitTime time.Time, profit, profitPct float64) (model.Trade, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE trades SET status = ?, exit_price = ?, exit_time = ?, profit = ?, profit_pct = ?
		WHERE id = ?
	`, string(model.TradeStatusClosed), exitPrice, exitTime.Format(timeLayout), profit, profitPct, tradeID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("store: close trade: %w", err)
	}
	return s.GetTrade(ctx, tradeID)
}

// AdoptExternalPosition records an exchange position the store has never
// tracked, per the reconciliation pass's adoption rule (§4.10). stopLoss,
// takeProfit and trailingStopActive are derived by the caller from the
// current risk settings (§4.10/S5), since an externally-opened position was
// never sized by §4.11 and would otherwise be adopted unprotected.
func (s *Store) AdoptExternalPosition(ctx context.Context, pos model.ExchangePosition, stopLoss, takeProfit float64, trailingStopActive bool) (model.Trade, error) {
	direction := model.SideLong
	if pos.PositionSide == model.PositionSideShort {
		direction = model.SideShort
	}
	trade := model.Trade{
		Symbol: pos.Symbol, Direction: direction, Status: model.TradeStatusActive,
		EntryPrice: pos.EntryPrice, Quantity: pos.Quantity, Leverage: pos.Leverage,
		StopLoss: stopLoss, TakeProfit: takeProfit, TrailingStopActive: trailingStopActive,
		EntryTime: time.Now(), IsAutoTrade: false,
	}
	return s.CreateTrade(ctx, trade)
}

// Stats summarizes closed trades for the win-rate/profit-factor metrics.
type Stats struct {
	WinRate      float64
	ProfitFactor float64
	TotalTrades  int
}

// ComputeStats aggregates every closed trade into win rate and profit factor.
func (s *Store) ComputeStats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profit FROM trades WHERE status = ?`, string(model.TradeStatusClosed))
	if err != nil {
		return Stats{}, fmt.Errorf("store: compute stats: %w", err)
	}
	defer rows.Close()
	return statsFromRows(rows)
}

// ComputeStatsSince aggregates closed trades since the given time, backing
// the operator-facing ranged advanced-stats breakdown (§6.1
// GetAdvancedStats).
func (s *Store) ComputeStatsSince(ctx context.Context, since time.Time) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT profit FROM trades WHERE status = ? AND entry_time >= ?`,
		string(model.TradeStatusClosed), since.Format(timeLayout))
	if err != nil {
		return Stats{}, fmt.Errorf("store: compute ranged stats: %w", err)
	}
	defer rows.Close()
	return statsFromRows(rows)
}

func statsFromRows(rows *sql.Rows) (Stats, error) {
	var wins, losses int
	var grossProfit, grossLoss float64
	for rows.Next() {
		var profit float64
		if err := rows.Scan(&profit); err != nil {
			return Stats{}, err
		}
		switch {
		case profit > 0:
			wins++
			grossProfit += profit
		case profit < 0:
			losses++
			grossLoss += -profit
		}
	}

	total := wins + losses
	stats := Stats{TotalTrades: total}
	if total > 0 {
		stats.WinRate = float64(wins) / float64(total) * 100
	}
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	}
	return stats, rows.Err()
}

const tradeColumns = `id, symbol, direction, status, entry_price, exit_price, quantity, leverage,
	stop_loss, take_profit, profit, profit_pct, entry_time, exit_time, entry_signals,
	exchange_order_id, trailing_stop_active, trailing_stop_price, highest_profit_seen, is_auto_trade`

func (s *Store) queryTrades(ctx context.Context, whereClause string, args ...interface{}) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tradeColumns+` FROM trades `+whereClause, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query trades: %w", err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows *sql.Rows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var direction, status, entryTime string
		var exitPrice, trailingStopPrice sql.NullFloat64
		var exitTime sql.NullString
		var signalsJSON string

		err := rows.Scan(&t.ID, &t.Symbol, &direction, &status, &t.EntryPrice, &exitPrice, &t.Quantity, &t.Leverage,
			&t.StopLoss, &t.TakeProfit, &t.Profit, &t.ProfitPct, &entryTime, &exitTime, &signalsJSON,
			&t.ExchangeOrderID, &t.TrailingStopActive, &trailingStopPrice, &t.HighestProfitSeen, &t.IsAutoTrade)
		if err != nil {
			return nil, fmt.Errorf("store: scan trade: %w", err)
		}

		t.Direction = model.Side(direction)
		t.Status = model.TradeStatus(status)
		t.EntryTime = parseTime(entryTime)
		if exitPrice.Valid {
			v := exitPrice.Float64
			t.ExitPrice = &v
		}
		if exitTime.Valid {
			v := parseTime(exitTime.String)
			t.ExitTime = &v
		}
		if trailingStopPrice.Valid {
			v := trailingStopPrice.Float64
			t.TrailingStopPrice = &v
		}
		if err := json.Unmarshal([]byte(signalsJSON), &t.EntrySignals); err != nil {
			t.EntrySignals = nil
		}

		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func parseTime(value string) time.Time {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
