package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tradeforge/internal/model"
)

func (s *Store) initLogTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			type TEXT NOT NULL,
			indicator TEXT NOT NULL,
			value REAL NOT NULL,
			strength REAL NOT NULL,
			timestamp DATETIME NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_signals_symbol ON signals(symbol)`)

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS activity_logs (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_activity_logs_timestamp ON activity_logs(timestamp)`)
	return nil
}

// RecordSignal appends an immutable signal row.
func (s *Store) RecordSignal(ctx context.Context, sig model.Signal) error {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (id, symbol, type, indicator, value, strength, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, sig.ID, sig.Symbol, string(sig.Type), sig.Indicator, sig.Value, sig.Strength, sig.Timestamp.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store: record signal: %w", err)
	}
	return nil
}

// RecentSignals returns the most recent signals for a symbol, newest first.
func (s *Store) RecentSignals(ctx context.Context, symbol string, limit int) ([]model.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, type, indicator, value, strength, timestamp
		FROM signals WHERE symbol = ? ORDER BY timestamp DESC LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent signals: %w", err)
	}
	defer rows.Close()

	var signals []model.Signal
	for rows.Next() {
		var sig model.Signal
		var typ, ts string
		if err := rows.Scan(&sig.ID, &sig.Symbol, &typ, &sig.Indicator, &sig.Value, &sig.Strength, &ts); err != nil {
			return nil, err
		}
		sig.Type = model.SignalKind(typ)
		sig.Timestamp = parseTime(ts)
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// AppendLog appends an immutable activity-log row.
func (s *Store) AppendLog(ctx context.Context, log model.ActivityLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, level, message, details, source, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.ID, string(log.Level), log.Message, log.Details, log.Source, log.Timestamp.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("store: append log: %w", err)
	}
	return nil
}

// RecentLogs returns the most recent activity-log entries, newest first.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]model.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, level, message, details, source, timestamp
		FROM activity_logs ORDER BY timestamp DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ActivityLog
	for rows.Next() {
		var log model.ActivityLog
		var level, ts string
		if err := rows.Scan(&log.ID, &level, &log.Message, &log.Details, &log.Source, &ts); err != nil {
			return nil, err
		}
		log.Level = model.LogLevel(level)
		log.Timestamp = parseTime(ts)
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
