// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console-friendly zerolog.Logger in debug runs and a plain
// JSON logger otherwise, matching the donor's habit of human-readable dev
// logs and machine-parseable production logs.
func New(level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var writer = os.Stdout
	logger := zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
	if pretty {
		logger = logger.Output(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen})
	}
	return logger
}

// ForSymbol returns a child logger tagged with the trading pair, the
// donor's convention of threading the symbol through every per-pair log
// line in the engine loop.
func ForSymbol(l zerolog.Logger, symbol string) zerolog.Logger {
	return l.With().Str("symbol", symbol).Logger()
}

// ForTrade returns a child logger tagged with a trade id.
func ForTrade(l zerolog.Logger, tradeID string) zerolog.Logger {
	return l.With().Str("trade_id", tradeID).Logger()
}
