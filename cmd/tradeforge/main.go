// Command tradeforge is the process entry point: it loads configuration,
// opens the store, builds an exchange client from the persisted settings,
// and wires the gate, trailing-stop manager, reconciler, engine and
// operator API together before serving, mirroring trader/auto_trader.go's
// wiring at a larger scale.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"tradeforge/internal/api"
	"tradeforge/internal/config"
	"tradeforge/internal/engine"
	"tradeforge/internal/exchange"
	"tradeforge/internal/exchange/binance"
	"tradeforge/internal/exchange/bybit"
	"tradeforge/internal/gate"
	"tradeforge/internal/model"
	"tradeforge/internal/notify"
	"tradeforge/internal/reconcile"
	"tradeforge/internal/store"
	"tradeforge/internal/trailing"
)

const defaultStartingBalance = 10000.0

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("tradeforge: config load failed")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("tradeforge: store open failed")
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settings, err := db.GetSettings(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("tradeforge: load settings failed")
	}

	client := buildClient(cfg, settings, logger)

	startingBalance := defaultStartingBalance
	if account, err := client.GetAccount(ctx); err == nil && account.Balance > 0 {
		startingBalance = account.Balance
	}
	protection := gate.NewProtection(startingBalance)

	hub := api.NewHub(logger)
	notifier := notify.NewMulti(notify.NewLoggingSink(logger), hub)

	trailingMgr := trailing.NewManager(client, db, notifier, protection, logger)
	reconciler := reconcile.NewReconciler(client, db, notifier, protection, logger)
	eng := engine.NewEngine(client, db, trailingMgr, reconciler, protection, notifier, logger)

	server := api.NewServer(db, client, eng, hub, cfg.EncKey, logger)

	if settings.AutoTradingEnabled && len(settings.APIKeyEncrypted) > 0 {
		if err := eng.Start(ctx, settings); err != nil {
			logger.Error().Err(err).Msg("tradeforge: auto-start failed, engine stays idle until toggled")
		}
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("addr", cfg.ListenAddr).Str("exchange", settings.ExchangeName).Msg("tradeforge: serving")
	if err := server.Run(sigCtx, cfg.ListenAddr); err != nil {
		logger.Error().Err(err).Msg("tradeforge: server exited with error")
	}

	eng.Stop()
}

// buildClient selects binance or bybit per settings.ExchangeName, decrypting
// stored credentials if present; an unconfigured exchange still gets a
// client so read-only endpoints (market data, analysis) keep working, it
// will simply reject trading calls upstream.
func buildClient(cfg config.Config, settings model.Settings, logger zerolog.Logger) exchange.Client {
	var apiKey, apiSecret string
	if len(settings.APIKeyEncrypted) > 0 {
		if plain, err := store.DecryptSecret(cfg.EncKey, settings.APIKeyEncrypted); err == nil {
			apiKey = plain
		} else {
			logger.Warn().Err(err).Msg("tradeforge: failed to decrypt API key")
		}
	}
	if len(settings.APISecretEncrypted) > 0 {
		if plain, err := store.DecryptSecret(cfg.EncKey, settings.APISecretEncrypted); err == nil {
			apiSecret = plain
		} else {
			logger.Warn().Err(err).Msg("tradeforge: failed to decrypt API secret")
		}
	}

	if settings.ExchangeName == "bybit" {
		return bybit.New(apiKey, apiSecret, settings.Testnet)
	}
	return binance.New(apiKey, apiSecret, settings.Testnet)
}
