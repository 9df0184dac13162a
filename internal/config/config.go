// Package config loads the process-level settings Settings can't carry
// itself: the database path, the HTTP listen address, the encryption key
// sealing exchange credentials at rest, and the log level. It follows
// bitunix-bot's internal/cfg.Load env-var idiom: godotenv populates the
// process environment, then each field falls back to a default if unset.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds everything the engine needs before it can open the store
// and talk to an exchange; Settings (internal/model) holds the rest and
// lives in the store, mutable at runtime through the operator surface.
type Config struct {
	DBPath     string
	ListenAddr string
	LogLevel   zerolog.Level
	EncKey     [32]byte
	DryRun     bool
}

const (
	envDBPath     = "TRADEFORGE_DB_PATH"
	envListenAddr = "TRADEFORGE_LISTEN_ADDR"
	envLogLevel   = "TRADEFORGE_LOG_LEVEL"
	envEncKey     = "TRADEFORGE_ENC_KEY"
	envDryRun     = "TRADEFORGE_DRY_RUN"

	defaultDBPath     = "tradeforge.db"
	defaultListenAddr = ":8080"
)

// Load reads a .env file if present (ignoring its absence) and builds a
// Config from the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	level, err := zerolog.ParseLevel(getEnvOrDefault(envLogLevel, "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	encKey, err := loadEncKey()
	if err != nil {
		return Config{}, err
	}

	return Config{
		DBPath:     getEnvOrDefault(envDBPath, defaultDBPath),
		ListenAddr: getEnvOrDefault(envListenAddr, defaultListenAddr),
		LogLevel:   level,
		EncKey:     encKey,
		DryRun:     getBoolOrDefault(envDryRun, false),
	}, nil
}

// loadEncKey reads a 32-byte hex-encoded key from TRADEFORGE_ENC_KEY. A
// key is required: without one, exchange credentials could never be
// decrypted consistently across restarts.
func loadEncKey() ([32]byte, error) {
	var key [32]byte
	raw := os.Getenv(envEncKey)
	if raw == "" {
		return key, fmt.Errorf("config: %s is required (32 random bytes, hex-encoded)", envEncKey)
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return key, fmt.Errorf("config: decode %s: %w", envEncKey, err)
	}
	if len(decoded) != len(key) {
		return key, fmt.Errorf("config: %s must decode to 32 bytes, got %d", envEncKey, len(decoded))
	}
	copy(key[:], decoded)
	return key, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
