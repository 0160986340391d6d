package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"territory-engine/internal/constants"
)

type Config struct {
	DBPath         string
	ServerPort     string
	LogLevel       string
	TuningPath     string
	TickerInterval time.Duration
	// WebhookURLs receive capture events; empty disables delivery.
	WebhookURLs []string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:         getEnv("DB_PATH", "territory.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TuningPath:     getEnv("TUNING_PATH", ""),
		TickerInterval: constants.DefaultTickerInterval,
	}

	if raw := os.Getenv("TICKER_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid TICKER_INTERVAL %q: %w", raw, err)
		}
		cfg.TickerInterval = d
	}
	if cfg.TickerInterval < constants.MinTickerInterval {
		cfg.TickerInterval = constants.MinTickerInterval
	}
	if cfg.TickerInterval > constants.MaxTickerInterval {
		cfg.TickerInterval = constants.MaxTickerInterval
	}

	if raw := os.Getenv("CAPTURE_WEBHOOK_URLS"); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.WebhookURLs = append(cfg.WebhookURLs, u)
			}
		}
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("tuning_path", cfg.TuningPath).
		Dur("ticker_interval", cfg.TickerInterval).
		Int("webhook_urls", len(cfg.WebhookURLs)).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
