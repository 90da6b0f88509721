// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings.
type Config struct {
	// HTTP server
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Storage. UseMemory skips both databases.
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`
	UseMemory     bool   `envconfig:"USE_MEMORY" default:"false"`

	// Upstream market data
	CoinGeckoURL    string `envconfig:"COINGECKO_URL"`
	CoinGeckoAPIKey string `envconfig:"COINGECKO_API_KEY"`
	CoinbaseURL     string `envconfig:"COINBASE_URL"`
	KrakenURL       string `envconfig:"KRAKEN_URL"`
	BinanceURL      string `envconfig:"BINANCE_URL"`
	BinanceWSURL    string `envconfig:"BINANCE_WS_URL"`
	DisableBinance  bool   `envconfig:"DISABLE_BINANCE_WS" default:"false"`

	// Refresh cycle
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"5m"`
	TopCoinsCount   int           `envconfig:"TOP_COINS_COUNT" default:"200"`
	ChartDays       int           `envconfig:"CHART_DAYS" default:"365"`

	// Derivation policy thresholds
	VolatilityThresholdUSD float64 `envconfig:"VOLATILITY_THRESHOLD_USD" default:"50"`
	HypeRankThreshold      int     `envconfig:"HYPE_RANK_THRESHOLD" default:"100"`
	MoonshotRankThreshold  int     `envconfig:"MOONSHOT_RANK_THRESHOLD" default:"500"`

	// Auth
	AuthPassword string        `envconfig:"AUTH_PASSWORD"`
	SessionTTL   time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; existing variables win.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return &cfg, nil
}

// Validate checks settings that cannot default.
func (c *Config) Validate() error {
	if c.AuthPassword == "" {
		return fmt.Errorf("AUTH_PASSWORD is required")
	}
	if !c.UseMemory {
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required (or set USE_MEMORY=true)")
		}
		if c.ClickhouseDSN == "" {
			return fmt.Errorf("CLICKHOUSE_DSN is required (or set USE_MEMORY=true)")
		}
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}
	return nil
}
