// Package derive transforms raw market payloads into derived market-state
// signals. Every function here is total: missing or malformed input degrades
// the affected fields to nil (or an empty default), never the sibling fields
// and never the whole result.
package derive

import (
	"time"

	"market-context-lab/internal/domain"
)

// Config holds the policy constants of the derivation engine. The threshold
// values are operator policy, not derived quantities; they are injected
// rather than hardcoded at use sites.
type Config struct {
	// MinChartSamples is the minimum price-series length required before any
	// chart signal is computed.
	MinChartSamples int
	// ShortWindow and LongWindow are the trailing moving-average window
	// sizes. Both windows end at the last sample.
	ShortWindow int
	LongWindow  int
	// VolatilityThresholdUSD is the cross-exchange price disparity (USD)
	// above which the market is flagged volatile.
	VolatilityThresholdUSD float64
	// HypeRankThreshold marks attention decoupled from capitalization: the
	// top trending asset ranking below this market-cap rank.
	HypeRankThreshold int
	// MoonshotRankThreshold marks retail speculation: any trending asset
	// ranking below this market-cap rank.
	MoonshotRankThreshold int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		MinChartSamples:        200,
		ShortWindow:            50,
		LongWindow:             200,
		VolatilityThresholdUSD: 50,
		HypeRankThreshold:      100,
		MoonshotRankThreshold:  500,
	}
}

// Engine computes DerivedMetrics from raw payloads. The only ambient input
// is the clock, injected so tests can freeze ComputedAt.
type Engine struct {
	cfg Config
	now func() time.Time
}

// Option configures Engine.
type Option func(*Engine)

// WithClock overrides the wall clock used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a derivation engine.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Inputs carries the raw payloads of one derivation cycle. Any subset may
// be nil.
type Inputs struct {
	Global       *domain.RawGlobalSnapshot
	BitcoinChart *domain.RawAssetChart
	TopCoins     []domain.RawRankedCoin
	Discovery    *domain.RawDiscoverySignals

	// Exchange spot quotes. Coinbase and Kraken are the mandatory pair for
	// the exchange pulse; Binance is informational.
	CoinbaseQuote *domain.RawExchangeQuote
	KrakenQuote   *domain.RawExchangeQuote
	BinanceQuote  *domain.RawExchangeQuote
}

// Compute derives all metrics from the given inputs. The result always has
// all five sub-record keys; only leaf values (and the exchange pulse record
// as a whole) are nullable.
func (e *Engine) Compute(in Inputs) *domain.DerivedMetrics {
	chart := e.deriveBitcoinChart(in.BitcoinChart)

	return &domain.DerivedMetrics{
		FromGlobal:        deriveGlobal(in.Global),
		FromBitcoinChart:  chart,
		FromTopCoins:      deriveTopCoins(in.TopCoins),
		FromDiscovery:     e.deriveDiscovery(in.Discovery),
		FromExchangePulse: e.deriveExchangePulse(in.CoinbaseQuote, in.KrakenQuote, in.BinanceQuote, chart.CurrentPrice),
		ComputedAt:        e.now().Unix(),
	}
}
