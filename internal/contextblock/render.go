// Package contextblock renders a derived market snapshot into the bounded
// plain-text block injected into the downstream model instruction. Lines
// are emitted only for populated fields; a missing value drops its line
// entirely instead of printing a placeholder. The overall result is never
// empty.
package contextblock

import (
	"fmt"
	"strings"

	"market-context-lab/internal/domain"
)

// FallbackLine is returned when nothing in the snapshot is populated.
// Downstream consumers always receive at least this line.
const FallbackLine = "No structured market data available."

// RenderSnapshot renders a persisted snapshot.
func RenderSnapshot(s *domain.MarketSnapshot) string {
	if s == nil {
		return FallbackLine
	}
	return Render(s.Derived, s.Global, s.TopCoins)
}

// Render renders the derived metrics plus the optional raw fragments used
// for headline totals. Safe on any shape, including a nil metrics record
// and all-nil sub-records.
func Render(m *domain.DerivedMetrics, global *domain.RawGlobalSnapshot, topCoins []domain.RawRankedCoin) string {
	var lines []string

	lines = append(lines, headlineLines(global, topCoins)...)
	if m != nil {
		lines = append(lines, globalLines(&m.FromGlobal)...)
		lines = append(lines, chartLines(&m.FromBitcoinChart)...)
		lines = append(lines, topCoinLines(&m.FromTopCoins)...)
		lines = append(lines, discoveryLines(&m.FromDiscovery)...)
		lines = append(lines, pulseLines(m.FromExchangePulse)...)
	}

	if len(lines) == 0 {
		return FallbackLine
	}
	return strings.Join(lines, "\n")
}

// headlineLines emits raw-payload totals. These come from the stored raw
// fragments rather than the derived record so the headline survives a
// degraded derivation.
func headlineLines(global *domain.RawGlobalSnapshot, topCoins []domain.RawRankedCoin) []string {
	var lines []string

	if data := global.Payload(); data != nil {
		if mcap, ok := data.TotalMarketCap["usd"].Get(); ok {
			lines = append(lines, fmt.Sprintf("Total crypto market cap (USD): %.2f", mcap))
		}
		if vol, ok := data.TotalVolume["usd"].Get(); ok {
			lines = append(lines, fmt.Sprintf("Total 24h volume (USD): %.2f", vol))
		}
	}
	if len(topCoins) > 0 {
		lines = append(lines, fmt.Sprintf("Ranked assets tracked: %d", len(topCoins)))
	}

	return lines
}

func globalLines(g *domain.GlobalMetrics) []string {
	var lines []string

	if g.BTCDominancePct != nil {
		lines = append(lines, fmt.Sprintf("BTC dominance: %.2f%%", *g.BTCDominancePct))
	}
	if g.ETHDominancePct != nil {
		lines = append(lines, fmt.Sprintf("ETH dominance: %.2f%%", *g.ETHDominancePct))
	}
	if g.MarketCapChangePct24h != nil {
		lines = append(lines, fmt.Sprintf("Market cap 24h change: %+.2f%%", *g.MarketCapChangePct24h))
	}
	if g.VolumeRatio != nil {
		lines = append(lines, fmt.Sprintf("Volume/market-cap ratio: %.6f", *g.VolumeRatio))
	}

	return lines
}

func chartLines(c *domain.BitcoinChartMetrics) []string {
	var lines []string

	if c.CurrentPrice != nil {
		lines = append(lines, fmt.Sprintf("BTC price (USD): %.2f", *c.CurrentPrice))
	}
	if c.MA50 != nil {
		lines = append(lines, fmt.Sprintf("BTC 50-period MA (USD): %.2f", *c.MA50))
	}
	if c.MA200 != nil {
		lines = append(lines, fmt.Sprintf("BTC 200-period MA (USD): %.2f", *c.MA200))
	}
	if c.Trend != nil {
		lines = append(lines, fmt.Sprintf("BTC trend: %s", *c.Trend))
	}

	return lines
}

func topCoinLines(tc *domain.TopCoinsMetrics) []string {
	var lines []string

	if tc.MarketBreadthAbove50Percent != nil {
		lines = append(lines, fmt.Sprintf("Market breadth (share of coins up 24h): %.2f%%", *tc.MarketBreadthAbove50Percent))
	}
	if tc.Top10AvgChangePct24h != nil {
		lines = append(lines, fmt.Sprintf("Top-10 avg 24h change: %+.2f%%", *tc.Top10AvgChangePct24h))
	}
	if tc.Rank11To100AvgChangePct24h != nil {
		lines = append(lines, fmt.Sprintf("Rank 11-100 avg 24h change: %+.2f%%", *tc.Rank11To100AvgChangePct24h))
	}

	return lines
}

// discoveryLines treats false/empty as "no signal" and stays silent, in
// line with the rest of the block: absence is silence.
func discoveryLines(d *domain.DiscoveryMetrics) []string {
	var lines []string

	if d.HypeVsMarketCapDivergence {
		lines = append(lines, "Hype divergence: most-trended asset sits outside the top 100 by market cap")
	}
	if d.RetailMoonshotPresence {
		lines = append(lines, "Retail moonshot signal: a trending asset ranks beyond 500 by market cap")
	}
	if len(d.TopTrendingCoins) > 0 {
		lines = append(lines, "Trending: "+strings.Join(d.TopTrendingCoins, ", "))
	}
	if len(d.TopPerformingSectors) > 0 {
		parts := make([]string, 0, len(d.TopPerformingSectors))
		for _, s := range d.TopPerformingSectors {
			parts = append(parts, fmt.Sprintf("%s %+.2f%%", s.Name, s.ChangePct24h))
		}
		lines = append(lines, "Top sectors (24h): "+strings.Join(parts, ", "))
	}

	return lines
}

func pulseLines(p *domain.ExchangePulseMetrics) []string {
	if p == nil {
		return nil
	}

	lines := []string{
		fmt.Sprintf("Cross-exchange price disparity (USD): %.2f", p.PriceDisparity),
		fmt.Sprintf("US exchange premium (USD): %+.2f", p.USExchangePremium),
	}
	if p.IsVolatile {
		lines = append(lines, "Cross-exchange volatility: elevated")
	}
	if p.BinancePrice != nil {
		lines = append(lines, fmt.Sprintf("Binance BTC price (USD): %.2f", *p.BinancePrice))
	}

	return lines
}
