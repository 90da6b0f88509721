package domain

// Trend classifies the moving-average relationship of the Bitcoin chart.
type Trend string

// Trend values. Equality of the two averages is its own state; it is not
// folded into either cross.
const (
	TrendGoldenCross Trend = "golden_cross" // ma50 > ma200
	TrendDeathCross  Trend = "death_cross"  // ma50 < ma200
	TrendNeutral     Trend = "neutral"      // ma50 == ma200
)

// GlobalMetrics is derived from the whole-market snapshot. Every field is
// independently nullable; a missing upstream field degrades only itself.
type GlobalMetrics struct {
	TotalMarketCapUSD     *float64 `json:"totalMarketCapUsd"`
	TotalVolumeUSD        *float64 `json:"totalVolumeUsd"`
	BTCDominancePct       *float64 `json:"btcDominancePct"`
	ETHDominancePct       *float64 `json:"ethDominancePct"`
	MarketCapChangePct24h *float64 `json:"marketCapChangePct24h"`
	VolumeRatio           *float64 `json:"volumeRatio"` // totalVolume / totalMarketCap, nil when mcap is 0 or absent
	ProviderUpdatedAt     *int64   `json:"providerUpdatedAt"`
}

// BitcoinChartMetrics is derived from the Bitcoin price series. All fields
// are nil when the series is shorter than the configured minimum.
type BitcoinChartMetrics struct {
	MA50         *float64 `json:"ma50"`
	MA200        *float64 `json:"ma200"`
	CurrentPrice *float64 `json:"currentPrice"`
	Trend        *Trend   `json:"trend"`
}

// TopCoinsMetrics is derived from the ranked asset list.
type TopCoinsMetrics struct {
	// MarketBreadthAbove50Percent is the percentage of coins with 24h data
	// whose change is strictly positive. Nil when no coin carries 24h data,
	// which is distinct from a breadth of 0.
	MarketBreadthAbove50Percent *float64 `json:"marketBreadthAbove50Percent"`
	Top10AvgChangePct24h        *float64 `json:"top10AvgChangePct24h"`
	Rank11To100AvgChangePct24h  *float64 `json:"rank11To100AvgChangePct24h"`
}

// SectorPerformance is one category with its 24h change.
type SectorPerformance struct {
	Name         string  `json:"name"`
	ChangePct24h float64 `json:"changePct24h"`
}

// DiscoveryMetrics is derived from the trending and category lists.
// Absent input means "no discovery signal", so fields default to
// empty/false rather than nil.
type DiscoveryMetrics struct {
	HypeVsMarketCapDivergence bool                `json:"hypeVsMarketCapDivergence"`
	RetailMoonshotPresence    bool                `json:"retailMoonshotPresence"`
	TopTrendingCoins          []string            `json:"topTrendingCoins"`
	TopPerformingSectors      []SectorPerformance `json:"topPerformingSectors"`
}

// ExchangePulseMetrics is derived from the spot quotes of two reference
// exchanges. The record exists only when both mandatory quotes normalized
// to nonzero prices; otherwise the whole record is nil in DerivedMetrics.
type ExchangePulseMetrics struct {
	PriceDisparity    float64  `json:"priceDisparity"`    // |primary - secondary|
	USExchangePremium float64  `json:"usExchangePremium"` // primary - chart current price (0 reference when unavailable)
	IsVolatile        bool     `json:"isVolatile"`
	BinancePrice      *float64 `json:"binancePrice"` // informational only, excluded from disparity math
}

// DerivedMetrics is the single output of a derivation cycle. The five
// sub-record keys are always present; only leaves (and FromExchangePulse as
// a whole) are nullable. Values are never patched in place; each cycle
// produces a fresh record.
type DerivedMetrics struct {
	FromGlobal        GlobalMetrics         `json:"fromGlobal"`
	FromBitcoinChart  BitcoinChartMetrics   `json:"fromBitcoinChart"`
	FromTopCoins      TopCoinsMetrics       `json:"fromTopCoins"`
	FromDiscovery     DiscoveryMetrics      `json:"fromDiscovery"`
	FromExchangePulse *ExchangePulseMetrics `json:"fromExchangePulse"`
	ComputedAt        int64                 `json:"computedAt"` // Unix seconds at derivation time
}
