package domain

// SnapshotKey is the fixed logical name the snapshot is stored under.
// Each derivation cycle fully replaces the previous snapshot.
const SnapshotKey = "market_snapshot"

// Source names used for fetch bookkeeping.
const (
	SourceGlobal       = "global"
	SourceBitcoinChart = "bitcoin_chart"
	SourceTopCoins     = "top_coins"
	SourceDiscovery    = "discovery"
	SourceExchanges    = "exchanges"
)

// MarketSnapshot is the persisted unit of one refresh cycle: the derived
// metrics plus the two raw fragments the context serializer reads for
// headline totals.
type MarketSnapshot struct {
	Derived        *DerivedMetrics    `json:"derived"`
	Global         *RawGlobalSnapshot `json:"global,omitempty"`
	TopCoins       []RawRankedCoin    `json:"topCoins,omitempty"`
	SourcesPresent []string           `json:"sourcesPresent"`
	FetchedAt      int64              `json:"fetchedAt"` // Unix seconds
}

// PriceSample is one archived point of an asset price series.
// Corresponds to the price_samples table in ClickHouse.
type PriceSample struct {
	Asset       string  // asset identifier, e.g. "bitcoin"
	TimestampMs int64   // Unix timestamp in milliseconds
	Price       float64 // USD price at this point
}
