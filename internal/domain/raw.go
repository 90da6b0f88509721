package domain

import (
	"bytes"
	"encoding/json"
)

// RawGlobalData holds the whole-market aggregate fields as reported by the
// aggregator API. Per-currency values arrive as maps keyed by currency or
// asset symbol; all fields are individually optional.
type RawGlobalData struct {
	TotalMarketCap        map[string]FlexFloat `json:"total_market_cap"`
	TotalVolume           map[string]FlexFloat `json:"total_volume"`
	MarketCapPercentage   map[string]FlexFloat `json:"market_cap_percentage"`
	MarketCapChangePct24h FlexFloat            `json:"market_cap_change_percentage_24h_usd"`
	UpdatedAt             FlexFloat            `json:"updated_at"` // provider Unix seconds
}

// RawGlobalSnapshot is the whole-market payload. The provider wraps the
// fields in a "data" envelope on one endpoint and serves them flat on
// another; both wire shapes decode into this struct.
type RawGlobalSnapshot struct {
	Data *RawGlobalData `json:"data"`
	RawGlobalData
}

// Payload returns the enveloped fields when present, the flat fields
// otherwise.
func (s *RawGlobalSnapshot) Payload() *RawGlobalData {
	if s == nil {
		return nil
	}
	if s.Data != nil {
		return s.Data
	}
	return &s.RawGlobalData
}

// RawChartPoint is one (timestamp, price) sample of an asset price series.
// The wire shape is a two-element array [timestamp_ms, price].
type RawChartPoint struct {
	TimestampMs int64
	Price       FlexFloat
}

// UnmarshalJSON decodes the [timestamp_ms, price] pair. Short or malformed
// pairs decode to an invalid price rather than failing the series.
func (p *RawChartPoint) UnmarshalJSON(data []byte) error {
	p.TimestampMs = 0
	p.Price = FlexFloat{}

	var pair []FlexFloat
	if err := json.Unmarshal(bytes.TrimSpace(data), &pair); err != nil {
		return nil
	}
	if len(pair) >= 1 {
		if ts, ok := pair[0].Get(); ok {
			p.TimestampMs = int64(ts)
		}
	}
	if len(pair) >= 2 {
		p.Price = pair[1]
	}
	return nil
}

// MarshalJSON encodes the point back to the [timestamp_ms, price] pair.
func (p RawChartPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{p.TimestampMs, p.Price})
}

// RawAssetChart is the chronological price series for one asset. The last
// element is the current sample.
type RawAssetChart struct {
	Prices []RawChartPoint `json:"prices"`
}

// RawRankedCoin is one entry of the market-cap-ranked asset list.
type RawRankedCoin struct {
	ID                string    `json:"id"`
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	CurrentPrice      FlexFloat `json:"current_price"`
	MarketCap         FlexFloat `json:"market_cap"`
	MarketCapRank     FlexFloat `json:"market_cap_rank"`
	PriceChangePct24h FlexFloat `json:"price_change_percentage_24h"`
}

// RawTrendingCoin is one entry of the trending (most-searched) list.
// MarketCapRank may be large; low-cap assets trend too.
type RawTrendingCoin struct {
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	MarketCapRank FlexFloat `json:"market_cap_rank"`
}

// RawCategory is one sector/category aggregate.
type RawCategory struct {
	Name               string    `json:"name"`
	MarketCapChange24h FlexFloat `json:"market_cap_change_24h"`
}

// RawDiscoverySignals bundles the attention-side inputs: the short trending
// list and the category aggregates.
type RawDiscoverySignals struct {
	Trending   []RawTrendingCoin `json:"trending"`
	Categories []RawCategory     `json:"categories"`
}

// Exchange venue tags for RawExchangeQuote.
const (
	VenueCoinbase = "coinbase"
	VenueKraken   = "kraken"
	VenueBinance  = "binance"
)

// RawExchangeQuote is a single spot ticker response from one exchange,
// kept as the verbatim response body. Venue shapes differ (nested objects,
// string-encoded prices), so price extraction is deferred to the
// derivation layer.
type RawExchangeQuote struct {
	Venue string          `json:"venue"`
	Body  json.RawMessage `json:"body"`
}
