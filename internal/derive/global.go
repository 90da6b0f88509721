package derive

import "market-context-lab/internal/domain"

// deriveGlobal extracts whole-market signals from the global snapshot.
// The snapshot may arrive enveloped or flat; Payload resolves the shape
// (envelope first, flat fallback).
func deriveGlobal(raw *domain.RawGlobalSnapshot) domain.GlobalMetrics {
	var m domain.GlobalMetrics
	data := raw.Payload()
	if data == nil {
		return m
	}

	m.TotalMarketCapUSD = data.TotalMarketCap["usd"].Ptr()
	m.TotalVolumeUSD = data.TotalVolume["usd"].Ptr()
	m.BTCDominancePct = data.MarketCapPercentage["btc"].Ptr()
	m.ETHDominancePct = data.MarketCapPercentage["eth"].Ptr()
	m.MarketCapChangePct24h = data.MarketCapChangePct24h.Ptr()

	if ts, ok := data.UpdatedAt.Get(); ok {
		updatedAt := int64(ts)
		m.ProviderUpdatedAt = &updatedAt
	}

	// volumeRatio needs both operands and a nonzero market cap; anything
	// else stays nil rather than producing NaN or Inf.
	if m.TotalMarketCapUSD != nil && m.TotalVolumeUSD != nil && *m.TotalMarketCapUSD != 0 {
		ratio := *m.TotalVolumeUSD / *m.TotalMarketCapUSD
		m.VolumeRatio = &ratio
	}

	return m
}
