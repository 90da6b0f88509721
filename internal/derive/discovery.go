package derive

import (
	"fmt"
	"sort"
	"strings"

	"market-context-lab/internal/domain"
)

// Caps on the projected discovery lists.
const (
	trendingLabelLimit = 5
	topSectorLimit     = 3
)

// deriveDiscovery computes attention-side signals from the trending and
// category lists. Absence here means "no discovery signal", so the zero
// value (false flags, empty lists) is the degraded result, never nil.
func (e *Engine) deriveDiscovery(raw *domain.RawDiscoverySignals) domain.DiscoveryMetrics {
	var m domain.DiscoveryMetrics
	if raw == nil {
		return m
	}

	if len(raw.Trending) > 0 {
		// Divergence keys off the single most-discussed asset: attention has
		// decoupled from capitalization when it sits outside the top ranks.
		if rank, ok := raw.Trending[0].MarketCapRank.Get(); ok {
			m.HypeVsMarketCapDivergence = int(rank) > e.cfg.HypeRankThreshold
		}

		for _, t := range raw.Trending {
			if rank, ok := t.MarketCapRank.Get(); ok && int(rank) > e.cfg.MoonshotRankThreshold {
				m.RetailMoonshotPresence = true
				break
			}
		}

		limit := len(raw.Trending)
		if limit > trendingLabelLimit {
			limit = trendingLabelLimit
		}
		m.TopTrendingCoins = make([]string, 0, limit)
		for _, t := range raw.Trending[:limit] {
			m.TopTrendingCoins = append(m.TopTrendingCoins,
				fmt.Sprintf("%s (%s)", t.Name, strings.ToUpper(t.Symbol)))
		}
	}

	m.TopPerformingSectors = topSectors(raw.Categories)

	return m
}

// topSectors filters categories to those with a numeric 24h change, sorts
// descending by that change, and projects the top entries.
func topSectors(categories []domain.RawCategory) []domain.SectorPerformance {
	var sectors []domain.SectorPerformance
	for _, c := range categories {
		if change, ok := c.MarketCapChange24h.Get(); ok {
			sectors = append(sectors, domain.SectorPerformance{
				Name:         c.Name,
				ChangePct24h: change,
			})
		}
	}

	sort.SliceStable(sectors, func(i, j int) bool {
		return sectors[i].ChangePct24h > sectors[j].ChangePct24h
	})

	if len(sectors) > topSectorLimit {
		sectors = sectors[:topSectorLimit]
	}
	return sectors
}
