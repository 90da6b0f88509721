package derive

import "market-context-lab/internal/domain"

// Segment boundaries of the ranked list. These are positions in the
// original input order (assumed rank-descending), not in the 24h-filtered
// subset.
const (
	topSegmentEnd = 10
	midSegmentEnd = 100
)

// deriveTopCoins computes breadth and segment averages from the ranked
// asset list.
func deriveTopCoins(coins []domain.RawRankedCoin) domain.TopCoinsMetrics {
	var m domain.TopCoinsMetrics
	if len(coins) == 0 {
		return m
	}

	// Breadth: share of coins with 24h data whose change is strictly
	// positive. No 24h data at all means "unknown", not 0% breadth.
	withData := 0
	positive := 0
	for _, c := range coins {
		change, ok := c.PriceChangePct24h.Get()
		if !ok {
			continue
		}
		withData++
		if change > 0 {
			positive++
		}
	}
	if withData > 0 {
		breadth := float64(positive) / float64(withData) * 100
		m.MarketBreadthAbove50Percent = &breadth
	}

	m.Top10AvgChangePct24h = segmentAverage(coins, 0, topSegmentEnd)
	m.Rank11To100AvgChangePct24h = segmentAverage(coins, topSegmentEnd, midSegmentEnd)

	return m
}

// segmentAverage is the mean 24h change over the positional slice
// [start, end) of the original list, nil when the segment holds no numeric
// values.
func segmentAverage(coins []domain.RawRankedCoin, start, end int) *float64 {
	if start >= len(coins) {
		return nil
	}
	if end > len(coins) {
		end = len(coins)
	}

	sum := 0.0
	count := 0
	for _, c := range coins[start:end] {
		if change, ok := c.PriceChangePct24h.Get(); ok {
			sum += change
			count++
		}
	}
	if count == 0 {
		return nil
	}

	avg := sum / float64(count)
	return &avg
}
