package derive

import "market-context-lab/internal/domain"

// deriveBitcoinChart computes trailing moving averages and the trend
// classification from the chronological price series. Samples without a
// usable price are dropped before the length check, so a series padded
// with malformed points does not fake sufficiency.
func (e *Engine) deriveBitcoinChart(raw *domain.RawAssetChart) domain.BitcoinChartMetrics {
	var m domain.BitcoinChartMetrics
	if raw == nil {
		return m
	}

	prices := make([]float64, 0, len(raw.Prices))
	for _, p := range raw.Prices {
		if v, ok := p.Price.Get(); ok {
			prices = append(prices, v)
		}
	}

	if len(prices) < e.cfg.MinChartSamples {
		return m
	}

	ma50 := trailingMean(prices, e.cfg.ShortWindow)
	ma200 := trailingMean(prices, e.cfg.LongWindow)
	current := prices[len(prices)-1]

	m.MA50 = &ma50
	m.MA200 = &ma200
	m.CurrentPrice = &current

	trend := classifyTrend(ma50, ma200)
	m.Trend = &trend

	return m
}

// trailingMean is the arithmetic mean of the last n samples. Callers
// guarantee len(prices) >= n and n > 0.
func trailingMean(prices []float64, n int) float64 {
	sum := 0.0
	for _, p := range prices[len(prices)-n:] {
		sum += p
	}
	return sum / float64(n)
}

// classifyTrend applies the strict-inequality policy: equality of the two
// averages is its own state, not folded into either cross.
func classifyTrend(ma50, ma200 float64) domain.Trend {
	switch {
	case ma50 > ma200:
		return domain.TrendGoldenCross
	case ma50 < ma200:
		return domain.TrendDeathCross
	default:
		return domain.TrendNeutral
	}
}
