package derive

import (
	"math"

	"github.com/tidwall/gjson"

	"market-context-lab/internal/domain"
)

// quotePaths lists, per venue, the gjson paths that may hold the spot
// price. Probed in order; the first nonzero numeric value wins. Venue
// payloads nest the price differently and often string-encode it.
var quotePaths = map[string][]string{
	domain.VenueCoinbase: {"data.amount", "amount", "price"},
	domain.VenueKraken:   {"result.XXBTZUSD.c.0", "result.*.c.0", "price"},
	domain.VenueBinance:  {"price", "c", "lastPrice"},
}

// genericQuotePaths are tried when the venue is unknown.
var genericQuotePaths = []string{"price", "data.amount", "last", "c.0"}

// QuotePrice normalizes a raw exchange quote to a plain USD price.
// Returns 0 when the quote is absent or no probed path yields a usable
// number; post-coercion zero is the "unset" sentinel, not a real price.
func QuotePrice(q *domain.RawExchangeQuote) float64 {
	if q == nil || len(q.Body) == 0 || !gjson.ValidBytes(q.Body) {
		return 0
	}

	paths, ok := quotePaths[q.Venue]
	if !ok {
		paths = genericQuotePaths
	}

	for _, path := range paths {
		res := gjson.GetBytes(q.Body, path)
		if !res.Exists() {
			continue
		}
		v := res.Float()
		if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return v
		}
	}
	return 0
}

// deriveExchangePulse computes cross-exchange stress signals from the
// primary (Coinbase) and secondary (Kraken) quotes. The whole record is nil
// when either mandatory quote is unusable. The tertiary Binance quote is
// passed through untouched; it never joins the disparity math.
func (e *Engine) deriveExchangePulse(primary, secondary, tertiary *domain.RawExchangeQuote, chartPrice *float64) *domain.ExchangePulseMetrics {
	primaryPrice := QuotePrice(primary)
	secondaryPrice := QuotePrice(secondary)
	if primaryPrice == 0 || secondaryPrice == 0 {
		return nil
	}

	reference := 0.0
	if chartPrice != nil {
		reference = *chartPrice
	}

	disparity := math.Abs(primaryPrice - secondaryPrice)

	m := &domain.ExchangePulseMetrics{
		PriceDisparity:    disparity,
		USExchangePremium: primaryPrice - reference,
		IsVolatile:        disparity > e.cfg.VolatilityThresholdUSD,
	}

	if binancePrice := QuotePrice(tertiary); binancePrice != 0 {
		m.BinancePrice = &binancePrice
	}

	return m
}
