package fetch

import (
	"context"

	"market-context-lab/internal/domain"
)

// MarketDataSource provides the aggregated market feeds: global overview,
// ranked assets, bitcoin chart history and discovery signals.
type MarketDataSource interface {
	// GlobalOverview fetches the market-wide totals payload.
	GlobalOverview(ctx context.Context) (*domain.RawGlobalSnapshot, error)

	// TopCoins fetches the first count assets ranked by market cap.
	TopCoins(ctx context.Context, count int) ([]domain.RawRankedCoin, error)

	// BitcoinChart fetches the bitcoin price series covering days of history.
	BitcoinChart(ctx context.Context, days int) (*domain.RawAssetChart, error)

	// Trending fetches the currently trending assets, most searched first.
	Trending(ctx context.Context) ([]domain.RawTrendingCoin, error)

	// Categories fetches sector/category performance.
	Categories(ctx context.Context) ([]domain.RawCategory, error)
}

// QuoteSource provides a single BTC-USD spot quote from one exchange.
// The body is kept verbatim so venue-specific shapes survive untouched.
type QuoteSource interface {
	SpotQuote(ctx context.Context) (*domain.RawExchangeQuote, error)
}
