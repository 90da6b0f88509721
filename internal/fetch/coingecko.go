package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"market-context-lab/internal/domain"
)

// DefaultCoinGeckoURL is the public CoinGecko API base.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

// CoinGeckoClient implements MarketDataSource against the CoinGecko REST API.
type CoinGeckoClient struct {
	baseURL string
	client  *Client
}

// NewCoinGeckoClient creates a CoinGecko client. An apiKey may be empty;
// the free tier works without one at a lower rate limit.
func NewCoinGeckoClient(baseURL, apiKey string, opts ...ClientOption) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}
	if apiKey != "" {
		opts = append(opts, WithHeader("x-cg-demo-api-key", apiKey))
	}

	return &CoinGeckoClient{
		baseURL: baseURL,
		client:  NewClient(opts...),
	}
}

var _ MarketDataSource = (*CoinGeckoClient)(nil)

// GlobalOverview fetches /global. The payload arrives wrapped in a data
// envelope; decoding is left to the domain type, which handles both the
// enveloped and flat shapes.
func (c *CoinGeckoClient) GlobalOverview(ctx context.Context) (*domain.RawGlobalSnapshot, error) {
	body, err := c.client.Get(ctx, c.baseURL+"/global")
	if err != nil {
		return nil, fmt.Errorf("fetch global overview: %w", err)
	}

	var snap domain.RawGlobalSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode global overview: %w", err)
	}
	return &snap, nil
}

// TopCoins fetches /coins/markets ranked by market cap descending.
func (c *CoinGeckoClient) TopCoins(ctx context.Context, count int) ([]domain.RawRankedCoin, error) {
	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=%d&page=1", c.baseURL, count)

	var coins []domain.RawRankedCoin
	if err := c.client.GetJSON(ctx, url, &coins); err != nil {
		return nil, fmt.Errorf("fetch top coins: %w", err)
	}
	return coins, nil
}

// BitcoinChart fetches /coins/bitcoin/market_chart with daily granularity.
func (c *CoinGeckoClient) BitcoinChart(ctx context.Context, days int) (*domain.RawAssetChart, error) {
	url := fmt.Sprintf("%s/coins/bitcoin/market_chart?vs_currency=usd&days=%d&interval=daily", c.baseURL, days)

	var chart domain.RawAssetChart
	if err := c.client.GetJSON(ctx, url, &chart); err != nil {
		return nil, fmt.Errorf("fetch bitcoin chart: %w", err)
	}
	return &chart, nil
}

// Trending fetches /search/trending. Each item is wrapped in an envelope
// holding the coin under "item".
func (c *CoinGeckoClient) Trending(ctx context.Context) ([]domain.RawTrendingCoin, error) {
	var resp struct {
		Coins []struct {
			Item domain.RawTrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := c.client.GetJSON(ctx, c.baseURL+"/search/trending", &resp); err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}

	coins := make([]domain.RawTrendingCoin, 0, len(resp.Coins))
	for _, wrapped := range resp.Coins {
		coins = append(coins, wrapped.Item)
	}
	return coins, nil
}

// Categories fetches /coins/categories, ordered by market cap.
func (c *CoinGeckoClient) Categories(ctx context.Context) ([]domain.RawCategory, error) {
	var categories []domain.RawCategory
	if err := c.client.GetJSON(ctx, c.baseURL+"/coins/categories?order=market_cap_desc", &categories); err != nil {
		return nil, fmt.Errorf("fetch categories: %w", err)
	}
	return categories, nil
}
