package fetch

import (
	"context"
	"fmt"

	"market-context-lab/internal/domain"
)

// Public exchange REST endpoints for BTC-USD spot quotes.
const (
	DefaultCoinbaseURL = "https://api.coinbase.com/v2/prices/BTC-USD/spot"
	DefaultKrakenURL   = "https://api.kraken.com/0/public/Ticker?pair=XBTUSD"
	DefaultBinanceURL  = "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT"
)

// RESTQuoteClient fetches a spot quote from a single exchange REST endpoint
// and returns the body verbatim. Parsing happens downstream so a schema
// change on the exchange side degrades one metric instead of failing the
// fetch.
type RESTQuoteClient struct {
	venue  string
	url    string
	client *Client
}

// NewCoinbaseClient creates a Coinbase spot quote source.
func NewCoinbaseClient(url string, opts ...ClientOption) *RESTQuoteClient {
	if url == "" {
		url = DefaultCoinbaseURL
	}
	return &RESTQuoteClient{venue: domain.VenueCoinbase, url: url, client: NewClient(opts...)}
}

// NewKrakenClient creates a Kraken spot quote source.
func NewKrakenClient(url string, opts ...ClientOption) *RESTQuoteClient {
	if url == "" {
		url = DefaultKrakenURL
	}
	return &RESTQuoteClient{venue: domain.VenueKraken, url: url, client: NewClient(opts...)}
}

// NewBinanceRESTClient creates a Binance spot quote source. Used as the
// fallback when the websocket stream has not produced a quote yet.
func NewBinanceRESTClient(url string, opts ...ClientOption) *RESTQuoteClient {
	if url == "" {
		url = DefaultBinanceURL
	}
	return &RESTQuoteClient{venue: domain.VenueBinance, url: url, client: NewClient(opts...)}
}

var _ QuoteSource = (*RESTQuoteClient)(nil)

// Venue returns the exchange this client quotes from.
func (c *RESTQuoteClient) Venue() string {
	return c.venue
}

// SpotQuote fetches the quote body verbatim.
func (c *RESTQuoteClient) SpotQuote(ctx context.Context) (*domain.RawExchangeQuote, error) {
	body, err := c.client.Get(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s quote: %w", c.venue, err)
	}

	return &domain.RawExchangeQuote{
		Venue: c.venue,
		Body:  body,
	}, nil
}
