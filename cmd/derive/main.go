// One-shot derivation: reads raw API payloads from JSON files, runs the
// derivation engine, and prints the derived metrics record as JSON.
//
// Only the provided files are used; absent sources derive to null or quiet
// defaults exactly as they would in a live cycle.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"market-context-lab/internal/derive"
	"market-context-lab/internal/domain"
)

func main() {
	globalFile := flag.String("global", "", "Path to global overview payload (JSON)")
	chartFile := flag.String("chart", "", "Path to bitcoin market chart payload (JSON)")
	coinsFile := flag.String("coins", "", "Path to top coins payload (JSON array)")
	trendingFile := flag.String("trending", "", "Path to trending coins payload (JSON array)")
	categoriesFile := flag.String("categories", "", "Path to categories payload (JSON array)")
	coinbaseFile := flag.String("coinbase", "", "Path to Coinbase spot quote payload (JSON)")
	krakenFile := flag.String("kraken", "", "Path to Kraken ticker payload (JSON)")
	binanceFile := flag.String("binance", "", "Path to Binance ticker payload (JSON)")
	flag.Parse()

	var inputs derive.Inputs

	if *globalFile != "" {
		inputs.Global = &domain.RawGlobalSnapshot{}
		mustDecode(*globalFile, inputs.Global)
	}
	if *chartFile != "" {
		inputs.BitcoinChart = &domain.RawAssetChart{}
		mustDecode(*chartFile, inputs.BitcoinChart)
	}
	if *coinsFile != "" {
		mustDecode(*coinsFile, &inputs.TopCoins)
	}
	if *trendingFile != "" || *categoriesFile != "" {
		discovery := &domain.RawDiscoverySignals{}
		if *trendingFile != "" {
			mustDecode(*trendingFile, &discovery.Trending)
		}
		if *categoriesFile != "" {
			mustDecode(*categoriesFile, &discovery.Categories)
		}
		inputs.Discovery = discovery
	}

	inputs.CoinbaseQuote = readQuote(*coinbaseFile, domain.VenueCoinbase)
	inputs.KrakenQuote = readQuote(*krakenFile, domain.VenueKraken)
	inputs.BinanceQuote = readQuote(*binanceFile, domain.VenueBinance)

	engine := derive.New(derive.DefaultConfig())
	metrics := engine.Compute(inputs)

	out, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding metrics: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// mustDecode reads a payload file into v, exiting on failure.
func mustDecode(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	if err := json.Unmarshal(data, v); err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding %s: %v\n", path, err)
		os.Exit(1)
	}
}

// readQuote wraps a verbatim exchange response body as a tagged quote.
func readQuote(path, venue string) *domain.RawExchangeQuote {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	return &domain.RawExchangeQuote{Venue: venue, Body: data}
}
