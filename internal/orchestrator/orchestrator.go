// Package orchestrator coordinates one refresh cycle:
// fetch → derive → persist snapshot → archive price samples.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"market-context-lab/internal/derive"
	"market-context-lab/internal/domain"
	"market-context-lab/internal/fetch"
	"market-context-lab/internal/observability"
	"market-context-lab/internal/storage"
)

// Default refresh parameters.
const (
	DefaultTopCoinsCount = 200
	DefaultChartDays     = 365

	bitcoinAsset = "bitcoin"
)

// Orchestrator runs refresh cycles. A cycle is atomic with respect to the
// stored snapshot: either a full consistent snapshot from one cycle replaces
// the previous one, or the previous one stays.
type Orchestrator struct {
	market   fetch.MarketDataSource
	coinbase fetch.QuoteSource
	kraken   fetch.QuoteSource
	binance  fetch.QuoteSource

	engine        *derive.Engine
	snapshotStore storage.SnapshotStore
	sampleStore   storage.PriceSampleStore

	topCoinsCount int
	chartDays     int
	verbose       bool
	now           func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required sources and stores
	MarketData    fetch.MarketDataSource
	SnapshotStore storage.SnapshotStore

	// Optional exchange quote sources. A nil source simply leaves its
	// quote absent for the cycle.
	Coinbase fetch.QuoteSource
	Kraken   fetch.QuoteSource
	Binance  fetch.QuoteSource

	// Optional price-sample archive. Nil disables archiving.
	PriceSampleStore storage.PriceSampleStore

	// Engine defaults to derive.New(derive.DefaultConfig()) when nil.
	Engine *derive.Engine

	// Fetch sizing
	TopCoinsCount int
	ChartDays     int

	Verbose bool

	// Clock override for tests.
	Now func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	engine := opts.Engine
	if engine == nil {
		engine = derive.New(derive.DefaultConfig())
	}

	topCoins := opts.TopCoinsCount
	if topCoins <= 0 {
		topCoins = DefaultTopCoinsCount
	}
	chartDays := opts.ChartDays
	if chartDays <= 0 {
		chartDays = DefaultChartDays
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		market:        opts.MarketData,
		coinbase:      opts.Coinbase,
		kraken:        opts.Kraken,
		binance:       opts.Binance,
		engine:        engine,
		snapshotStore: opts.SnapshotStore,
		sampleStore:   opts.PriceSampleStore,
		topCoinsCount: topCoins,
		chartDays:     chartDays,
		verbose:       opts.Verbose,
		now:           now,
	}
}

// RunResult contains results from one refresh cycle.
type RunResult struct {
	SourcesPresent  []string
	Skipped         bool // mandatory sources missing, previous snapshot kept
	SamplesArchived int
	Errors          []string
}

// Run executes one refresh cycle.
// Phases:
//  1. Fetch all sources in parallel
//  2. Check mandatory sources (global, bitcoin chart, top coins)
//  3. Derive metrics from this cycle's payloads only
//  4. Replace the stored snapshot
//  5. Archive new bitcoin chart samples
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}
	started := o.now()

	// Phase 1: fetch everything in parallel
	o.log("Phase 1: Fetching sources...")
	inputs, fetchErrs := o.fetchAll(ctx)
	result.Errors = append(result.Errors, fetchErrs...)
	result.SourcesPresent = sourcesPresent(inputs)
	o.log("  Sources present: %v (%d fetch errors)", result.SourcesPresent, len(fetchErrs))

	observability.DefaultMetrics.SourcesMissing.Set(float64(sourceCount - len(result.SourcesPresent)))

	// Phase 2: all-or-nothing gate on the mandatory trio. A partial cycle
	// never overwrites the previous complete snapshot.
	if inputs.Global == nil || inputs.BitcoinChart == nil || inputs.TopCoins == nil {
		o.log("  Mandatory source missing, keeping previous snapshot")
		observability.RecordRefreshSkipped()
		result.Skipped = true
		return result, nil
	}

	// Phase 3: derive
	o.log("Phase 2: Deriving metrics...")
	derived := o.engine.Compute(inputs)
	observability.RecordDerivationRun("ok", o.now().Sub(started).Seconds())

	// Phase 4: persist the snapshot
	o.log("Phase 3: Saving snapshot...")
	snap := &domain.MarketSnapshot{
		Derived:        derived,
		Global:         inputs.Global,
		TopCoins:       inputs.TopCoins,
		SourcesPresent: result.SourcesPresent,
		FetchedAt:      o.now().Unix(),
	}
	if err := o.snapshotStore.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	observability.RecordSnapshotSaved()
	observability.DefaultMetrics.LastSuccessfulRefresh.Set(float64(o.now().Unix()))

	// Phase 5: archive chart samples
	if o.sampleStore != nil {
		o.log("Phase 4: Archiving price samples...")
		archived, err := o.archiveSamples(ctx, inputs.BitcoinChart)
		if err != nil {
			// Archiving is best-effort; the snapshot is already saved.
			result.Errors = append(result.Errors, fmt.Sprintf("archive samples: %v", err))
		}
		result.SamplesArchived = archived
		observability.RecordPriceSamplesArchived(archived)
		o.log("  Archived %d samples", archived)
	}

	o.log("Refresh completed: %d sources, %d samples archived",
		len(result.SourcesPresent), result.SamplesArchived)

	return result, nil
}

// sourceCount is the number of distinct sources a full cycle carries.
const sourceCount = 5

// fetchAll fetches every source in parallel. Failed sources are reported in
// the returned error strings and left nil in the inputs.
func (o *Orchestrator) fetchAll(ctx context.Context) (derive.Inputs, []string) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		inputs derive.Inputs
		errs   []string
	)

	record := func(source string, started time.Time, err error) {
		observability.RecordFetch(source, time.Since(started).Seconds(), err)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Sprintf("%s: %v", source, err))
			mu.Unlock()
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		snap, err := o.market.GlobalOverview(ctx)
		record(domain.SourceGlobal, started, err)
		if err == nil {
			mu.Lock()
			inputs.Global = snap
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		chart, err := o.market.BitcoinChart(ctx, o.chartDays)
		record(domain.SourceBitcoinChart, started, err)
		if err == nil {
			mu.Lock()
			inputs.BitcoinChart = chart
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		coins, err := o.market.TopCoins(ctx, o.topCoinsCount)
		record(domain.SourceTopCoins, started, err)
		if err == nil {
			mu.Lock()
			inputs.TopCoins = coins
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		discovery, err := o.fetchDiscovery(ctx)
		record(domain.SourceDiscovery, started, err)
		if err == nil {
			mu.Lock()
			inputs.Discovery = discovery
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		coinbase, kraken, binance, err := o.fetchQuotes(ctx)
		record(domain.SourceExchanges, started, err)
		mu.Lock()
		inputs.CoinbaseQuote = coinbase
		inputs.KrakenQuote = kraken
		inputs.BinanceQuote = binance
		mu.Unlock()
	}()

	wg.Wait()
	return inputs, errs
}

// fetchDiscovery fetches trending and categories. Either half failing fails
// the discovery source as a whole; derivation treats absent discovery as
// quiet defaults, not an error.
func (o *Orchestrator) fetchDiscovery(ctx context.Context) (*domain.RawDiscoverySignals, error) {
	trending, err := o.market.Trending(ctx)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}

	categories, err := o.market.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	return &domain.RawDiscoverySignals{
		Trending:   trending,
		Categories: categories,
	}, nil
}

// fetchQuotes fetches the three exchange quotes. Individual failures leave
// the quote nil; an error is reported only when every configured source
// failed.
func (o *Orchestrator) fetchQuotes(ctx context.Context) (coinbase, kraken, binance *domain.RawExchangeQuote, err error) {
	var failures []string

	fetchOne := func(src fetch.QuoteSource, venue string) *domain.RawExchangeQuote {
		if src == nil {
			return nil
		}
		quote, qerr := src.SpotQuote(ctx)
		if qerr != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", venue, qerr))
			return nil
		}
		return quote
	}

	coinbase = fetchOne(o.coinbase, domain.VenueCoinbase)
	kraken = fetchOne(o.kraken, domain.VenueKraken)
	binance = fetchOne(o.binance, domain.VenueBinance)

	if coinbase == nil && kraken == nil && binance == nil && len(failures) > 0 {
		return nil, nil, nil, fmt.Errorf("all exchange quotes failed: %v", failures)
	}
	return coinbase, kraken, binance, nil
}

// archiveSamples appends chart points newer than the latest archived sample.
func (o *Orchestrator) archiveSamples(ctx context.Context, chart *domain.RawAssetChart) (int, error) {
	latest, err := o.sampleStore.GetLatest(ctx, bitcoinAsset, 1)
	if err != nil {
		return 0, fmt.Errorf("load latest sample: %w", err)
	}

	var cutoff int64 = -1
	if len(latest) > 0 {
		cutoff = latest[0].TimestampMs
	}

	var samples []*domain.PriceSample
	for _, p := range chart.Prices {
		price, ok := p.Price.Get()
		if !ok || p.TimestampMs <= cutoff {
			continue
		}
		samples = append(samples, &domain.PriceSample{
			Asset:       bitcoinAsset,
			TimestampMs: p.TimestampMs,
			Price:       price,
		})
	}

	if len(samples) == 0 {
		return 0, nil
	}

	if err := o.sampleStore.InsertBulk(ctx, samples); err != nil {
		return 0, fmt.Errorf("insert samples: %w", err)
	}
	return len(samples), nil
}

// sourcesPresent lists the sources that produced a payload this cycle.
func sourcesPresent(in derive.Inputs) []string {
	var present []string
	if in.Global != nil {
		present = append(present, domain.SourceGlobal)
	}
	if in.BitcoinChart != nil {
		present = append(present, domain.SourceBitcoinChart)
	}
	if in.TopCoins != nil {
		present = append(present, domain.SourceTopCoins)
	}
	if in.Discovery != nil {
		present = append(present, domain.SourceDiscovery)
	}
	if in.CoinbaseQuote != nil || in.KrakenQuote != nil || in.BinanceQuote != nil {
		present = append(present, domain.SourceExchanges)
	}
	return present
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
