package orchestrator

import (
	"context"
	"errors"
	"testing"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
	"market-context-lab/internal/storage/memory"
)

// stubMarket is a canned MarketDataSource. Fail flags simulate a failed
// fetch for that feed.
type stubMarket struct {
	global     *domain.RawGlobalSnapshot
	chart      *domain.RawAssetChart
	topCoins   []domain.RawRankedCoin
	trending   []domain.RawTrendingCoin
	categories []domain.RawCategory

	failGlobal     bool
	failChart      bool
	failTopCoins   bool
	failTrending   bool
	failCategories bool
}

var errStub = errors.New("stub fetch failure")

func (s *stubMarket) GlobalOverview(_ context.Context) (*domain.RawGlobalSnapshot, error) {
	if s.failGlobal {
		return nil, errStub
	}
	return s.global, nil
}

func (s *stubMarket) TopCoins(_ context.Context, _ int) ([]domain.RawRankedCoin, error) {
	if s.failTopCoins {
		return nil, errStub
	}
	return s.topCoins, nil
}

func (s *stubMarket) BitcoinChart(_ context.Context, _ int) (*domain.RawAssetChart, error) {
	if s.failChart {
		return nil, errStub
	}
	return s.chart, nil
}

func (s *stubMarket) Trending(_ context.Context) ([]domain.RawTrendingCoin, error) {
	if s.failTrending {
		return nil, errStub
	}
	return s.trending, nil
}

func (s *stubMarket) Categories(_ context.Context) ([]domain.RawCategory, error) {
	if s.failCategories {
		return nil, errStub
	}
	return s.categories, nil
}

// stubQuote is a canned QuoteSource.
type stubQuote struct {
	quote *domain.RawExchangeQuote
	fail  bool
}

func (s *stubQuote) SpotQuote(_ context.Context) (*domain.RawExchangeQuote, error) {
	if s.fail {
		return nil, errStub
	}
	return s.quote, nil
}

func newStubMarket() *stubMarket {
	return &stubMarket{
		global: &domain.RawGlobalSnapshot{
			Data: &domain.RawGlobalData{
				TotalMarketCap:      map[string]domain.FlexFloat{"usd": domain.NewFlexFloat(2.5e12)},
				TotalVolume:         map[string]domain.FlexFloat{"usd": domain.NewFlexFloat(9.8e10)},
				MarketCapPercentage: map[string]domain.FlexFloat{"btc": domain.NewFlexFloat(52.1)},
			},
		},
		chart: &domain.RawAssetChart{
			Prices: []domain.RawChartPoint{
				{TimestampMs: 1000, Price: domain.NewFlexFloat(59000)},
				{TimestampMs: 2000, Price: domain.NewFlexFloat(60000)},
			},
		},
		topCoins: []domain.RawRankedCoin{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", PriceChangePct24h: domain.NewFlexFloat(1.5)},
		},
		trending: []domain.RawTrendingCoin{
			{Name: "Dogwifhat", Symbol: "wif", MarketCapRank: domain.NewFlexFloat(150)},
		},
		categories: []domain.RawCategory{
			{Name: "Layer 1", MarketCapChange24h: domain.NewFlexFloat(2.4)},
		},
	}
}

func quoteFor(venue, body string) *stubQuote {
	return &stubQuote{
		quote: &domain.RawExchangeQuote{Venue: venue, Body: []byte(body)},
	}
}

func newTestOrchestrator(market *stubMarket, snapStore storage.SnapshotStore, sampleStore storage.PriceSampleStore) *Orchestrator {
	return New(Options{
		MarketData:       market,
		SnapshotStore:    snapStore,
		PriceSampleStore: sampleStore,
		Coinbase:         quoteFor(domain.VenueCoinbase, `{"data":{"amount":"60100.00"}}`),
		Kraken:           quoteFor(domain.VenueKraken, `{"result":{"XXBTZUSD":{"c":["60040.00","1"]}}}`),
		Binance:          quoteFor(domain.VenueBinance, `{"price":"60090.00"}`),
	})
}

func TestOrchestrator_FullCycle(t *testing.T) {
	snapStore := memory.NewSnapshotStore()
	sampleStore := memory.NewPriceSampleStore()
	o := newTestOrchestrator(newStubMarket(), snapStore, sampleStore)
	ctx := context.Background()

	result, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Skipped {
		t.Fatal("Expected cycle to persist, got skipped")
	}
	if len(result.SourcesPresent) != 5 {
		t.Errorf("Expected 5 sources present, got %v", result.SourcesPresent)
	}
	if result.SamplesArchived != 2 {
		t.Errorf("Expected 2 samples archived, got %d", result.SamplesArchived)
	}

	snap, err := snapStore.Get(ctx)
	if err != nil {
		t.Fatalf("Snapshot not stored: %v", err)
	}
	if snap.Derived == nil {
		t.Fatal("Expected derived metrics in snapshot")
	}
	if snap.Derived.FromExchangePulse == nil {
		t.Error("Expected exchange pulse with both mandatory quotes present")
	}
	if snap.Global == nil || len(snap.TopCoins) != 1 {
		t.Error("Expected raw global and top coins fragments in snapshot")
	}
}

func TestOrchestrator_SkipsOnMissingMandatorySource(t *testing.T) {
	snapStore := memory.NewSnapshotStore()

	// Seed a prior snapshot
	prior := &domain.MarketSnapshot{FetchedAt: 12345}
	if err := snapStore.Save(context.Background(), prior); err != nil {
		t.Fatalf("Seed save failed: %v", err)
	}

	market := newStubMarket()
	market.failGlobal = true
	o := newTestOrchestrator(market, snapStore, memory.NewPriceSampleStore())

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Skipped {
		t.Fatal("Expected skipped cycle with mandatory source missing")
	}
	if len(result.Errors) == 0 {
		t.Error("Expected fetch error to be reported")
	}

	// Previous snapshot survives untouched
	snap, err := snapStore.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.FetchedAt != 12345 {
		t.Errorf("Expected prior snapshot preserved, got FetchedAt %d", snap.FetchedAt)
	}
}

func TestOrchestrator_OptionalSourceFailureStillPersists(t *testing.T) {
	snapStore := memory.NewSnapshotStore()
	market := newStubMarket()
	market.failTrending = true
	o := newTestOrchestrator(market, snapStore, memory.NewPriceSampleStore())

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Skipped {
		t.Fatal("Optional source failure must not skip the cycle")
	}

	snap, err := snapStore.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Discovery absent degrades to quiet defaults
	d := snap.Derived.FromDiscovery
	if d.HypeVsMarketCapDivergence || d.RetailMoonshotPresence {
		t.Error("Expected quiet discovery defaults with discovery absent")
	}

	for _, source := range snap.SourcesPresent {
		if source == domain.SourceDiscovery {
			t.Error("Discovery must not be listed present after failing")
		}
	}
}

func TestOrchestrator_ArchivesOnlyNewSamples(t *testing.T) {
	snapStore := memory.NewSnapshotStore()
	sampleStore := memory.NewPriceSampleStore()
	market := newStubMarket()
	o := newTestOrchestrator(market, snapStore, sampleStore)
	ctx := context.Background()

	if _, err := o.Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// Second cycle sees one extra chart point
	market.chart.Prices = append(market.chart.Prices,
		domain.RawChartPoint{TimestampMs: 3000, Price: domain.NewFlexFloat(60100)})

	result, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if result.SamplesArchived != 1 {
		t.Errorf("Expected 1 new sample archived, got %d", result.SamplesArchived)
	}

	samples, err := sampleStore.GetLatest(ctx, "bitcoin", 10)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if len(samples) != 3 {
		t.Errorf("Expected 3 samples total, got %d", len(samples))
	}
}

func TestOrchestrator_AllQuotesFailedReportsError(t *testing.T) {
	snapStore := memory.NewSnapshotStore()
	o := New(Options{
		MarketData:    newStubMarket(),
		SnapshotStore: snapStore,
		Coinbase:      &stubQuote{fail: true},
		Kraken:        &stubQuote{fail: true},
		Binance:       &stubQuote{fail: true},
	})

	result, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Skipped {
		t.Fatal("Quote failures must not skip the cycle")
	}
	if len(result.Errors) == 0 {
		t.Error("Expected quote failure to be reported")
	}

	snap, err := snapStore.Get(context.Background())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if snap.Derived.FromExchangePulse != nil {
		t.Error("Expected nil exchange pulse with no quotes")
	}
}
