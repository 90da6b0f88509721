package derive

import (
	"reflect"
	"time"

	"testing"

	"market-context-lab/internal/domain"
)

// frozenClock returns a clock fixed at the given Unix second.
func frozenClock(sec int64) func() time.Time {
	return func() time.Time {
		return time.Unix(sec, 500_000_000) // sub-second part must be truncated
	}
}

func TestCompute_EmptyInputs(t *testing.T) {
	e := New(DefaultConfig(), WithClock(frozenClock(1700000000)))

	got := e.Compute(Inputs{})

	if got == nil {
		t.Fatal("expected non-nil DerivedMetrics for empty inputs")
	}
	if got.ComputedAt != 1700000000 {
		t.Errorf("expected ComputedAt 1700000000, got %d", got.ComputedAt)
	}
	if got.FromGlobal.VolumeRatio != nil {
		t.Error("expected nil VolumeRatio for empty inputs")
	}
	if got.FromBitcoinChart.Trend != nil {
		t.Error("expected nil Trend for empty inputs")
	}
	if got.FromTopCoins.MarketBreadthAbove50Percent != nil {
		t.Error("expected nil breadth for empty inputs")
	}
	if got.FromDiscovery.HypeVsMarketCapDivergence {
		t.Error("expected false divergence for empty inputs")
	}
	if got.FromExchangePulse != nil {
		t.Error("expected nil exchange pulse for empty inputs")
	}
}

func TestCompute_Idempotent(t *testing.T) {
	e := New(DefaultConfig(), WithClock(frozenClock(1700000000)))

	in := Inputs{
		TopCoins: []domain.RawRankedCoin{
			{Name: "Bitcoin", Symbol: "btc", PriceChangePct24h: domain.NewFlexFloat(1.5)},
			{Name: "Ethereum", Symbol: "eth", PriceChangePct24h: domain.NewFlexFloat(-0.5)},
		},
		Discovery: &domain.RawDiscoverySignals{
			Trending: []domain.RawTrendingCoin{
				{Name: "Pepe", Symbol: "pepe", MarketCapRank: domain.NewFlexFloat(120)},
			},
		},
	}

	first := e.Compute(in)
	second := e.Compute(in)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected deep-equal results under a frozen clock\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCompute_ComputedAtTruncatedToSeconds(t *testing.T) {
	e := New(DefaultConfig(), WithClock(func() time.Time {
		return time.Unix(1700000123, 999_000_000)
	}))

	got := e.Compute(Inputs{})
	if got.ComputedAt != 1700000123 {
		t.Errorf("expected whole-second ComputedAt 1700000123, got %d", got.ComputedAt)
	}
}
