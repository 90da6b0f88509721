package derive

import (
	"math"
	"testing"

	"market-context-lab/internal/domain"
)

// coinsWithChanges builds a ranked list from 24h changes; NaN marks a coin
// without 24h data.
func coinsWithChanges(changes ...float64) []domain.RawRankedCoin {
	coins := make([]domain.RawRankedCoin, len(changes))
	for i, ch := range changes {
		coins[i] = domain.RawRankedCoin{Symbol: "c", Name: "coin"}
		if !math.IsNaN(ch) {
			coins[i].PriceChangePct24h = domain.NewFlexFloat(ch)
		}
	}
	return coins
}

func TestDeriveTopCoins_EmptyList(t *testing.T) {
	m := deriveTopCoins(nil)
	if m.MarketBreadthAbove50Percent != nil || m.Top10AvgChangePct24h != nil || m.Rank11To100AvgChangePct24h != nil {
		t.Errorf("expected all-nil metrics for empty list, got %+v", m)
	}
}

func TestDeriveTopCoins_BreadthNilWithoutAny24hData(t *testing.T) {
	m := deriveTopCoins(coinsWithChanges(math.NaN(), math.NaN(), math.NaN()))
	if m.MarketBreadthAbove50Percent != nil {
		t.Errorf("expected nil breadth when no coin has 24h data, got %v", *m.MarketBreadthAbove50Percent)
	}
}

func TestDeriveTopCoins_BreadthHalfPositive(t *testing.T) {
	// 20 entries with data: 10 strictly positive, 10 negative → 50%.
	changes := make([]float64, 0, 20)
	for i := 0; i < 10; i++ {
		changes = append(changes, 1.0+float64(i))
	}
	for i := 0; i < 10; i++ {
		changes = append(changes, -1.0-float64(i))
	}

	m := deriveTopCoins(coinsWithChanges(changes...))
	if m.MarketBreadthAbove50Percent == nil || *m.MarketBreadthAbove50Percent != 50 {
		t.Errorf("expected breadth 50, got %v", m.MarketBreadthAbove50Percent)
	}
}

func TestDeriveTopCoins_ZeroChangeIsNotPositive(t *testing.T) {
	m := deriveTopCoins(coinsWithChanges(0, 0, 1))
	// 3 coins with data, 1 strictly positive → 33.33…%
	if m.MarketBreadthAbove50Percent == nil {
		t.Fatal("expected non-nil breadth")
	}
	if math.Abs(*m.MarketBreadthAbove50Percent-100.0/3.0) > 1e-9 {
		t.Errorf("expected breadth 33.33, got %v", *m.MarketBreadthAbove50Percent)
	}
}

func TestDeriveTopCoins_SegmentAverages(t *testing.T) {
	// First 10 coins at +2, next 20 at -1.
	changes := make([]float64, 0, 30)
	for i := 0; i < 10; i++ {
		changes = append(changes, 2)
	}
	for i := 0; i < 20; i++ {
		changes = append(changes, -1)
	}

	m := deriveTopCoins(coinsWithChanges(changes...))

	if m.Top10AvgChangePct24h == nil || *m.Top10AvgChangePct24h != 2 {
		t.Errorf("expected top-10 average 2, got %v", m.Top10AvgChangePct24h)
	}
	if m.Rank11To100AvgChangePct24h == nil || *m.Rank11To100AvgChangePct24h != -1 {
		t.Errorf("expected 11-100 average -1, got %v", m.Rank11To100AvgChangePct24h)
	}
}

func TestDeriveTopCoins_SegmentsArePositional(t *testing.T) {
	// Coins 1-10 have no 24h data; coins 11-15 carry +5. The top-10 segment
	// is a positional slice of the original list, so its average is nil and
	// the 11-100 segment still sees the +5 entries.
	changes := []float64{
		math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(),
		math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(),
		5, 5, 5, 5, 5,
	}

	m := deriveTopCoins(coinsWithChanges(changes...))

	if m.Top10AvgChangePct24h != nil {
		t.Errorf("expected nil top-10 average, got %v", *m.Top10AvgChangePct24h)
	}
	if m.Rank11To100AvgChangePct24h == nil || *m.Rank11To100AvgChangePct24h != 5 {
		t.Errorf("expected 11-100 average 5, got %v", m.Rank11To100AvgChangePct24h)
	}
}

func TestDeriveTopCoins_ShortList(t *testing.T) {
	// 5 coins: the 11-100 segment is empty → nil.
	m := deriveTopCoins(coinsWithChanges(1, 2, 3, -1, -2))

	if m.Top10AvgChangePct24h == nil || *m.Top10AvgChangePct24h != 0.6 {
		t.Errorf("expected top-10 average 0.6, got %v", m.Top10AvgChangePct24h)
	}
	if m.Rank11To100AvgChangePct24h != nil {
		t.Errorf("expected nil 11-100 average for short list, got %v", *m.Rank11To100AvgChangePct24h)
	}
}
