package memory

import (
	"context"
	"errors"
	"testing"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

func TestSnapshotStore_SaveAndGet(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	price := 60000.0
	snap := &domain.MarketSnapshot{
		Derived: &domain.DerivedMetrics{
			FromBitcoinChart: domain.BitcoinChartMetrics{CurrentPrice: &price},
			ComputedAt:       1700000000,
		},
		SourcesPresent: []string{domain.SourceGlobal, domain.SourceBitcoinChart},
		FetchedAt:      1700000000,
	}

	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.Derived == nil || got.Derived.FromBitcoinChart.CurrentPrice == nil {
		t.Fatal("Expected derived bitcoin price to round-trip")
	}
	if *got.Derived.FromBitcoinChart.CurrentPrice != price {
		t.Errorf("Expected price %v, got %v", price, *got.Derived.FromBitcoinChart.CurrentPrice)
	}
	if len(got.SourcesPresent) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(got.SourcesPresent))
	}
}

func TestSnapshotStore_GetEmpty(t *testing.T) {
	store := NewSnapshotStore()

	_, err := store.Get(context.Background())
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on empty store, got %v", err)
	}
}

func TestSnapshotStore_SaveReplaces(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	first := &domain.MarketSnapshot{FetchedAt: 1000}
	second := &domain.MarketSnapshot{FetchedAt: 2000}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FetchedAt != 2000 {
		t.Errorf("Expected replacement snapshot (FetchedAt 2000), got %d", got.FetchedAt)
	}
}

func TestSnapshotStore_Clear(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Save(ctx, &domain.MarketSnapshot{FetchedAt: 1000}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	_, err := store.Get(ctx)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clear, got %v", err)
	}

	// Clearing an empty store is not an error
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear on empty store should succeed, got %v", err)
	}
}

func TestSnapshotStore_NilInput(t *testing.T) {
	store := NewSnapshotStore()

	err := store.Save(context.Background(), nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil snapshot, got %v", err)
	}
}

func TestSnapshotStore_GetReturnsCopy(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Save(ctx, &domain.MarketSnapshot{FetchedAt: 1000, SourcesPresent: []string{domain.SourceGlobal}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Mutating the returned snapshot must not affect the stored one
	first.FetchedAt = 9999
	first.SourcesPresent[0] = "mutated"

	second, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("Second get failed: %v", err)
	}
	if second.FetchedAt != 1000 {
		t.Errorf("Stored snapshot mutated: FetchedAt = %d", second.FetchedAt)
	}
	if second.SourcesPresent[0] != domain.SourceGlobal {
		t.Errorf("Stored snapshot mutated: SourcesPresent[0] = %s", second.SourcesPresent[0])
	}
}
