package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// PriceSampleStore is an in-memory implementation of storage.PriceSampleStore.
type PriceSampleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceSample // keyed by (asset, timestamp_ms)
}

// NewPriceSampleStore creates a new in-memory price sample store.
func NewPriceSampleStore() *PriceSampleStore {
	return &PriceSampleStore{
		data: make(map[string]*domain.PriceSample),
	}
}

// priceSampleKey generates a unique key for a sample.
func priceSampleKey(asset string, timestampMs int64) string {
	return fmt.Sprintf("%s|%d", asset, timestampMs)
}

// InsertBulk adds multiple samples. Fails entire batch on duplicate.
func (s *PriceSampleStore) InsertBulk(_ context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(samples))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range samples {
		if p == nil || p.Asset == "" {
			return storage.ErrInvalidInput
		}
		key := priceSampleKey(p.Asset, p.TimestampMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range samples {
		key := priceSampleKey(p.Asset, p.TimestampMs)
		sampleCopy := *p
		s.data[key] = &sampleCopy
	}

	return nil
}

// GetLatest retrieves the most recent limit samples, ordered by timestamp ASC.
func (s *PriceSampleStore) GetLatest(_ context.Context, asset string, limit int) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.collect(asset, func(*domain.PriceSample) bool { return true })
	if limit > 0 && len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	return samples, nil
}

// GetByTimeRange retrieves samples within [start, end] (inclusive).
func (s *PriceSampleStore) GetByTimeRange(_ context.Context, asset string, start, end int64) ([]*domain.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(asset, func(p *domain.PriceSample) bool {
		return p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

// collect returns copies of matching samples sorted by timestamp ASC.
// Callers must hold the read lock.
func (s *PriceSampleStore) collect(asset string, match func(*domain.PriceSample) bool) []*domain.PriceSample {
	var result []*domain.PriceSample
	for _, p := range s.data {
		if p.Asset == asset && match(p) {
			sampleCopy := *p
			result = append(result, &sampleCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result
}

var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)
