package memory

import (
	"context"
	"encoding/json"
	"sync"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	blob []byte // stored as JSON so callers cannot mutate the snapshot in place
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Save stores the snapshot, replacing any previous one.
func (s *SnapshotStore) Save(_ context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = data
	return nil
}

// Get retrieves the current snapshot. Returns ErrNotFound if none is stored.
func (s *SnapshotStore) Get(_ context.Context) (*domain.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.blob == nil {
		return nil, storage.ErrNotFound
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(s.blob, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Clear removes the stored snapshot.
func (s *SnapshotStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = nil
	return nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
