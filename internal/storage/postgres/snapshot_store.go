package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// SnapshotStore is a PostgreSQL implementation of storage.SnapshotStore.
// The snapshot lives in a single row keyed by its logical name, stored as
// a JSONB blob so the raw payload fragments survive verbatim.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new PostgreSQL snapshot store.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Save stores the snapshot, replacing any previous one.
func (s *SnapshotStore) Save(ctx context.Context, snap *domain.MarketSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO market_snapshots (snapshot_key, payload, fetched_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (snapshot_key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    fetched_at = EXCLUDED.fetched_at,
		    updated_at = NOW()
	`, domain.SnapshotKey, blob, snap.FetchedAt)

	return err
}

// Get retrieves the current snapshot. Returns ErrNotFound if none is stored.
func (s *SnapshotStore) Get(ctx context.Context) (*domain.MarketSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT payload
		FROM market_snapshots
		WHERE snapshot_key = $1
	`, domain.SnapshotKey)

	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// Clear removes the stored snapshot. Clearing an empty store is not an error.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM market_snapshots
		WHERE snapshot_key = $1
	`, domain.SnapshotKey)

	return err
}
