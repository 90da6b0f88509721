package clickhouse

import (
	"context"
	"fmt"

	"market-context-lab/internal/domain"
	"market-context-lab/internal/storage"
)

// PriceSampleStore implements storage.PriceSampleStore using ClickHouse.
// MergeTree does not enforce uniqueness at insert time, so duplicates are
// rejected with explicit existence checks before the batch is sent.
type PriceSampleStore struct {
	conn *Conn
}

// NewPriceSampleStore creates a new PriceSampleStore.
func NewPriceSampleStore(conn *Conn) *PriceSampleStore {
	return &PriceSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceSampleStore = (*PriceSampleStore)(nil)

// InsertBulk adds multiple samples. Fails entire batch on duplicate (asset, timestamp_ms).
func (s *PriceSampleStore) InsertBulk(ctx context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		asset       string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range samples {
		if p == nil || p.Asset == "" {
			return storage.ErrInvalidInput
		}
		k := key{p.Asset, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range samples {
		exists, err := s.exists(ctx, p.Asset, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_samples (
			asset, timestamp_ms, price
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		if err := batch.Append(p.Asset, uint64(p.TimestampMs), p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent limit samples for an asset, ordered by timestamp ASC.
func (s *PriceSampleStore) GetLatest(ctx context.Context, asset string, limit int) ([]*domain.PriceSample, error) {
	query := `
		SELECT asset, timestamp_ms, price
		FROM (
			SELECT asset, timestamp_ms, price
			FROM price_samples
			WHERE asset = ?
			ORDER BY timestamp_ms DESC
			LIMIT ?
		)
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, asset, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query latest samples: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// GetByTimeRange retrieves samples for an asset within [start, end] (inclusive).
func (s *PriceSampleStore) GetByTimeRange(ctx context.Context, asset string, start, end int64) ([]*domain.PriceSample, error) {
	query := `
		SELECT asset, timestamp_ms, price
		FROM price_samples
		WHERE asset = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, asset, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceSamples(rows)
}

// exists checks if a sample with the given key exists.
func (s *PriceSampleStore) exists(ctx context.Context, asset string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_samples
		WHERE asset = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, asset, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanPriceSamples scans multiple rows.
func scanPriceSamples(rows chRows) ([]*domain.PriceSample, error) {
	var samples []*domain.PriceSample

	for rows.Next() {
		var p domain.PriceSample
		var timestampMs uint64

		if err := rows.Scan(&p.Asset, &timestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sample rows: %w", err)
	}

	return samples, nil
}
