package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/constellate/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore. It keeps exactly one
// generation of markets: ReplaceAll swaps the whole table inside a
// transaction so a concurrent LoadAll never observes a partial collection.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given connection
// pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// ReplaceAll atomically replaces the persisted collection with markets.
func (s *SnapshotStore) ReplaceAll(ctx context.Context, markets []domain.Market) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM markets"); err != nil {
		return fmt.Errorf("postgres: clear markets: %w", err)
	}

	if len(markets) > 0 {
		const query = `
			INSERT INTO markets (platform, id, volume_24h, data, updated_at)
			VALUES ($1, $2, $3, $4, NOW())`

		batch := &pgx.Batch{}
		for _, m := range markets {
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("postgres: marshal market %s: %w", m.Key(), err)
			}
			batch.Queue(query, string(m.Platform), m.ID, m.Volume24h, data)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range markets {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: insert market batch item %d: %w", i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit replace: %w", err)
	}
	return nil
}

// LoadAll returns the persisted collection ordered by trailing 24h volume
// descending.
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]domain.Market, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT data FROM markets ORDER BY volume_24h DESC, platform, id")
	if err != nil {
		return nil, fmt.Errorf("postgres: load markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		var m domain.Market
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate markets: %w", err)
	}
	return markets, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
