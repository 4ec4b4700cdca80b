package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

type Store interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Sequencer hands out per-partition event sequence numbers.
type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type SequenceRepository struct {
	store Store
}

func NewSequenceRepository(store Store) *SequenceRepository {
	return &SequenceRepository{store: store}
}

// NextSequence increments and returns the partition's counter in one statement.
func (r *SequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	var seq int64
	err := r.store.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq)
	if err != nil {
		return 0, db.Classify(fmt.Errorf("next sequence %s: %w", partitionKey, err))
	}
	return seq, nil
}
