package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// SequenceRepository hands out per-partition event sequence numbers.
type SequenceRepository interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type sqlSequenceRepository struct {
	db *sql.DB
}

func NewSequenceRepository(db *sql.DB) SequenceRepository {
	return &sqlSequenceRepository{db: db}
}

const nextSequenceQuery = `
INSERT INTO event_sequences (partition_key, last_sequence, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (partition_key) DO UPDATE
SET last_sequence = event_sequences.last_sequence + 1,
    updated_at = NOW()
RETURNING last_sequence
`

// NextSequence is a single upsert, so concurrent callers never share a number.
func (r *sqlSequenceRepository) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}
	var next int64
	if err := r.db.QueryRowContext(ctx, nextSequenceQuery, partitionKey).Scan(&next); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return next, nil
}

// MemorySequence numbers events per process when no database is configured.
type MemorySequence struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewMemorySequence() *MemorySequence {
	return &MemorySequence{last: make(map[string]int64)}
}

func (m *MemorySequence) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("partition key is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[partitionKey]++
	return m.last[partitionKey], nil
}
