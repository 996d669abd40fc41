package ports

import (
	"context"

	"pixelary/internal/domain"
)

// CounterIncrement adds Delta to one counter of one word.
type CounterIncrement struct {
	Word       string
	Dictionary string
	Field      domain.CounterField
	Delta      int64
}

// CounterStore persists per-word engagement counters.
type CounterStore interface {
	// Increment atomically adds each delta to its counter. Words without a
	// stored record are created with zero counters first.
	Increment(ctx context.Context, namespace string, increments []CounterIncrement) error

	// Counters bulk-reads counters for the given normalized words.
	// Words with no stored record are absent from the result.
	Counters(ctx context.Context, namespace string, words []string) (map[string]domain.Counters, error)
}
