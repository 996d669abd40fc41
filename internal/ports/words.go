package ports

import (
	"context"

	"pixelary/internal/domain"
)

// WordPool lists the words eligible for selection.
type WordPool interface {
	// EligibleWords returns the union of the given dictionaries, deduplicated by
	// normalized word. Earlier dictionaries win on duplicates.
	EligibleWords(ctx context.Context, namespace string, dictionaries []string) ([]domain.WordRef, error)

	// AddWords inserts words into a dictionary and returns how many were new.
	AddWords(ctx context.Context, namespace, dictionary string, words []string) (int, error)

	// SeedCounters creates zero counter records for dictionary words that have none.
	SeedCounters(ctx context.Context, namespace string) (int64, error)
}
