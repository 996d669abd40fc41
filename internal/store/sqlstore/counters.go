package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"pixelary/internal/domain"
	"pixelary/internal/ports"
)

// maxBatch keeps IN lists below SQLite's bound-variable limit.
const maxBatch = 500

// Increment applies every increment inside one transaction. Each statement is
// an atomic "col = col + n" upsert, so concurrent writers never lose updates.
func (s *Store) Increment(ctx context.Context, namespace string, increments []ports.CounterIncrement) error {
	if len(increments) == 0 {
		return nil
	}
	for _, inc := range increments {
		if !inc.Field.Valid() {
			return fmt.Errorf("unknown counter field %q", inc.Field)
		}
		if inc.Delta < 0 {
			return fmt.Errorf("negative delta %d for %s", inc.Delta, inc.Field)
		}
		if domain.NormalizeWord(inc.Word) == "" {
			return fmt.Errorf("empty word for %s increment", inc.Field)
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, inc := range increments {
			if err := incrementOne(ctx, tx, namespace, inc); err != nil {
				return err
			}
		}
		return nil
	})
}

func incrementOne(ctx context.Context, db DBExecutor, namespace string, inc ports.CounterIncrement) error {
	// Field is validated against domain.CounterFields before it reaches the query text.
	col := string(inc.Field)
	query := fmt.Sprintf(`INSERT INTO word_counters (namespace, word, dictionary, %[1]s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace, word)
		DO UPDATE SET
			%[1]s = word_counters.%[1]s + excluded.%[1]s,
			dictionary = CASE WHEN word_counters.dictionary = '' THEN excluded.dictionary ELSE word_counters.dictionary END`, col)

	if _, err := db.ExecContext(ctx, query, namespace, domain.NormalizeWord(inc.Word), inc.Dictionary, inc.Delta); err != nil {
		return fmt.Errorf("increment %s for %q: %w", col, inc.Word, err)
	}
	return nil
}

// Counters bulk-reads counters for normalized words. Unknown words are absent.
func (s *Store) Counters(ctx context.Context, namespace string, words []string) (map[string]domain.Counters, error) {
	out := make(map[string]domain.Counters, len(words))
	for start := 0; start < len(words); start += maxBatch {
		end := min(start+maxBatch, len(words))
		if err := s.readCounters(ctx, namespace, words[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) readCounters(ctx context.Context, namespace string, words []string, out map[string]domain.Counters) error {
	args := make([]any, 0, len(words)+1)
	args = append(args, namespace)
	for _, w := range words {
		args = append(args, domain.NormalizeWord(w))
	}

	query := `SELECT word, served, picked, posted, guesses, skips, solves
		FROM word_counters
		WHERE namespace = $1 AND word IN (` + placeholders(2, len(words)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var word string
		var c domain.Counters
		if err := rows.Scan(&word, &c.Served, &c.Picked, &c.Posted, &c.Guesses, &c.Skips, &c.Solves); err != nil {
			return fmt.Errorf("scan counters: %w", err)
		}
		out[word] = c
	}
	return rows.Err()
}

var _ ports.CounterStore = (*Store)(nil)
