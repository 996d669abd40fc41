package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"pixelary/internal/domain"
	"pixelary/internal/ports"
)

// EligibleWords unions the given dictionaries in order. A word listed in
// several dictionaries is attributed to the first one.
func (s *Store) EligibleWords(ctx context.Context, namespace string, dictionaries []string) ([]domain.WordRef, error) {
	if len(dictionaries) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(dictionaries)+1)
	args = append(args, namespace)
	for _, d := range dictionaries {
		args = append(args, d)
	}
	query := `SELECT dictionary, word FROM dictionary_words
		WHERE namespace = $1 AND dictionary IN (` + placeholders(2, len(dictionaries)) + `)
		ORDER BY word`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dictionary words: %w", err)
	}
	defer rows.Close()

	byDictionary := make(map[string][]string, len(dictionaries))
	for rows.Next() {
		var dictionary, word string
		if err := rows.Scan(&dictionary, &word); err != nil {
			return nil, fmt.Errorf("scan dictionary word: %w", err)
		}
		byDictionary[dictionary] = append(byDictionary[dictionary], word)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []domain.WordRef
	for _, d := range dictionaries {
		for _, w := range byDictionary[d] {
			if seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, domain.WordRef{Word: w, Dictionary: d})
		}
	}
	return out, nil
}

// AddWords inserts normalized words into a dictionary, ignoring ones already present.
func (s *Store) AddWords(ctx context.Context, namespace, dictionary string, words []string) (int, error) {
	if dictionary == "" {
		return 0, fmt.Errorf("dictionary is required")
	}

	added := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, raw := range words {
			word := domain.NormalizeWord(raw)
			if word == "" {
				continue
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO dictionary_words (namespace, dictionary, word) VALUES ($1, $2, $3)
				ON CONFLICT (namespace, dictionary, word) DO NOTHING`,
				namespace, dictionary, word,
			)
			if err != nil {
				return fmt.Errorf("insert %q: %w", word, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// SeedCounters creates zero counter rows for dictionary words without one.
func (s *Store) SeedCounters(ctx context.Context, namespace string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO word_counters (namespace, word, dictionary)
		SELECT namespace, word, MIN(dictionary) FROM dictionary_words
		WHERE namespace = $1
		GROUP BY namespace, word
		ON CONFLICT (namespace, word) DO NOTHING`,
		namespace,
	)
	if err != nil {
		return 0, fmt.Errorf("seed counters: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

var _ ports.WordPool = (*Store)(nil)
