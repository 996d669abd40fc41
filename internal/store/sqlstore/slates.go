package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pixelary/internal/domain"
	"pixelary/internal/ports"
)

// SaveSlate stores the slate's candidates until now+ttl.
func (s *Store) SaveSlate(ctx context.Context, namespace string, slate domain.Slate, ttl time.Duration) error {
	candidates, err := json.Marshal(slate.Candidates)
	if err != nil {
		return fmt.Errorf("marshal slate candidates: %w", err)
	}

	created := slate.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO slates (slate_id, namespace, candidates, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		slate.ID, namespace, string(candidates), unixMillis(created), unixMillis(s.now().Add(ttl)),
	)
	if err != nil {
		return fmt.Errorf("insert slate %s: %w", slate.ID, err)
	}
	return nil
}

// LoadSlate returns ports.ErrSlateNotFound for unknown or expired slates.
func (s *Store) LoadSlate(ctx context.Context, namespace, slateID string) (domain.Slate, error) {
	var raw string
	var created, expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT candidates, created_at, expires_at FROM slates WHERE slate_id = $1 AND namespace = $2`,
		slateID, namespace,
	).Scan(&raw, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Slate{}, ports.ErrSlateNotFound
	}
	if err != nil {
		return domain.Slate{}, fmt.Errorf("load slate %s: %w", slateID, err)
	}
	if expires <= unixMillis(s.now()) {
		return domain.Slate{}, ports.ErrSlateNotFound
	}

	slate := domain.Slate{ID: slateID, CreatedAt: fromMillis(created)}
	if err := json.Unmarshal([]byte(raw), &slate.Candidates); err != nil {
		return domain.Slate{}, fmt.Errorf("unmarshal slate %s: %w", slateID, err)
	}
	return slate, nil
}

// PurgeExpiredSlates removes associations whose TTL elapsed before now.
func (s *Store) PurgeExpiredSlates(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slates WHERE expires_at <= $1`, unixMillis(now))
	if err != nil {
		return 0, fmt.Errorf("purge slates: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

var _ ports.SlateStore = (*Store)(nil)
