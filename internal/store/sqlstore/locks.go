package sqlstore

import (
	"context"
	"fmt"
	"time"

	"pixelary/internal/ports"
)

// TryAcquire takes the named lock for ttl unless another owner holds it.
// An expired lock is cleared first, whoever owned it.
func (s *Store) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := s.now()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE name = $1 AND expires_at <= $2`, key, unixMillis(now)); err != nil {
		return false, fmt.Errorf("clear expired lock %s: %w", key, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO locks (name, owner, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`,
		key, s.owner, unixMillis(now.Add(ttl)),
	)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return n == 1, nil
}

// Release deletes the lock only if this Store still owns it.
func (s *Store) Release(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE name = $1 AND owner = $2`, key, s.owner); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

var _ ports.Lock = (*Store)(nil)
