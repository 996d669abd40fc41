package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pixelary/internal/config"
	"pixelary/internal/ports"
)

// GetConfig returns the stored bandit parameters or the defaults.
func (s *Store) GetConfig(ctx context.Context, namespace string) (config.BanditConfig, error) {
	var c config.BanditConfig
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT exploration_rate, z_score_clamp, weight_pick_rate, weight_post_rate, version, updated_at
		FROM bandit_config WHERE namespace = $1`,
		namespace,
	).Scan(&c.ExplorationRate, &c.ZScoreClamp, &c.WeightPickRate, &c.WeightPostRate, &c.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return config.DefaultBanditConfig(), nil
	}
	if err != nil {
		return config.BanditConfig{}, fmt.Errorf("read bandit config: %w", err)
	}
	c.UpdatedAt = fromMillis(updated)
	return c.Normalize(), nil
}

// PutConfig clamps cfg, stores it and returns the stored value with its new version.
func (s *Store) PutConfig(ctx context.Context, namespace string, cfg config.BanditConfig) (config.BanditConfig, error) {
	c := cfg.Normalize()
	now := s.now()

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO bandit_config
			(namespace, exploration_rate, z_score_clamp, weight_pick_rate, weight_post_rate, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6)
		ON CONFLICT (namespace) DO UPDATE SET
			exploration_rate = excluded.exploration_rate,
			z_score_clamp = excluded.z_score_clamp,
			weight_pick_rate = excluded.weight_pick_rate,
			weight_post_rate = excluded.weight_post_rate,
			version = bandit_config.version + 1,
			updated_at = excluded.updated_at
		RETURNING version`,
		namespace, c.ExplorationRate, c.ZScoreClamp, c.WeightPickRate, c.WeightPostRate, unixMillis(now),
	).Scan(&c.Version)
	if err != nil {
		return config.BanditConfig{}, fmt.Errorf("write bandit config: %w", err)
	}
	c.UpdatedAt = fromMillis(unixMillis(now))
	return c, nil
}

var _ ports.BanditConfigStore = (*Store)(nil)
