package ports

import (
	"context"

	"pixelary/internal/config"
)

// BanditConfigStore holds the operator-editable selection parameters.
type BanditConfigStore interface {
	// GetConfig returns the stored parameters, or the defaults when none were saved.
	GetConfig(ctx context.Context, namespace string) (config.BanditConfig, error)

	// PutConfig normalizes and stores cfg, bumping its version.
	// Returns the stored value.
	PutConfig(ctx context.Context, namespace string, cfg config.BanditConfig) (config.BanditConfig, error)
}
