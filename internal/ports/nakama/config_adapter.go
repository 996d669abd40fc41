package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pixelary/internal/config"
	"pixelary/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// storageAPI is the part of runtime.NakamaModule the storage adapters use.
type storageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

const configWriteAttempts = 3

// NakamaConfigAdapter implements ports.BanditConfigStore with one storage
// object per namespace, owned by the system user.
type NakamaConfigAdapter struct {
	nk storageAPI
}

// NewNakamaConfigAdapter creates a new config adapter.
func NewNakamaConfigAdapter(nk storageAPI) *NakamaConfigAdapter {
	return &NakamaConfigAdapter{nk: nk}
}

// GetConfig returns the stored parameters, or the defaults if none were saved.
func (a *NakamaConfigAdapter) GetConfig(ctx context.Context, namespace string) (config.BanditConfig, error) {
	cfg, _, err := a.read(ctx, namespace)
	return cfg, err
}

// PutConfig stores cfg with a conditional write on the object version so
// concurrent updates each get their own config version.
func (a *NakamaConfigAdapter) PutConfig(ctx context.Context, namespace string, cfg config.BanditConfig) (config.BanditConfig, error) {
	cfg = cfg.Normalize()
	for attempt := 0; attempt < configWriteAttempts; attempt++ {
		current, objVersion, err := a.read(ctx, namespace)
		if err != nil {
			return config.BanditConfig{}, err
		}

		next := cfg
		next.Version = current.Version + 1
		value, err := json.Marshal(next)
		if err != nil {
			return config.BanditConfig{}, fmt.Errorf("failed to marshal bandit config: %w", err)
		}

		if objVersion == "" {
			objVersion = "*"
		}
		_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
			Collection:      banditConfigCollection,
			Key:             namespace,
			UserID:          SystemUserID,
			Value:           string(value),
			Version:         objVersion,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		}})
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			continue
		}
		if err != nil {
			return config.BanditConfig{}, fmt.Errorf("failed to write bandit config: %w", err)
		}
		return next, nil
	}
	return config.BanditConfig{}, fmt.Errorf("failed to write bandit config: %w", runtime.ErrStorageRejectedVersion)
}

func (a *NakamaConfigAdapter) read(ctx context.Context, namespace string) (config.BanditConfig, string, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: banditConfigCollection,
		Key:        namespace,
		UserID:     SystemUserID,
	}})
	if err != nil {
		return config.BanditConfig{}, "", fmt.Errorf("failed to read bandit config: %w", err)
	}
	if len(objects) == 0 {
		return config.DefaultBanditConfig(), "", nil
	}

	cfg := config.DefaultBanditConfig()
	if err := json.Unmarshal([]byte(objects[0].Value), &cfg); err != nil {
		return config.BanditConfig{}, "", fmt.Errorf("failed to unmarshal bandit config: %w", err)
	}
	return cfg.Normalize(), objects[0].Version, nil
}

var _ ports.BanditConfigStore = (*NakamaConfigAdapter)(nil)
