package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pixelary/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

type lockRecord struct {
	Owner     string `json:"owner"`
	ExpiresAt int64  `json:"expires_at"`
}

// NakamaLockAdapter implements ports.Lock on system-owned storage objects.
// Creation uses Version "*" and takeover of an expired lock uses the stored
// object version, so at most one node wins each round.
type NakamaLockAdapter struct {
	nk    storageAPI
	owner string
	now   func() time.Time
}

// NewNakamaLockAdapter creates a lock adapter with a fresh owner id.
func NewNakamaLockAdapter(nk storageAPI) *NakamaLockAdapter {
	return &NakamaLockAdapter{nk: nk, owner: uuid.NewString(), now: time.Now}
}

// TryAcquire takes key for ttl unless another owner holds it.
func (a *NakamaLockAdapter) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	current, version, err := a.read(ctx, key)
	if err != nil {
		return false, err
	}
	now := a.now()
	if version != "" && current.Owner != a.owner && now.UnixMilli() < current.ExpiresAt {
		return false, nil
	}
	if version == "" {
		version = "*"
	}

	value, err := json.Marshal(lockRecord{Owner: a.owner, ExpiresAt: now.Add(ttl).UnixMilli()})
	if err != nil {
		return false, fmt.Errorf("failed to marshal lock: %w", err)
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      lockCollection,
		Key:             key,
		UserID:          SystemUserID,
		Value:           string(value),
		Version:         version,
		PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}})
	if err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to write lock %s: %w", key, err)
	}
	return true, nil
}

// Release deletes key if this adapter still owns it.
func (a *NakamaLockAdapter) Release(ctx context.Context, key string) error {
	current, version, err := a.read(ctx, key)
	if err != nil {
		return err
	}
	if version == "" || current.Owner != a.owner {
		return nil
	}
	err = a.nk.StorageDelete(ctx, []*runtime.StorageDelete{{
		Collection: lockCollection,
		Key:        key,
		UserID:     SystemUserID,
		Version:    version,
	}})
	if err != nil && !errors.Is(err, runtime.ErrStorageRejectedVersion) {
		return fmt.Errorf("failed to delete lock %s: %w", key, err)
	}
	return nil
}

func (a *NakamaLockAdapter) read(ctx context.Context, key string) (lockRecord, string, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: lockCollection,
		Key:        key,
		UserID:     SystemUserID,
	}})
	if err != nil {
		return lockRecord{}, "", fmt.Errorf("failed to read lock %s: %w", key, err)
	}
	if len(objects) == 0 {
		return lockRecord{}, "", nil
	}
	var rec lockRecord
	if err := json.Unmarshal([]byte(objects[0].Value), &rec); err != nil {
		return lockRecord{}, "", fmt.Errorf("failed to unmarshal lock %s: %w", key, err)
	}
	return rec, objects[0].Version, nil
}

var _ ports.Lock = (*NakamaLockAdapter)(nil)
