package ports

import (
	"context"
	"time"
)

// Lock is a short-lived, cross-process mutual exclusion for batch jobs.
type Lock interface {
	// TryAcquire takes the lock for ttl. It returns false without error when
	// another owner holds an unexpired lock.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lock if it is still held by this owner.
	Release(ctx context.Context, key string) error
}
