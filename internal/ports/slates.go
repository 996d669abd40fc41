package ports

import (
	"context"
	"errors"
	"time"

	"pixelary/internal/domain"
)

// ErrSlateNotFound is returned when a slate id is unknown or expired.
var ErrSlateNotFound = errors.New("slate not found")

// SlateStore keeps the short-lived slate id -> candidates association.
type SlateStore interface {
	SaveSlate(ctx context.Context, namespace string, slate domain.Slate, ttl time.Duration) error

	// LoadSlate returns ErrSlateNotFound for unknown or expired ids.
	LoadSlate(ctx context.Context, namespace, slateID string) (domain.Slate, error)

	// PurgeExpiredSlates deletes associations that expired before now.
	PurgeExpiredSlates(ctx context.Context, now time.Time) (int64, error)
}
