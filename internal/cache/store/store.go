// Package store persists cache entries. Entries are append-only: a write
// always adds a row and readers pick the newest row created after a cutoff.
package store

import (
	"context"
	"time"

	"iinfinder/internal/cache/models"
)

// Store is implemented by the memory, SQL and Redis backends.
type Store interface {
	InsertScreening(ctx context.Context, key models.ScreeningKey, entry models.ScreeningEntry) error
	// LatestScreening returns the newest entry created strictly after
	// notBefore, or models.ErrNotFound.
	LatestScreening(ctx context.Context, key models.ScreeningKey, notBefore time.Time) (*models.ScreeningEntry, error)

	InsertConfirmation(ctx context.Context, key models.ConfirmationKey, entry models.ConfirmationEntry) error
	LatestConfirmation(ctx context.Context, key models.ConfirmationKey, notBefore time.Time) (*models.ConfirmationEntry, error)

	// RemoveCreatedBefore deletes every entry of level created at or before
	// cutoff and reports how many were removed.
	RemoveCreatedBefore(ctx context.Context, level models.Level, cutoff time.Time) (int64, error)
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicros(us int64) time.Time {
	return time.UnixMicro(us).UTC()
}
