// Package cache is the two-level result cache of the resolution pipeline.
//
// Level 1 holds screening batches per (birth date, series); level 2 holds
// resolved results per (birth date, folded name, series). Expiry is decided
// on read from each level's TTL; periodic sweeps only reclaim space.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"iinfinder/internal/cache/models"
	"iinfinder/internal/cache/store"
	"iinfinder/internal/platform/metrics"
	"iinfinder/pkg/requestcontext"
)

// Tiered wraps a store with per-level TTLs.
type Tiered struct {
	store           store.Store
	screeningTTL    time.Duration
	confirmationTTL time.Duration
	logger          *slog.Logger
	metrics         *metrics.Metrics
}

type Option func(*Tiered)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tiered) {
		t.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tiered) {
		t.metrics = m
	}
}

func New(st store.Store, screeningTTL, confirmationTTL time.Duration, opts ...Option) (*Tiered, error) {
	if st == nil {
		return nil, errors.New("cache store is required")
	}
	if screeningTTL <= 0 || confirmationTTL <= 0 {
		return nil, errors.New("cache TTLs must be positive")
	}
	t := &Tiered{
		store:           st,
		screeningTTL:    screeningTTL,
		confirmationTTL: confirmationTTL,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Screening returns the newest unexpired screening batch for key. A miss is
// reported as ok=false with a nil error.
func (t *Tiered) Screening(ctx context.Context, key models.ScreeningKey) (*models.ScreeningEntry, bool, error) {
	cutoff := requestcontext.Now(ctx).Add(-t.screeningTTL)
	entry, err := t.store.LatestScreening(ctx, key, cutoff)
	if errors.Is(err, models.ErrNotFound) {
		t.metrics.RecordCacheLookup(string(models.LevelScreening), "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup screening cache %s: %w", key, err)
	}
	t.metrics.RecordCacheLookup(string(models.LevelScreening), "hit")
	return entry, true, nil
}

// PutScreening appends a new screening batch stamped with the request time.
func (t *Tiered) PutScreening(ctx context.Context, key models.ScreeningKey, entry models.ScreeningEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if err := t.store.InsertScreening(ctx, key, entry); err != nil {
		return fmt.Errorf("store screening cache %s: %w", key, err)
	}
	return nil
}

func (t *Tiered) Confirmation(ctx context.Context, key models.ConfirmationKey) (*models.ConfirmationEntry, bool, error) {
	cutoff := requestcontext.Now(ctx).Add(-t.confirmationTTL)
	entry, err := t.store.LatestConfirmation(ctx, key, cutoff)
	if errors.Is(err, models.ErrNotFound) {
		t.metrics.RecordCacheLookup(string(models.LevelConfirmation), "miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup confirmation cache %s: %w", key, err)
	}
	t.metrics.RecordCacheLookup(string(models.LevelConfirmation), "hit")
	return entry, true, nil
}

func (t *Tiered) PutConfirmation(ctx context.Context, key models.ConfirmationKey, entry models.ConfirmationEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if err := t.store.InsertConfirmation(ctx, key, entry); err != nil {
		return fmt.Errorf("store confirmation cache %s: %w", key, err)
	}
	return nil
}

// SweepScreening deletes level-1 rows past their horizon.
func (t *Tiered) SweepScreening(ctx context.Context) (int64, error) {
	return t.sweep(ctx, models.LevelScreening, t.screeningTTL)
}

// SweepConfirmation deletes level-2 rows past their horizon.
func (t *Tiered) SweepConfirmation(ctx context.Context) (int64, error) {
	return t.sweep(ctx, models.LevelConfirmation, t.confirmationTTL)
}

func (t *Tiered) sweep(ctx context.Context, level models.Level, ttl time.Duration) (int64, error) {
	n, err := t.store.RemoveCreatedBefore(ctx, level, requestcontext.Now(ctx).Add(-ttl))
	if err != nil {
		return n, fmt.Errorf("sweep %s cache: %w", level, err)
	}
	t.metrics.AddSweepDeleted(string(level)+"_cache", n)
	if n > 0 {
		t.logger.DebugContext(ctx, "cache sweep removed entries", "level", level, "removed", n)
	}
	return n, nil
}
