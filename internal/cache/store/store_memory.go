package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"iinfinder/internal/cache/models"
)

// InMemoryStore keeps entries in process memory. Used in tests and when no
// database is configured for the cache.
type InMemoryStore struct {
	mu            sync.RWMutex
	screening     map[string][]models.ScreeningEntry
	confirmations map[string][]models.ConfirmationEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		screening:     make(map[string][]models.ScreeningEntry),
		confirmations: make(map[string][]models.ConfirmationEntry),
	}
}

func (s *InMemoryStore) InsertScreening(_ context.Context, key models.ScreeningKey, entry models.ScreeningEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	s.screening[k] = append(s.screening[k], entry)
	return nil
}

func (s *InMemoryStore) LatestScreening(_ context.Context, key models.ScreeningKey, notBefore time.Time) (*models.ScreeningEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ScreeningEntry
	for i, e := range s.screening[key.String()] {
		if e.CreatedAt.After(notBefore) && (latest == nil || !e.CreatedAt.Before(latest.CreatedAt)) {
			latest = &s.screening[key.String()][i]
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (s *InMemoryStore) InsertConfirmation(_ context.Context, key models.ConfirmationKey, entry models.ConfirmationEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key.String()
	s.confirmations[k] = append(s.confirmations[k], entry)
	return nil
}

func (s *InMemoryStore) LatestConfirmation(_ context.Context, key models.ConfirmationKey, notBefore time.Time) (*models.ConfirmationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ConfirmationEntry
	for i, e := range s.confirmations[key.String()] {
		if e.CreatedAt.After(notBefore) && (latest == nil || !e.CreatedAt.Before(latest.CreatedAt)) {
			latest = &s.confirmations[key.String()][i]
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	out := *latest
	return &out, nil
}

func (s *InMemoryStore) RemoveCreatedBefore(_ context.Context, level models.Level, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	switch level {
	case models.LevelScreening:
		for k, entries := range s.screening {
			kept := entries[:0]
			for _, e := range entries {
				if e.CreatedAt.After(cutoff) {
					kept = append(kept, e)
				} else {
					removed++
				}
			}
			if len(kept) == 0 {
				delete(s.screening, k)
			} else {
				s.screening[k] = kept
			}
		}
	case models.LevelConfirmation:
		for k, entries := range s.confirmations {
			kept := entries[:0]
			for _, e := range entries {
				if e.CreatedAt.After(cutoff) {
					kept = append(kept, e)
				} else {
					removed++
				}
			}
			if len(kept) == 0 {
				delete(s.confirmations, k)
			} else {
				s.confirmations[k] = kept
			}
		}
	default:
		return 0, fmt.Errorf("unknown cache level %q", level)
	}
	return removed, nil
}
