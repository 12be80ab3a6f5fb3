// Package models defines the keys and entries of the two cache levels.
package models

import (
	"fmt"
	"time"

	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
	"iinfinder/pkg/platform/sentinel"
)

// ErrNotFound is returned by stores when no unexpired entry exists.
var ErrNotFound = fmt.Errorf("cache entry: %w", sentinel.ErrNotFound)

// Level identifies one of the two cache granularities.
type Level string

const (
	LevelScreening    Level = "screening"
	LevelConfirmation Level = "confirmation"
)

// ScreeningKey addresses level-1 entries: one screening batch per birth
// date and series, reused across name searches.
type ScreeningKey struct {
	BirthDate time.Time
	Series    iin.Series
}

func (k ScreeningKey) Date() string {
	return k.BirthDate.Format(time.DateOnly)
}

func (k ScreeningKey) String() string {
	return fmt.Sprintf("%s/%d", k.Date(), k.Series)
}

// ConfirmationKey addresses level-2 entries. Name is the folded query.
type ConfirmationKey struct {
	ScreeningKey
	Name string
}

func (k ConfirmationKey) String() string {
	return fmt.Sprintf("%s/%s", k.ScreeningKey.String(), k.Name)
}

// ScreeningEntry is one stored screening batch in generation order.
type ScreeningEntry struct {
	Records   []registry.ScreeningRecord
	CreatedAt time.Time
}

// ConfirmationEntry is one stored resolution result.
type ConfirmationEntry struct {
	Found     []registry.ConfirmationRecord
	Leftover  []iin.ID
	CreatedAt time.Time
}
