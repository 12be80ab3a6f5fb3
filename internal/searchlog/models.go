// Package searchlog records every resolution run. The log feeds the manual
// search quota and is swept after a retention period.
package searchlog

import (
	"time"

	"github.com/google/uuid"

	"iinfinder/internal/iin"
	"iinfinder/pkg/domain"
)

// Entry is one logged search. CacheTier and ResultCount stay nil until the
// run completes.
type Entry struct {
	ID          uuid.UUID
	Owner       domain.Owner
	CreatedAt   time.Time
	BirthDate   time.Time
	Name        string
	Series      iin.Series
	Auto        bool
	CacheTier   *int
	ResultCount *int
}

// Completed reports whether the run finished and was backfilled.
func (e Entry) Completed() bool {
	return e.CacheTier != nil
}
