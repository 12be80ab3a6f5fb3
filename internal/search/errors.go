package search

import (
	"errors"
	"fmt"
	"time"
)

// PersistenceError marks a cache or log store failure. It aborts the run;
// per-candidate upstream failures never do.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err carries a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func persistence(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}

// ErrAccessDenied is returned for deny-listed owners.
var ErrAccessDenied = errors.New("owner is deny-listed")

// QuotaExceededError is returned when an owner has used up the rolling
// search quota. RetryAt is when the oldest counted search leaves the window.
type QuotaExceededError struct {
	Limit   int
	RetryAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("search quota of %d exceeded, retry at %s", e.Limit, e.RetryAt.Format(time.RFC3339))
}

// ErrQuotaExceeded matches any QuotaExceededError via errors.Is.
var ErrQuotaExceeded = errors.New("search quota exceeded")

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
