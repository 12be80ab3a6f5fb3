package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain outcomes.
//
//   - ErrNotFound: row or key does not exist, or only expired rows exist
//   - ErrConflict: write collides with an existing row
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing store or upstream temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
