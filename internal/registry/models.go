// Package registry holds the record types and outcome taxonomy shared by the
// screening and confirmation upstream clients.
package registry

import (
	"time"

	"iinfinder/internal/iin"
)

// Outcome is the per-candidate result of one upstream exchange.
type Outcome int

const (
	// OutcomeNotFound means the registry answered and has no record.
	OutcomeNotFound Outcome = iota
	// OutcomeFound means the registry answered with a record.
	OutcomeFound
	// OutcomeTransient means the exchange failed before the registry gave a
	// definitive answer. Callers treat it as not found for this run.
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ScreeningRecord is what the public registry knows about one candidate.
// A nil RegisteredName means the candidate is not registered there.
type ScreeningRecord struct {
	ID             iin.ID     `json:"id"`
	RegisteredName *string    `json:"registered_name,omitempty"`
	RegistryDate   *time.Time `json:"registry_date,omitempty"`
}

// HasName reports whether the registry returned a non-blank name.
func (r ScreeningRecord) HasName() bool {
	return r.RegisteredName != nil && *r.RegisteredName != ""
}

type ScreeningResult struct {
	Record  ScreeningRecord
	Outcome Outcome
	Err     error
}

// ConfirmationRecord is the legal name the confirmation registry holds for a
// candidate. All name parts nil means the registry reported not found.
type ConfirmationRecord struct {
	ID         iin.ID  `json:"id"`
	FirstName  *string `json:"first_name,omitempty"`
	MiddleName *string `json:"middle_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
}

func (r ConfirmationRecord) Name() iin.LegalName {
	return iin.LegalName{First: r.FirstName, Middle: r.MiddleName, Last: r.LastName}
}

// Exists reports whether the registry returned any name part.
func (r ConfirmationRecord) Exists() bool {
	return !r.Name().IsEmpty()
}

// FullName renders the name as "Last First Middle".
func (r ConfirmationRecord) FullName() string {
	return r.Name().Full()
}

type ConfirmationResult struct {
	Record  ConfirmationRecord
	Outcome Outcome
	Err     error
}
