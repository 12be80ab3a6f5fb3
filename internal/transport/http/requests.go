package httptransport

import (
	"fmt"
	"strings"
	"time"

	"iinfinder/internal/access"
	"iinfinder/internal/autosearch"
	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
	"iinfinder/internal/search"
	"iinfinder/pkg/domain"
	dErrors "iinfinder/pkg/domain-errors"
)

// maxCandidates bounds a caller-supplied candidate list to one full batch.
const maxCandidates = 999

var minBirthDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

func validationError(format string, args ...any) error {
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf(format, args...))
}

func parseBirthDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, validationError("birth_date is required")
	}
	d, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, validationError("birth_date %q must be YYYY-MM-DD", raw)
	}
	if d.Before(minBirthDate) {
		return time.Time{}, validationError("birth_date %q is out of range", raw)
	}
	return d, nil
}

// parseSeries defaults to the recent series when the caller omits it.
func parseSeries(raw *int) (iin.Series, error) {
	if raw == nil {
		return iin.SeriesRecent, nil
	}
	s, err := iin.ParseSeries(*raw)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	return s, nil
}

func parseCandidates(raw []string) ([]iin.ID, error) {
	if len(raw) == 0 {
		return nil, validationError("candidates must not be empty")
	}
	if len(raw) > maxCandidates {
		return nil, validationError("at most %d candidates are accepted", maxCandidates)
	}
	ids := make([]iin.ID, 0, len(raw))
	for _, c := range raw {
		id, err := iin.Parse(strings.TrimSpace(c))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validateOwner(o domain.Owner) error {
	if o.ID <= 0 {
		return validationError("owner.id must be a positive integer")
	}
	return nil
}

type resolveRequest struct {
	Owner     domain.Owner `json:"owner"`
	BirthDate string       `json:"birth_date"`
	Name      string       `json:"name"`
	Series    *int         `json:"series,omitempty"`

	query search.Query
}

func (r *resolveRequest) Validate() error {
	if err := validateOwner(r.Owner); err != nil {
		return err
	}
	bd, err := parseBirthDate(r.BirthDate)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.Name) == "" {
		return validationError("name is required")
	}
	series, err := parseSeries(r.Series)
	if err != nil {
		return err
	}
	r.query = search.Query{BirthDate: bd, Name: strings.TrimSpace(r.Name), Series: series}
	return nil
}

type confirmRequest struct {
	Candidates []string `json:"candidates"`
	Name       string   `json:"name"`

	ids []iin.ID
}

func (r *confirmRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return validationError("name is required")
	}
	ids, err := parseCandidates(r.Candidates)
	if err != nil {
		return err
	}
	r.ids = ids
	return nil
}

type autoSearchRequest struct {
	Owner      domain.Owner `json:"owner"`
	BirthDate  string       `json:"birth_date"`
	Name       string       `json:"name"`
	Series     *int         `json:"series,omitempty"`
	Candidates []string     `json:"candidates"`

	create autosearch.CreateRequest
}

func (r *autoSearchRequest) Validate() error {
	if err := validateOwner(r.Owner); err != nil {
		return err
	}
	bd, err := parseBirthDate(r.BirthDate)
	if err != nil {
		return err
	}
	if strings.TrimSpace(r.Name) == "" {
		return validationError("name is required")
	}
	series, err := parseSeries(r.Series)
	if err != nil {
		return err
	}
	ids, err := parseCandidates(r.Candidates)
	if err != nil {
		return err
	}
	r.create = autosearch.CreateRequest{
		Owner:      r.Owner,
		BirthDate:  bd,
		Name:       strings.TrimSpace(r.Name),
		Series:     series,
		Candidates: ids,
	}
	return nil
}

type accessRequest struct {
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	AddedBy   domain.OwnerID `json:"added_by,omitempty"`
}

func (r *accessRequest) Validate() error {
	if len(r.Comment) > 500 {
		return validationError("comment must be at most 500 characters")
	}
	if r.AddedBy < 0 {
		return validationError("added_by must not be negative")
	}
	return nil
}

// =============================================================================
// Responses
// =============================================================================

type recordResponse struct {
	IIN        string  `json:"iin"`
	LastName   *string `json:"last_name,omitempty"`
	FirstName  *string `json:"first_name,omitempty"`
	MiddleName *string `json:"middle_name,omitempty"`
	FullName   string  `json:"full_name"`
}

func toRecords(records []registry.ConfirmationRecord) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, recordResponse{
			IIN:        r.ID.String(),
			LastName:   r.LastName,
			FirstName:  r.FirstName,
			MiddleName: r.MiddleName,
			FullName:   r.FullName(),
		})
	}
	return out
}

func toIDStrings(ids []iin.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

type resolveResponse struct {
	CacheTier int              `json:"cache_tier"`
	Found     []recordResponse `json:"found"`
	Leftover  []string         `json:"leftover"`
}

type confirmResponse struct {
	Found []recordResponse `json:"found"`
}

type taskResponse struct {
	ID            string       `json:"id"`
	Owner         domain.Owner `json:"owner"`
	BirthDate     string       `json:"birth_date"`
	Name          string       `json:"name"`
	Series        int          `json:"series"`
	Candidates    []string     `json:"candidates"`
	CreatedAt     time.Time    `json:"created_at"`
	LastCheckedAt time.Time    `json:"last_checked_at"`
}

func toTask(t *autosearch.Task) taskResponse {
	return taskResponse{
		ID:            t.ID.String(),
		Owner:         t.Owner,
		BirthDate:     t.BirthDate.Format(time.DateOnly),
		Name:          t.Name,
		Series:        int(t.Series),
		Candidates:    toIDStrings(t.Candidates),
		CreatedAt:     t.CreatedAt.UTC(),
		LastCheckedAt: t.LastCheckedAt.UTC(),
	}
}

type accessEntryResponse struct {
	Kind      string         `json:"kind"`
	OwnerID   domain.OwnerID `json:"owner_id"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Comment   string         `json:"comment,omitempty"`
	AddedBy   domain.OwnerID `json:"added_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toAccessEntries(entries []*access.Entry) []accessEntryResponse {
	out := make([]accessEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, accessEntryResponse{
			Kind:      string(e.Kind),
			OwnerID:   e.OwnerID,
			ExpiresAt: e.ExpiresAt,
			Comment:   e.Comment,
			AddedBy:   e.AddedBy,
			CreatedAt: e.CreatedAt.UTC(),
		})
	}
	return out
}
