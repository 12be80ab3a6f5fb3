// Package access keeps the owner allow and deny lists that gate searches.
package access

import (
	"fmt"
	"time"

	"iinfinder/pkg/domain"
)

// Kind selects the list an entry belongs to.
type Kind string

const (
	// KindAllow exempts an owner from the search quota.
	KindAllow Kind = "allow"
	// KindDeny blocks an owner from searching.
	KindDeny Kind = "deny"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAllow, KindDeny:
		return k, nil
	default:
		return "", fmt.Errorf("unknown access list kind %q", s)
	}
}

// Entry is one listed owner. A nil ExpiresAt never expires.
type Entry struct {
	Kind      Kind
	OwnerID   domain.OwnerID
	ExpiresAt *time.Time
	Comment   string
	AddedBy   domain.OwnerID
	CreatedAt time.Time
}

// ActiveAt reports whether the entry is unexpired at now.
func (e Entry) ActiveAt(now time.Time) bool {
	return e.ExpiresAt == nil || e.ExpiresAt.After(now)
}
