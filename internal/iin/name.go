package iin

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldName normalises a name for comparison: surrounding spaces and dots are
// trimmed, inner whitespace collapsed, and the result case-folded.
func FoldName(name string) string {
	name = strings.Trim(name, " .")
	name = strings.Join(strings.Fields(name), " ")
	return cases.Fold().String(name)
}

// LegalName is the triple of name parts the confirmation registry returns.
// Any part may be absent.
type LegalName struct {
	First  *string
	Middle *string
	Last   *string
}

// Key renders the comparable form of a legal name: first name plus the
// first letter of the last name when both exist, otherwise whichever of the
// two is present. Some legal records omit one of the two parts.
func (n LegalName) Key() string {
	first := deref(n.First)
	last := deref(n.Last)
	switch {
	case first != "" && last != "":
		initial, _ := firstRune(last)
		return FoldName(first + " " + initial)
	case first != "":
		return FoldName(first)
	case last != "":
		return FoldName(last)
	default:
		return ""
	}
}

// Matches reports whether the legal name matches an already folded query.
func (n LegalName) Matches(foldedQuery string) bool {
	key := n.Key()
	return key != "" && key == foldedQuery
}

// IsEmpty reports whether no name part is present.
func (n LegalName) IsEmpty() bool {
	return deref(n.First) == "" && deref(n.Middle) == "" && deref(n.Last) == ""
}

// Full renders "Last First Middle" in title case, skipping absent parts.
func (n LegalName) Full() string {
	parts := make([]string, 0, 3)
	for _, p := range []*string{n.Last, n.First, n.Middle} {
		if v := deref(p); v != "" {
			parts = append(parts, v)
		}
	}
	return cases.Title(language.Und).String(strings.ToLower(strings.Join(parts, " ")))
}

func firstRune(s string) (string, bool) {
	for _, r := range s {
		return string(r), true
	}
	return "", false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// MatchesRegistered reports whether a screening registry name equals an
// already folded query. The registry renders names as "FIRST L." so the
// trailing dot is ignored.
func MatchesRegistered(registered, foldedQuery string) bool {
	if foldedQuery == "" {
		return false
	}
	return FoldName(registered) == foldedQuery
}
