// Package iin models the 12-digit personal identifier and the pure
// arithmetic around it: checksum, candidate generation and name folding.
//
// Nothing in this package performs I/O or reads the clock.
package iin

import (
	"errors"
	"fmt"
	"time"
)

// Length is the number of digits in a full identifier, checksum included.
const Length = 12

// baseLength is the number of digits the checksum is computed over.
const baseLength = Length - 1

// DefaultCandidateCount is the number of sequence numbers tried per
// birth date and series.
const DefaultCandidateCount = 299

// ErrInvalidID indicates a string is not a well-formed identifier.
var ErrInvalidID = errors.New("invalid IIN")

// Series is the 8th digit of an identifier. It distinguishes identifiers
// issued under the current scheme from those issued under the legacy one.
type Series int

const (
	SeriesLegacy Series = 0
	SeriesRecent Series = 5
)

// ParseSeries validates a series digit.
func ParseSeries(v int) (Series, error) {
	s := Series(v)
	if !s.Valid() {
		return 0, fmt.Errorf("invalid series digit %d: must be %d or %d", v, SeriesLegacy, SeriesRecent)
	}
	return s, nil
}

// Valid reports whether s is one of the two known series digits.
func (s Series) Valid() bool {
	return s == SeriesLegacy || s == SeriesRecent
}

// ID is a full 12-digit identifier whose last digit is a valid checksum.
type ID string

// Parse validates s as a 12-digit identifier with a correct checksum digit.
func Parse(s string) (ID, error) {
	if len(s) != Length || !allDigits(s) {
		return "", fmt.Errorf("%w: %q must be %d digits", ErrInvalidID, s, Length)
	}
	digit, ok := Checksum(s[:baseLength])
	if !ok || int(s[baseLength]-'0') != digit {
		return "", fmt.Errorf("%w: %q has a wrong checksum", ErrInvalidID, s)
	}
	return ID(s), nil
}

// MustParse is Parse that panics on error. Use only in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) String() string {
	return string(id)
}

// Base returns the first eleven digits.
func (id ID) Base() string {
	return string(id[:baseLength])
}

// Suffix returns the last four digits: the sequence tail and the checksum.
func (id ID) Suffix() string {
	return string(id[Length-4:])
}

// DatePrefix renders the YYMMDD part of an identifier for a birth date.
func DatePrefix(birthDate time.Time) string {
	return birthDate.Format("060102")
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
