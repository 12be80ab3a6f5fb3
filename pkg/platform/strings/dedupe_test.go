package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type candidate string

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"trims whitespace", []string{"  a  ", "b  "}, []string{"a", "b"}},
		{"removes duplicates preserving order", []string{"a", "b", "a", "c", "b"}, []string{"a", "b", "c"}},
		{"removes blank values", []string{"a", "", "  ", "b"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimNamedType(t *testing.T) {
	got := DedupeAndTrim([]candidate{"830118050359 ", "830118050359", "830118050438"})
	assert.Equal(t, []candidate{"830118050359", "830118050438"}, got)
}
