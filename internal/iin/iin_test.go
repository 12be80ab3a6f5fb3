package iin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		digit  int
		wantOK bool
	}{
		{name: "first pass", base: "99122305017", digit: 6, wantOK: true},
		{name: "first pass with leading zeros", base: "00010105136", digit: 1, wantOK: true},
		{name: "recent series", base: "83011805035", digit: 9, wantOK: true},
		{name: "recent series second candidate", base: "83011805043", digit: 8, wantOK: true},
		{name: "second pass resolves to zero", base: "83011805020", digit: 0, wantOK: true},
		{name: "second pass resolves to nine", base: "83011805100", digit: 9, wantOK: true},
		{name: "both passes yield ten", base: "83011805025", wantOK: false},
		{name: "both passes yield ten again", base: "83011805106", wantOK: false},
		{name: "too short", base: "8301180503", wantOK: false},
		{name: "non digit", base: "8301180503x", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digit, ok := Checksum(tt.base)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.digit, digit)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Run("valid identifier", func(t *testing.T) {
		id, err := Parse("830118050359")
		require.NoError(t, err)
		assert.Equal(t, "83011805035", id.Base())
		assert.Equal(t, "0359", id.Suffix())
	})

	t.Run("wrong checksum", func(t *testing.T) {
		_, err := Parse("830118050358")
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := Parse("83011805035")
		assert.ErrorIs(t, err, ErrInvalidID)
	})

	t.Run("letters", func(t *testing.T) {
		_, err := Parse("83011805035a")
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestParseSeries(t *testing.T) {
	s, err := ParseSeries(5)
	require.NoError(t, err)
	assert.Equal(t, SeriesRecent, s)

	s, err = ParseSeries(0)
	require.NoError(t, err)
	assert.Equal(t, SeriesLegacy, s)

	_, err = ParseSeries(3)
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	birthDate := time.Date(1983, 1, 18, 0, 0, 0, 0, time.UTC)

	t.Run("recent series yields every valid sequence", func(t *testing.T) {
		ids := Generate(birthDate, SeriesRecent, DefaultCandidateCount)

		require.Len(t, ids, 296)
		assert.Equal(t, ID("830118050011"), ids[0])
		assert.Equal(t, ID("830118050359"), ids[33])
		assert.Equal(t, ID("830118050438"), ids[41])
		assert.Equal(t, ID("830118052993"), ids[len(ids)-1])
	})

	t.Run("every candidate reproduces its checksum", func(t *testing.T) {
		for _, series := range []Series{SeriesLegacy, SeriesRecent} {
			for _, id := range Generate(birthDate, series, DefaultCandidateCount) {
				parsed, err := Parse(id.String())
				require.NoError(t, err)
				assert.Equal(t, id, parsed)
				assert.Equal(t, "830118", id.String()[:6])
				assert.Equal(t, byte('0'+series), id.String()[7])
			}
		}
	})

	t.Run("discarded bases are skipped", func(t *testing.T) {
		for _, id := range Generate(birthDate, SeriesRecent, DefaultCandidateCount) {
			assert.NotEqual(t, "83011805025", id.Base())
			assert.NotEqual(t, "83011805106", id.Base())
			assert.NotEqual(t, "83011805297", id.Base())
		}
	})

	t.Run("zero count yields nothing", func(t *testing.T) {
		assert.Empty(t, Generate(birthDate, SeriesRecent, 0))
	})

	t.Run("unknown series yields nothing", func(t *testing.T) {
		assert.Empty(t, Generate(birthDate, Series(3), DefaultCandidateCount))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t,
			Generate(birthDate, SeriesLegacy, 50),
			Generate(birthDate, SeriesLegacy, 50))
	})
}
