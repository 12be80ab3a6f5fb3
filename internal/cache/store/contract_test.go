package store_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"iinfinder/internal/cache/models"
	"iinfinder/internal/cache/store"
	"iinfinder/internal/iin"
	"iinfinder/internal/registry"
)

// contractSuite runs the same behaviour checks against every backend.
// Backends embed it and set newStore in SetupTest.
type contractSuite struct {
	suite.Suite
	store store.Store
}

var (
	birthDate = time.Date(1983, 1, 18, 0, 0, 0, 0, time.UTC)
	baseTime  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func strPtr(s string) *string { return &s }

func screeningKey() models.ScreeningKey {
	return models.ScreeningKey{BirthDate: birthDate, Series: iin.SeriesRecent}
}

func confirmationKey(name string) models.ConfirmationKey {
	return models.ConfirmationKey{ScreeningKey: screeningKey(), Name: name}
}

func (s *contractSuite) TestScreeningLatestWins() {
	ctx := context.Background()
	key := screeningKey()

	older := models.ScreeningEntry{
		Records:   []registry.ScreeningRecord{{ID: "830118050359"}},
		CreatedAt: baseTime,
	}
	newer := models.ScreeningEntry{
		Records: []registry.ScreeningRecord{
			{ID: "830118050359", RegisteredName: strPtr("АЛЕКСАНДР С")},
			{ID: "830118050438"},
		},
		CreatedAt: baseTime.Add(time.Hour),
	}
	s.Require().NoError(s.store.InsertScreening(ctx, key, older))
	s.Require().NoError(s.store.InsertScreening(ctx, key, newer))

	s.Run("newest entry after cutoff is returned", func() {
		got, err := s.store.LatestScreening(ctx, key, baseTime.Add(-time.Minute))
		s.Require().NoError(err)
		s.Require().Len(got.Records, 2)
		s.Equal(iin.ID("830118050359"), got.Records[0].ID)
		s.Require().NotNil(got.Records[0].RegisteredName)
		s.Equal("АЛЕКСАНДР С", *got.Records[0].RegisteredName)
		s.Nil(got.Records[1].RegisteredName)
		s.True(newer.CreatedAt.Equal(got.CreatedAt))
	})

	s.Run("entry created exactly at cutoff is expired", func() {
		_, err := s.store.LatestScreening(ctx, key, newer.CreatedAt)
		s.ErrorIs(err, models.ErrNotFound)
	})

	s.Run("other series misses", func() {
		other := models.ScreeningKey{BirthDate: birthDate, Series: iin.SeriesLegacy}
		_, err := s.store.LatestScreening(ctx, other, time.Time{})
		s.ErrorIs(err, models.ErrNotFound)
	})
}

func (s *contractSuite) TestConfirmationRoundTrip() {
	ctx := context.Background()
	key := confirmationKey("александр")
	entry := models.ConfirmationEntry{
		Found: []registry.ConfirmationRecord{{
			ID:        "830118050359",
			FirstName: strPtr("АЛЕКСАНДР"),
			LastName:  strPtr("СЕРГЕЕВ"),
		}},
		Leftover:  []iin.ID{"830118050438"},
		CreatedAt: baseTime,
	}
	s.Require().NoError(s.store.InsertConfirmation(ctx, key, entry))

	got, err := s.store.LatestConfirmation(ctx, key, baseTime.Add(-time.Second))
	s.Require().NoError(err)
	s.Require().Len(got.Found, 1)
	s.Equal("АЛЕКСАНДР", *got.Found[0].FirstName)
	s.Nil(got.Found[0].MiddleName)
	s.Equal([]iin.ID{"830118050438"}, got.Leftover)

	s.Run("name is part of the key", func() {
		_, err := s.store.LatestConfirmation(ctx, confirmationKey("дмитрий"), time.Time{})
		s.ErrorIs(err, models.ErrNotFound)
	})

	s.Run("empty result is stored as empty", func() {
		emptyKey := confirmationKey("никто")
		s.Require().NoError(s.store.InsertConfirmation(ctx, emptyKey, models.ConfirmationEntry{CreatedAt: baseTime}))
		got, err := s.store.LatestConfirmation(ctx, emptyKey, time.Time{})
		s.Require().NoError(err)
		s.Empty(got.Found)
		s.Empty(got.Leftover)
	})
}

func (s *contractSuite) TestRemoveCreatedBefore() {
	ctx := context.Background()
	key := screeningKey()
	for i := range 3 {
		s.Require().NoError(s.store.InsertScreening(ctx, key, models.ScreeningEntry{
			Records:   []registry.ScreeningRecord{{ID: "830118050011"}},
			CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
		}))
	}
	s.Require().NoError(s.store.InsertConfirmation(ctx, confirmationKey("x"), models.ConfirmationEntry{CreatedAt: baseTime}))

	n, err := s.store.RemoveCreatedBefore(ctx, models.LevelScreening, baseTime.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	got, err := s.store.LatestScreening(ctx, key, time.Time{})
	s.Require().NoError(err)
	s.True(got.CreatedAt.Equal(baseTime.Add(2 * time.Hour)))

	// other level untouched
	_, err = s.store.LatestConfirmation(ctx, confirmationKey("x"), time.Time{})
	s.NoError(err)

	n, err = s.store.RemoveCreatedBefore(ctx, models.LevelConfirmation, baseTime)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.store.RemoveCreatedBefore(ctx, models.Level("bogus"), baseTime)
	s.Error(err)
}
