package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"iinfinder/internal/iin"
)

func TestKeyStrings(t *testing.T) {
	sk := ScreeningKey{BirthDate: time.Date(1983, 1, 18, 0, 0, 0, 0, time.UTC), Series: iin.SeriesRecent}
	assert.Equal(t, "1983-01-18/5", sk.String())

	ck := ConfirmationKey{ScreeningKey: sk, Name: "александр с"}
	assert.Equal(t, "1983-01-18/5/александр с", ck.String())
}
