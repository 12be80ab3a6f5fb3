package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"

	"iinfinder/internal/platform/config"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New[int]("screening", config.BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}, nil, nil)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerZeroThresholdTripsOnFirstFailure(t *testing.T) {
	cb := New[string]("confirmation", config.BreakerConfig{Timeout: time.Minute}, nil, nil)
	_, _ = cb.Execute(func() (string, error) { return "", errors.New("down") })
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}
