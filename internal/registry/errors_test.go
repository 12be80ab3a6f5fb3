package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

func TestTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), want: ErrorTimeout},
		{name: "open breaker", err: gobreaker.ErrOpenState, want: ErrorOutage},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), want: ErrorOutage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := TransportError("screening", "lookup", tt.err)
			assert.Equal(t, tt.want, GetCategory(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestGetCategoryDefaultsToInternal(t *testing.T) {
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
	assert.Equal(t, ErrorBadData, GetCategory(fmt.Errorf("wrap: %w",
		NewUpstreamError(ErrorBadData, "confirmation", "missing view state", nil))))
}

func TestConfirmationRecord(t *testing.T) {
	first, last := "АЛЕКСАНДР", "СТЕБЛИНА"
	found := ConfirmationRecord{ID: "830118050359", FirstName: &first, LastName: &last}
	assert.True(t, found.Exists())
	assert.Equal(t, "Стеблина Александр", found.FullName())

	assert.False(t, ConfirmationRecord{ID: "830118050359"}.Exists())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "found", OutcomeFound.String())
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "transient", OutcomeTransient.String())
}
