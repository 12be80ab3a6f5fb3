package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOwnerID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseOwnerID("")
		require.Error(t, err)
	})

	t.Run("rejects non-numeric value", func(t *testing.T) {
		_, err := ParseOwnerID("abc")
		require.Error(t, err)
	})

	t.Run("rejects zero and negative ids", func(t *testing.T) {
		_, err := ParseOwnerID("0")
		require.Error(t, err)
		_, err = ParseOwnerID("-15")
		require.Error(t, err)
	})

	t.Run("accepts positive id", func(t *testing.T) {
		id, err := ParseOwnerID("123456789")
		require.NoError(t, err)
		assert.Equal(t, OwnerID(123456789), id)
		assert.Equal(t, "123456789", id.String())
		assert.False(t, id.IsNil())
	})
}
