package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := Encode(At(42, ts))
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.ID)
	assert.True(t, ts.Equal(c.Time()))
	assert.False(t, c.IsZero())
}

func TestDecode_EmptyIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode("%%%")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Decode("bm90LWpzb24=") // "not-json"
	assert.ErrorIs(t, err, ErrInvalidToken)
}
