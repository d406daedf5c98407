package noise

import (
	"testing"

	"github.com/MeKo-Tech/noisemap/internal/field"
	"github.com/MeKo-Tech/noisemap/internal/rng"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassicDeterministicAndBounded(t *testing.T) {
	a, err := NewContext(rng.New(1337)).Classic(64, 48, 3, WithScale(8))
	require.NoError(t, err)
	b, err := NewContext(rng.New(1337)).Classic(64, 48, 3, WithScale(8))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assertInUnitRange(t, a)

	varied := false
	first := a.At(0, 0)
	for _, v := range a.Values() {
		if v != first {
			varied = true
			break
		}
	}
	assert.True(t, varied, "noise should vary across the field")
}

func TestClassicValidation(t *testing.T) {
	ctx := NewContext(rng.New(1))
	_, err := ctx.Classic(16, 16, 0)
	assert.ErrorIs(t, err, field.ErrInvalidParameter)
	_, err = ctx.Classic(0, 16, 2)
	assert.ErrorIs(t, err, field.ErrInvalidParameter)
}
